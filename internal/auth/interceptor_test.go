package auth

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name        string
		authHeader  string
		expectedErr bool
		errContains string
		wantToken   string
	}{
		{
			name:        "empty header",
			authHeader:  "",
			expectedErr: true,
			errContains: "authorization header is required",
		},
		{
			name:        "no bearer prefix",
			authHeader:  "token123",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:        "wrong prefix",
			authHeader:  "Basic token123",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:        "bearer only no token",
			authHeader:  "Bearer",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:        "valid bearer token",
			authHeader:  "Bearer mytoken123",
			expectedErr: false,
			wantToken:   "mytoken123",
		},
		{
			name:        "bearer lowercase",
			authHeader:  "bearer mytoken456",
			expectedErr: false,
			wantToken:   "mytoken456",
		},
		{
			name:        "bearer mixed case",
			authHeader:  "BEARER mytoken789",
			expectedErr: false,
			wantToken:   "mytoken789",
		},
		{
			name:        "token with spaces",
			authHeader:  "Bearer token with spaces",
			expectedErr: false,
			wantToken:   "token with spaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractTokenFromHeader(tt.authHeader)

			if tt.expectedErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}

type fakeVerifier struct {
	claims *UserClaims
	err    error
	got    string
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*UserClaims, error) {
	f.got = token
	return f.claims, f.err
}

type ping struct{}

// capture runs the interceptor and returns the user it put on the context.
func capture(t *testing.T, interceptor connect.UnaryInterceptorFunc, header map[string]string) (string, error) {
	t.Helper()
	req := connect.NewRequest(&ping{})
	for k, v := range header {
		req.Header().Set(k, v)
	}
	var uid string
	next := func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		uid, _ = GetUserID(ctx)
		return connect.NewResponse(&ping{}), nil
	}
	_, err := interceptor(next)(context.Background(), req)
	return uid, err
}

func TestAuthInterceptor(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		_, err := capture(t, AuthInterceptor(&fakeVerifier{}), nil)
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := capture(t, AuthInterceptor(&fakeVerifier{}), map[string]string{"Authorization": "Basic abc"})
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("rejected token", func(t *testing.T) {
		v := &fakeVerifier{err: errors.New("expired")}
		_, err := capture(t, AuthInterceptor(v), map[string]string{"Authorization": "Bearer tok"})
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		assert.Equal(t, "tok", v.got)
	})

	t.Run("valid token", func(t *testing.T) {
		v := &fakeVerifier{claims: &UserClaims{UID: "user-123"}}
		uid, err := capture(t, AuthInterceptor(v), map[string]string{"Authorization": "Bearer tok"})
		require.NoError(t, err)
		assert.Equal(t, "user-123", uid)
	})
}

func TestDevInterceptor(t *testing.T) {
	uid, err := capture(t, DevInterceptor("local-dev-user"), nil)
	require.NoError(t, err)
	assert.Equal(t, "local-dev-user", uid)

	uid, err = capture(t, DevInterceptor("local-dev-user"), map[string]string{"X-Debug-Impersonate-User": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)
}

func TestIsPublicEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		procedure string
		expected  bool
	}{
		{"health endpoint", "/health", true},
		{"ping endpoint", "/ping", true},
		{"analytics endpoint", "/pfinance.analytics.v1.AnalyticsService/RankInsights", false},
		{"empty endpoint", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPublicEndpoint(tt.procedure))
		})
	}
}

func TestClaimsFromToken(t *testing.T) {
	claims := claimsFromToken("uid-1", map[string]interface{}{
		"email":          "user@example.com",
		"email_verified": true,
		"name":           "Jo Doe",
	})
	assert.Equal(t, &UserClaims{UID: "uid-1", Email: "user@example.com", DisplayName: "Jo Doe", Verified: true}, claims)

	bare := claimsFromToken("uid-2", nil)
	assert.Equal(t, &UserClaims{UID: "uid-2"}, bare)
}
