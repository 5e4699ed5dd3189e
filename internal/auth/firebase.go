package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// TokenVerifier turns a bearer token into user claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*UserClaims, error)
}

// FirebaseAuth verifies Firebase ID tokens.
type FirebaseAuth struct {
	client *auth.Client
}

// NewFirebaseAuth creates a verifier for projectID. On Cloud Run default
// credentials work, so credentialsFile may be empty.
func NewFirebaseAuth(ctx context.Context, projectID, credentialsFile string) (*FirebaseAuth, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %w", err)
	}

	return &FirebaseAuth{client: client}, nil
}

// VerifyToken verifies a Firebase ID token and returns the user it names.
func (f *FirebaseAuth) VerifyToken(ctx context.Context, idToken string) (*UserClaims, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	return claimsFromToken(token.UID, token.Claims), nil
}

func claimsFromToken(uid string, raw map[string]interface{}) *UserClaims {
	claims := &UserClaims{UID: uid}
	claims.Verified, _ = raw["email_verified"].(bool)
	if email, ok := raw["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		claims.DisplayName = name
	}
	return claims
}

// ExtractTokenFromHeader extracts the Bearer token from Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("authorization header must be Bearer token")
	}

	return parts[1], nil
}
