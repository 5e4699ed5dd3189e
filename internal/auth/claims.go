package auth

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
)

// UserClaims is the authenticated caller.
type UserClaims struct {
	UID         string
	Email       string
	DisplayName string
	Verified    bool
}

type contextKey string

const userClaimsKey contextKey = "user_claims"

// WithUserClaims adds user claims to the context
func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims extracts user claims from context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok && claims != nil
}

// GetUserID is a convenience function to get the user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	if claims, ok := GetUserClaims(ctx); ok {
		return claims.UID, true
	}
	return "", false
}

// RequireAuth extracts user claims from context or returns an unauthenticated error
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("user not authenticated"))
	}
	return claims, nil
}

// RequireUserAccess verifies the authenticated user owns the requested resource.
func RequireUserAccess(ctx context.Context, ownerID string) (*UserClaims, error) {
	claims, err := RequireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if ownerID != "" && ownerID != claims.UID {
		return nil, connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("cannot access another user's resources"))
	}

	return claims, nil
}
