package auth

import (
	"context"
	"slices"

	"connectrpc.com/connect"
)

// AuthInterceptor rejects calls without a valid bearer token.
func AuthInterceptor(verifier TokenVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if isPublicEndpoint(req.Spec().Procedure) {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			token, err := ExtractTokenFromHeader(authHeader)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithUserClaims(ctx, claims), req)
		}
	}
}

// DevInterceptor authenticates every call as devUserID, or as the user named
// in X-Debug-Impersonate-User. Never install it in production.
func DevInterceptor(devUserID string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if isPublicEndpoint(req.Spec().Procedure) {
				return next(ctx, req)
			}

			claims := &UserClaims{
				UID:         devUserID,
				Email:       "dev@localhost",
				DisplayName: "Local Dev User",
				Verified:    true,
			}
			if impersonate := req.Header().Get("X-Debug-Impersonate-User"); impersonate != "" {
				claims = &UserClaims{UID: impersonate, Email: impersonate + "@debug.local"}
			}
			return next(WithUserClaims(ctx, claims), req)
		}
	}
}

var publicEndpoints = []string{
	"/health",
	"/ping",
}

func isPublicEndpoint(procedure string) bool {
	return slices.Contains(publicEndpoints, procedure)
}
