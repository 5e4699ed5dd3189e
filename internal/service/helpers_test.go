package service

import (
	"context"

	"github.com/castlemilk/pfinance/analytics/internal/auth"
)

// testContextWithUser creates a context with authenticated user claims for testing
func testContextWithUser(userID string) context.Context {
	return auth.WithUserClaims(context.Background(), &auth.UserClaims{
		UID:   userID,
		Email: userID + "@test.local",
	})
}
