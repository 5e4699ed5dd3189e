package store

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// defaultPageSize applies when callers pass a non-positive page size.
const defaultPageSize = 500

// Store is the read-mostly view of the ledger and goal records the
// analytics core runs over. Writes exist for snapshot imports and tests.
type Store interface {
	// Transaction operations
	PutTransactions(ctx context.Context, userID string, txns []model.Transaction) error
	ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]model.Transaction, string, error)

	// Goal operations
	PutGoal(ctx context.Context, goal *model.Goal) error
	GetGoal(ctx context.Context, goalID string) (*model.Goal, error)
	ListGoals(ctx context.Context, userID string, pageSize int32, pageToken string) ([]model.Goal, string, error)
}

// AllTransactions pages through every transaction a user owns.
func AllTransactions(ctx context.Context, s Store, userID string) ([]model.Transaction, error) {
	var (
		out   []model.Transaction
		token string
	)
	for {
		page, next, err := s.ListTransactions(ctx, userID, nil, nil, defaultPageSize, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		token = next
	}
}

// AllGoals pages through every goal a user owns.
func AllGoals(ctx context.Context, s Store, userID string) ([]model.Goal, error) {
	var (
		out   []model.Goal
		token string
	)
	for {
		page, next, err := s.ListGoals(ctx, userID, defaultPageSize, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		token = next
	}
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
