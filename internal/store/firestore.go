package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

const (
	transactionsCollection = "transactions"
	goalsCollection        = "goals"

	// maxBatchWrites is Firestore's limit on writes per batch commit.
	maxBatchWrites = 500
)

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// applyDateAwarePagination handles pagination for queries with date range filters.
// Firestore requires OrderBy on inequality fields first, so we use OrderBy("Date") + OrderBy(__name__).
// The cursor must include both the Date value and the document ID.
func (s *FirestoreStore) applyDateAwarePagination(ctx context.Context, query firestore.Query, collection string, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy("Date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		cursorDoc, err := s.client.Collection(collection).Doc(docID).Get(ctx)
		if err != nil {
			return query, fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()["Date"], docID)
	}

	query = query.Limit(int(pageSize) + 1)
	return query, nil
}

// applyCursorPagination adds OrderBy + StartAfter + Limit to a query for cursor-based pagination.
// It fetches pageSize+1 docs so the caller can detect whether a next page exists.
func (s *FirestoreStore) applyCursorPagination(query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.StartAfter(docID)
	}

	query = query.Limit(int(pageSize) + 1) // +1 to detect next page
	return query, nil
}

// PutTransactions upserts transactions in batches keyed by transaction ID.
func (s *FirestoreStore) PutTransactions(ctx context.Context, userID string, txns []model.Transaction) error {
	for i := 0; i < len(txns); i += maxBatchWrites {
		end := min(i+maxBatchWrites, len(txns))
		batch := s.client.Batch()
		for _, t := range txns[i:end] {
			if userID != "" {
				t.UserID = userID
			}
			batch.Set(s.client.Collection(transactionsCollection).Doc(t.ID), t)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to write transactions: %w", err)
		}
	}
	return nil
}

// ListTransactions lists a user's transactions, optionally bounded by date.
func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]model.Transaction, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	// NOTE: Field names must match the firestore struct tags on model.Transaction.
	query := s.client.Collection(transactionsCollection).Where("UserId", "==", userID)
	if startDate != nil {
		query = query.Where("Date", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("Date", "<=", *endDate)
	}

	var err error
	if startDate != nil || endDate != nil {
		query, err = s.applyDateAwarePagination(ctx, query, transactionsCollection, pageSize, pageToken)
	} else {
		query, err = s.applyCursorPagination(query, pageSize, pageToken)
	}
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list transactions: %w", err)
	}

	var nextPageToken string
	if len(docs) > int(pageSize) {
		docs = docs[:pageSize]
		nextPageToken = EncodePageToken(docs[pageSize-1].Ref.ID)
	}

	txns := make([]model.Transaction, 0, len(docs))
	for _, doc := range docs {
		var t model.Transaction
		if err := doc.DataTo(&t); err != nil {
			return nil, "", fmt.Errorf("failed to parse transaction %s: %w", doc.Ref.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, nextPageToken, nil
}

// PutGoal creates or replaces a goal in Firestore
func (s *FirestoreStore) PutGoal(ctx context.Context, goal *model.Goal) error {
	_, err := s.client.Collection(goalsCollection).Doc(goal.ID).Set(ctx, goal)
	return err
}

// GetGoal retrieves a goal from Firestore
func (s *FirestoreStore) GetGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	doc, err := s.client.Collection(goalsCollection).Doc(goalID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	var goal model.Goal
	if err := doc.DataTo(&goal); err != nil {
		return nil, fmt.Errorf("failed to parse goal: %w", err)
	}
	return &goal, nil
}

// ListGoals lists a user's goals
func (s *FirestoreStore) ListGoals(ctx context.Context, userID string, pageSize int32, pageToken string) ([]model.Goal, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	query, err := s.applyCursorPagination(
		s.client.Collection(goalsCollection).Where("UserId", "==", userID), pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list goals: %w", err)
	}

	var nextPageToken string
	if len(docs) > int(pageSize) {
		docs = docs[:pageSize]
		nextPageToken = EncodePageToken(docs[pageSize-1].Ref.ID)
	}

	goals := make([]model.Goal, 0, len(docs))
	for _, doc := range docs {
		var g model.Goal
		if err := doc.DataTo(&g); err != nil {
			return nil, "", fmt.Errorf("failed to parse goal %s: %w", doc.Ref.ID, err)
		}
		goals = append(goals, g)
	}
	return goals, nextPageToken, nil
}
