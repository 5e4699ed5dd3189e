package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

// MemoryStore implements Store with in-memory maps. It backs local
// development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	transactions map[string]model.Transaction
	goals        map[string]model.Goal
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]model.Transaction),
		goals:        make(map[string]model.Goal),
	}
}

// paginateIDs applies cursor-based pagination to a sorted slice of IDs.
// Returns the paginated IDs and the next page token (empty if no more pages).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	sort.Strings(ids)

	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err == nil {
			start := sort.SearchStrings(ids, cursorID)
			if start < len(ids) && ids[start] == cursorID {
				start++
			}
			ids = ids[start:]
		}
	}

	var nextToken string
	if int32(len(ids)) > pageSize {
		nextToken = EncodePageToken(ids[pageSize-1])
		ids = ids[:pageSize]
	}
	return ids, nextToken
}

// Transaction operations

func (m *MemoryStore) PutTransactions(ctx context.Context, userID string, txns []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if userID != "" {
			t.UserID = userID
		}
		m.transactions[t.ID] = t
	}
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]model.Transaction, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, t := range m.transactions {
		if userID != "" && t.UserID != userID {
			continue
		}
		if startDate != nil && t.Date.Before(*startDate) {
			continue
		}
		if endDate != nil && t.Date.After(*endDate) {
			continue
		}
		ids = append(ids, id)
	}

	page, next := paginateIDs(ids, pageSize, pageToken)
	out := make([]model.Transaction, 0, len(page))
	for _, id := range page {
		out = append(out, m.transactions[id])
	}
	return out, next, nil
}

// Goal operations

func (m *MemoryStore) PutGoal(ctx context.Context, goal *model.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	m.goals[goal.ID] = *goal
	return nil
}

func (m *MemoryStore) GetGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	goal, ok := m.goals[goalID]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	return &goal, nil
}

func (m *MemoryStore) ListGoals(ctx context.Context, userID string, pageSize int32, pageToken string) ([]model.Goal, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, g := range m.goals {
		if userID != "" && g.UserID != userID {
			continue
		}
		ids = append(ids, id)
	}

	page, next := paginateIDs(ids, pageSize, pageToken)
	out := make([]model.Goal, 0, len(page))
	for _, id := range page {
		out = append(out, m.goals[id])
	}
	return out, next, nil
}
