package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. Amounts are stored
// as integer cents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toCents(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}

func fromCents(c int64) float64 {
	f, _ := decimal.New(c, -2).Float64()
	return f
}

func (s *SQLiteStore) PutTransactions(ctx context.Context, userID string, txns []model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, user_id, date, amount_cents, merchant_name, categories, payment_channel, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			date = excluded.date,
			amount_cents = excluded.amount_cents,
			merchant_name = excluded.merchant_name,
			categories = excluded.categories,
			payment_channel = excluded.payment_channel,
			pending = excluded.pending`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		owner := t.UserID
		if userID != "" {
			owner = userID
		}
		categories, err := json.Marshal(t.Categories)
		if err != nil {
			return fmt.Errorf("encode categories for %s: %w", t.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, owner, t.Date.Format(model.DateLayout), toCents(t.Amount),
			t.Merchant, string(categories), t.Channel, t.Pending); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Int("count", len(txns)).
		Msg("transactions saved to SQLite")
	return nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]model.Transaction, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	cursor, err := DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page token: %w", err)
	}

	where := []string{"user_id = ?", "id > ?"}
	args := []any{userID, cursor}
	if startDate != nil {
		where = append(where, "date >= ?")
		args = append(args, startDate.Format(model.DateLayout))
	}
	if endDate != nil {
		where = append(where, "date <= ?")
		args = append(args, endDate.Format(model.DateLayout))
	}
	args = append(args, pageSize+1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, amount_cents, merchant_name, categories, payment_channel, pending
		FROM transactions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id
		LIMIT ?`, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var (
			t          model.Transaction
			date       string
			cents      int64
			categories string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &date, &cents, &t.Merchant, &categories, &t.Channel, &t.Pending); err != nil {
			return nil, "", fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = model.ParseDate(date); err != nil {
			return nil, "", fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
			return nil, "", fmt.Errorf("decode categories for %s: %w", t.ID, err)
		}
		t.Amount = fromCents(cents)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate transactions: %w", err)
	}

	var next string
	if len(txns) > int(pageSize) {
		txns = txns[:pageSize]
		next = EncodePageToken(txns[pageSize-1].ID)
	}
	return txns, next, nil
}

func (s *SQLiteStore) PutGoal(ctx context.Context, goal *model.Goal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_cents, deadline, current_cents, priority, monthly_income_cents, income_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			target_cents = excluded.target_cents,
			deadline = excluded.deadline,
			current_cents = excluded.current_cents,
			priority = excluded.priority,
			monthly_income_cents = excluded.monthly_income_cents,
			income_type = excluded.income_type`,
		goal.ID, goal.UserID, goal.Name, toCents(goal.TargetAmount), goal.Deadline.Format(model.DateLayout),
		toCents(goal.CurrentSavings), string(goal.Priority), toCents(goal.MonthlyIncome), string(goal.IncomeType))
	if err != nil {
		return fmt.Errorf("save goal %s: %w", goal.ID, err)
	}
	return nil
}

const goalColumns = `id, user_id, name, target_cents, deadline, current_cents, priority, monthly_income_cents, income_type`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (model.Goal, error) {
	var (
		g                       model.Goal
		deadline                string
		target, current, income int64
		priority, incomeType    string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &deadline, &current, &priority, &income, &incomeType); err != nil {
		return g, err
	}
	d, err := model.ParseDate(deadline)
	if err != nil {
		return g, fmt.Errorf("goal %s: %w", g.ID, err)
	}
	g.Deadline = d
	g.TargetAmount = fromCents(target)
	g.CurrentSavings = fromCents(current)
	g.MonthlyIncome = fromCents(income)
	g.Priority = model.Priority(priority)
	g.IncomeType = model.IncomeType(incomeType)
	return g, nil
}

func (s *SQLiteStore) GetGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, goalID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &g, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context, userID string, pageSize int32, pageToken string) ([]model.Goal, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	cursor, err := DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page token: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id > ? ORDER BY id LIMIT ?`,
		userID, cursor, pageSize+1)
	if err != nil {
		return nil, "", fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate goals: %w", err)
	}

	var next string
	if len(goals) > int(pageSize) {
		goals = goals[:pageSize]
		next = EncodePageToken(goals[pageSize-1].ID)
	}
	return goals, next, nil
}
