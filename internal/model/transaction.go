package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used on the wire.
const DateLayout = "2006-01-02"

// OtherCategory labels transactions that carry no category.
const OtherCategory = "OTHER"

// Transaction is one immutable ledger entry.
//
// Amount is signed from the account's point of view: negative amounts are
// spend, positive amounts are income. User-facing views usually show spend as
// a positive number; use SpendAmount for that instead of negating inline.
type Transaction struct {
	ID         string    `json:"transaction_id" firestore:"TransactionId"`
	UserID     string    `json:"user_id,omitempty" firestore:"UserId"`
	Date       time.Time `json:"date" firestore:"Date"`
	Amount     float64   `json:"amount" firestore:"Amount"`
	Merchant   string    `json:"merchant_name" firestore:"MerchantName"`
	Categories []string  `json:"category" firestore:"Category"`
	Channel    string    `json:"payment_channel,omitempty" firestore:"PaymentChannel"`
	Pending    bool      `json:"pending" firestore:"Pending"`
}

// IsSpend reports whether the transaction moves money out of the account.
func (t Transaction) IsSpend() bool { return t.Amount < 0 }

// IsIncome reports whether the transaction moves money into the account.
func (t Transaction) IsIncome() bool { return t.Amount > 0 }

// SpendAmount returns the positive magnitude of a spend, or 0 for income.
func (t Transaction) SpendAmount() float64 {
	if t.Amount >= 0 {
		return 0
	}
	return -t.Amount
}

// PrimaryCategory returns the first category label, or OTHER.
func (t Transaction) PrimaryCategory() string {
	for _, c := range t.Categories {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return OtherCategory
}

// IsWeekend reports whether the transaction happened on a Saturday or Sunday.
func (t Transaction) IsWeekend() bool {
	wd := t.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Validate checks the fields every analysis relies on.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return NewUpstreamError("transaction_id", "is required")
	}
	if t.Date.IsZero() {
		return NewUpstreamError("date", fmt.Sprintf("is required (transaction %s)", t.ID))
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return NewUpstreamError("amount", fmt.Sprintf("is not a finite number (transaction %s)", t.ID))
	}
	return nil
}

// ValidateTransactions validates a whole corpus and rejects duplicate IDs.
func ValidateTransactions(txns []Transaction) error {
	seen := make(map[string]struct{}, len(txns))
	for i, t := range txns {
		if err := t.Validate(); err != nil {
			if ae, ok := err.(*AnalysisError); ok {
				ae.Field = fmt.Sprintf("transactions[%d].%s", i, ae.Field)
			}
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return NewUpstreamError(fmt.Sprintf("transactions[%d].transaction_id", i), "duplicate id "+t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

type transactionJSON struct {
	ID         string   `json:"transaction_id"`
	UserID     string   `json:"user_id,omitempty"`
	Date       string   `json:"date"`
	Amount     float64  `json:"amount"`
	Merchant   string   `json:"merchant_name"`
	Categories []string `json:"category"`
	Channel    string   `json:"payment_channel,omitempty"`
	Pending    bool     `json:"pending"`
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:         t.ID,
		UserID:     t.UserID,
		Date:       formatDate(t.Date),
		Amount:     t.Amount,
		Merchant:   t.Merchant,
		Categories: t.Categories,
		Channel:    t.Channel,
		Pending:    t.Pending,
	})
}

// UnmarshalJSON accepts YYYY-MM-DD or RFC 3339 dates.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return NewUpstreamError("date", fmt.Sprintf("transaction %s: %v", raw.ID, err))
	}
	*t = Transaction{
		ID:         raw.ID,
		UserID:     raw.UserID,
		Date:       date,
		Amount:     raw.Amount,
		Merchant:   raw.Merchant,
		Categories: raw.Categories,
		Channel:    raw.Channel,
		Pending:    raw.Pending,
	}
	return nil
}

// ParseDate parses YYYY-MM-DD or RFC 3339 into a UTC time. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d.UTC(), nil
}

// Day truncates t to midnight UTC on its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
