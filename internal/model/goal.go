package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Priority is the tier a goal draws from the shared savings pool with.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders tiers; a larger rank is served first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether p is strictly higher than other.
func (p Priority) Outranks(other Priority) bool {
	return p.Rank() > other.Rank()
}

// IncomeType describes how predictable a goal owner's income is.
type IncomeType string

const (
	IncomeFixed    IncomeType = "fixed"
	IncomeVariable IncomeType = "variable"
)

// Goal is a savings goal record owned by the CRUD layer.
type Goal struct {
	ID             string     `json:"goal_id" firestore:"GoalId"`
	UserID         string     `json:"user_id,omitempty" firestore:"UserId"`
	Name           string     `json:"name" firestore:"Name"`
	TargetAmount   float64    `json:"target_amount" firestore:"TargetAmount"`
	Deadline       time.Time  `json:"deadline" firestore:"Deadline"`
	CurrentSavings float64    `json:"current_savings" firestore:"CurrentSavings"`
	Priority       Priority   `json:"priority" firestore:"Priority"`
	MonthlyIncome  float64    `json:"monthly_income" firestore:"MonthlyIncome"`
	IncomeType     IncomeType `json:"income_type" firestore:"IncomeType"`
}

// Normalize fills defaults for optional fields.
func (g Goal) Normalize() Goal {
	g.Priority = Priority(strings.ToLower(strings.TrimSpace(string(g.Priority))))
	if g.Priority == "" {
		g.Priority = PriorityMedium
	}
	g.IncomeType = IncomeType(strings.ToLower(strings.TrimSpace(string(g.IncomeType))))
	if g.IncomeType == "" {
		g.IncomeType = IncomeFixed
	}
	return g
}

// Validate checks the goal after Normalize.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return NewUpstreamError("goal_id", "is required")
	}
	if g.Deadline.IsZero() {
		return NewUpstreamError("deadline", "is required (goal "+g.ID+")")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"target_amount", g.TargetAmount},
		{"current_savings", g.CurrentSavings},
		{"monthly_income", g.MonthlyIncome},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return NewUpstreamError(f.name, "is not a finite number (goal "+g.ID+")")
		}
	}
	if g.TargetAmount < 0 {
		return NewUpstreamError("target_amount", "must not be negative (goal "+g.ID+")")
	}
	if g.Priority.Rank() == 0 {
		return NewUpstreamError("priority", fmt.Sprintf("unknown tier %q (goal %s)", g.Priority, g.ID))
	}
	if g.IncomeType != IncomeFixed && g.IncomeType != IncomeVariable {
		return NewUpstreamError("income_type", fmt.Sprintf("unknown income type %q (goal %s)", g.IncomeType, g.ID))
	}
	return nil
}

type goalJSON struct {
	ID             string     `json:"goal_id"`
	UserID         string     `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	TargetAmount   float64    `json:"target_amount"`
	Deadline       string     `json:"deadline"`
	CurrentSavings float64    `json:"current_savings"`
	Priority       Priority   `json:"priority"`
	MonthlyIncome  float64    `json:"monthly_income"`
	IncomeType     IncomeType `json:"income_type"`
}

// MarshalJSON writes the deadline as YYYY-MM-DD.
func (g Goal) MarshalJSON() ([]byte, error) {
	return json.Marshal(goalJSON{
		ID:             g.ID,
		UserID:         g.UserID,
		Name:           g.Name,
		TargetAmount:   g.TargetAmount,
		Deadline:       formatDate(g.Deadline),
		CurrentSavings: g.CurrentSavings,
		Priority:       g.Priority,
		MonthlyIncome:  g.MonthlyIncome,
		IncomeType:     g.IncomeType,
	})
}

// UnmarshalJSON accepts YYYY-MM-DD or RFC 3339 deadlines.
func (g *Goal) UnmarshalJSON(data []byte) error {
	var raw goalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	deadline, err := ParseDate(raw.Deadline)
	if err != nil {
		return NewUpstreamError("deadline", fmt.Sprintf("goal %s: %v", raw.ID, err))
	}
	*g = Goal{
		ID:             raw.ID,
		UserID:         raw.UserID,
		Name:           raw.Name,
		TargetAmount:   raw.TargetAmount,
		Deadline:       deadline,
		CurrentSavings: raw.CurrentSavings,
		Priority:       raw.Priority,
		MonthlyIncome:  raw.MonthlyIncome,
		IncomeType:     raw.IncomeType,
	}
	return nil
}
