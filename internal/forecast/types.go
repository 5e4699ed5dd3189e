package forecast

import "time"

// Status is a banding of projected/target, not a probability.
type Status string

const (
	StatusVeryLikely Status = "very_likely"
	StatusLikely     Status = "likely"
	StatusPossible   Status = "possible"
	StatusUnlikely   Status = "unlikely"
)

// State is the coarse goal health shown to users.
type State string

const (
	StateOnTrack  State = "on_track"
	StateAtRisk   State = "at_risk"
	StateOffTrack State = "off_track"
)

// TerminalState marks goals that need no projection.
type TerminalState string

const (
	TerminalNone    TerminalState = ""
	TerminalGoalMet TerminalState = "goal_met"
	// TerminalExpired covers deadlines already passed or inside the current month.
	TerminalExpired TerminalState = "expired"
)

// Projection carries the three monthly rates and where each lands at the deadline.
type Projection struct {
	ExpectedMonthlySavings    float64 `json:"expected_monthly_savings"`
	OptimisticMonthlySavings  float64 `json:"optimistic_monthly_savings"`
	PessimisticMonthlySavings float64 `json:"pessimistic_monthly_savings"`
	ExpectedTotal             float64 `json:"expected_total"`
	OptimisticTotal           float64 `json:"optimistic_total"`
	PessimisticTotal          float64 `json:"pessimistic_total"`
	SpreadUp                  float64 `json:"spread_up"`
	SpreadDown                float64 `json:"spread_down"`
	ConfidenceLevel           string  `json:"confidence_level"`
}

// PathPoint is the cumulative savings at the end of one month.
type PathPoint struct {
	Month    string  `json:"month"`
	Expected float64 `json:"expected"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
}

// GapAnalysis explains how far behind a goal is.
type GapAnalysis struct {
	Shortfall              float64 `json:"shortfall"`
	RequiredMonthlySavings float64 `json:"required_monthly_savings"`
	CurrentMonthlySavings  float64 `json:"current_monthly_savings"`
	MonthlyGap             float64 `json:"monthly_gap"`
	// Expired is set when no months remain; the rates are then left at zero.
	Expired bool `json:"expired"`
}

// CompetingGoal is a sibling goal drawing from the same savings pool.
type CompetingGoal struct {
	GoalID                 string    `json:"goal_id"`
	GoalName               string    `json:"goal_name"`
	TargetAmount           float64   `json:"target_amount"`
	Deadline               time.Time `json:"deadline"`
	RequiredMonthlySavings float64   `json:"required_monthly_savings"`
	PriorityLevel          string    `json:"priority_level"`
	// CommitsAhead is true when the sibling outranks the goal under evaluation.
	CommitsAhead bool `json:"commits_ahead"`
}

// CompetitionAnalysis is the priority waterfall over the shared savings pool.
type CompetitionAnalysis struct {
	TotalAvailableSavings     float64         `json:"total_available_savings"`
	CompetingGoals            []CompetingGoal `json:"competing_goals"`
	TotalCommittedSavings     float64         `json:"total_committed_savings"`
	RemainingAvailableSavings float64         `json:"remaining_available_savings"`
	RequiredMonthlySavings    float64         `json:"required_monthly_savings"`
	IsOvercommitted           bool            `json:"is_overcommitted"`
	OvercommitmentAmount      float64         `json:"overcommitment_amount"`
}

// CategorySpend is one category's monthly average with its necessity class.
type CategorySpend struct {
	Category  string  `json:"category"`
	Monthly   float64 `json:"monthly"`
	Necessary bool    `json:"necessary"`
}

// SpendingBreakdown splits monthly spend into necessary and discretionary.
type SpendingBreakdown struct {
	NecessaryMonthly     float64         `json:"necessary_monthly"`
	DiscretionaryMonthly float64         `json:"discretionary_monthly"`
	MaxRealisticCuts     float64         `json:"max_realistic_cuts"`
	MonthsAnalyzed       int             `json:"months_analyzed"`
	Categories           []CategorySpend `json:"categories"`
}

// Feasibility grades whether the monthly gap can come out of discretionary spend.
type Feasibility struct {
	Level   string `json:"level"` // realistic, difficult, unrealistic
	Message string `json:"message"`
}

// Recommendation is one suggested spending change.
type Recommendation struct {
	Rank                    int      `json:"rank"`
	Category                string   `json:"category"`
	DisplayName             string   `json:"display_name"`
	Action                  string   `json:"action"`
	CurrentMonthlySpend     float64  `json:"current_monthly_spend"`
	ReductionPercent        float64  `json:"reduction_percent"`
	EstimatedMonthlySavings float64  `json:"estimated_monthly_savings"`
	Impact                  string   `json:"impact"`
	Merchants               []string `json:"merchants,omitempty"`
}

// DataQuality reports how much history backed the forecast.
type DataQuality struct {
	MonthsOfHistory     int  `json:"months_of_history"`
	InsufficientHistory bool `json:"insufficient_history"`
	UsedDeclaredIncome  bool `json:"used_declared_income"`
}

// GoalForecast is computed fresh per request and never stored.
type GoalForecast struct {
	GoalID            string               `json:"goal_id"`
	GoalName          string               `json:"goal_name"`
	TargetAmount      float64              `json:"target_amount"`
	CurrentSavings    float64              `json:"current_savings"`
	Deadline          time.Time            `json:"deadline"`
	AsOf              time.Time            `json:"as_of"`
	MonthsRemaining   int                  `json:"months_remaining"`
	Status            Status               `json:"status"`
	State             State                `json:"state"`
	TerminalState     TerminalState        `json:"terminal_state,omitempty"`
	ProbabilityText   string               `json:"probability_text"`
	Projection        Projection           `json:"projection"`
	ForecastPath      []PathPoint          `json:"forecast_path"`
	GapAnalysis       *GapAnalysis         `json:"gap_analysis"`
	Competition       *CompetitionAnalysis `json:"competition_analysis"`
	SpendingBreakdown *SpendingBreakdown   `json:"spending_breakdown,omitempty"`
	Feasibility       *Feasibility         `json:"feasibility,omitempty"`
	Recommendations   []Recommendation     `json:"recommendations"`
	DataQuality       DataQuality          `json:"data_quality"`
}
