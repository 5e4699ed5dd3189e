package insights

import (
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

// Kind is the user-facing class of an insight.
type Kind string

const (
	KindWin     Kind = "win"
	KindAlert   Kind = "alert"
	KindAnomaly Kind = "anomaly"
)

// TriggerType names the detector that produced an insight.
type TriggerType string

const (
	TriggerSpendSpike       TriggerType = "spend_spike"
	TriggerSpendDown        TriggerType = "spend_down"
	TriggerAnomalyCharge    TriggerType = "anomaly_charge"
	TriggerPriceIncrease    TriggerType = "price_increase"
	TriggerBillDueSoon      TriggerType = "bill_due_soon"
	TriggerGrayCharge       TriggerType = "gray_charge"
	TriggerIncomeBump       TriggerType = "income_bump"
	TriggerSavingsRecord    TriggerType = "savings_record"
	TriggerFrequentMerchant TriggerType = "frequent_merchant"
	TriggerWeekendHeavy     TriggerType = "weekend_heavy"
	TriggerGoalBehind       TriggerType = "goal_behind"
	TriggerRolling30Day     TriggerType = "rolling_30_day"
	TriggerYearOverYear     TriggerType = "year_over_year"
	TriggerSavingsStreak    TriggerType = "savings_streak"
)

// Priority levels; lower is more urgent.
const (
	LevelCritical = 1
	LevelHigh     = 2
	LevelMedium   = 3
	LevelLow      = 4
)

// SupportingTransaction is one ledger entry behind an insight's figure.
type SupportingTransaction struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
}

// Details is the explainability block attached to every insight.
//
// Total is the signed sum of Transactions. The headline quotes its absolute
// value and RawValues["amount"] holds the same figure. Other raw values are
// comparison inputs: their keys start with baseline_ or threshold_, or end in
// a unit suffix (_usd, _pct, _days, _months, _count, _samples, _multiple, _ratio).
type Details struct {
	CalculationMethod string                  `json:"calculation_method"`
	RawValues         map[string]float64      `json:"raw_values"`
	ComparisonContext string                  `json:"comparison_context"`
	Transactions      []SupportingTransaction `json:"transactions"`
	Total             float64                 `json:"total"`
}

// Insight is one ranked, explained observation.
type Insight struct {
	ID            string      `json:"id"`
	Kind          Kind        `json:"category"`
	TriggerType   TriggerType `json:"trigger_type"`
	Headline      string      `json:"headline"`
	Narrative     string      `json:"narrative"`
	PriorityScore float64     `json:"priority_score"`
	PriorityLevel int         `json:"priority_level"`
	SpendCategory string      `json:"spend_category,omitempty"`
	MerchantKey   string      `json:"merchant_key,omitempty"`
	Details       Details     `json:"details"`
	// IsReserve marks buffer items revealed after a visible item is dismissed.
	IsReserve bool `json:"is_reserve"`
}

// Candidate is a trigger's raw output before scoring and rendering.
type Candidate struct {
	Type      TriggerType
	Kind      Kind
	Level     int
	Category  string
	Merchant  string
	Headline  string
	Narrative string
	Method    string
	Context   string
	RawValues map[string]float64
	// Supporting are the transactions whose signed sum is the quoted amount.
	Supporting []model.Transaction

	// Magnitude inputs.
	Percent float64
	Dollars float64
	Visits  int
	Record  bool
}

// Input is the read-only view every trigger inspects.
type Input struct {
	Agg   *aggregate.Aggregator
	Subs  *recurring.Result
	Goals []model.Goal
	AsOf  time.Time
}

// Trigger is an independent detector emitting at most one candidate.
type Trigger struct {
	Type   TriggerType
	Detect func(cfg Config, in *Input) *Candidate
}
