package insights

import "strings"

// Config holds trigger thresholds and feed shaping. Every threshold that
// decides whether an insight fires lives here rather than inline.
type Config struct {
	DefaultTopN    int `mapstructure:"default_top_n"`
	BaselineMonths int `mapstructure:"baseline_months"`

	SpikePercent  float64 `mapstructure:"spike_percent"`
	SpikeMinDelta float64 `mapstructure:"spike_min_delta"`
	// CriticalSpikePercent escalates a spend spike to the top priority level.
	CriticalSpikePercent float64 `mapstructure:"critical_spike_percent"`

	SpendDownPercent     float64 `mapstructure:"spend_down_percent"`
	SpendDownMinBaseline float64 `mapstructure:"spend_down_min_baseline"`

	// AnomalyMultiple is applied to the median category spend over the
	// baseline months; a single spend above it is anomalous.
	AnomalyMultiple   float64 `mapstructure:"anomaly_multiple"`
	AnomalyMinSamples int     `mapstructure:"anomaly_min_samples"`
	AnomalyMinAmount  float64 `mapstructure:"anomaly_min_amount"`

	BillDueDays int `mapstructure:"bill_due_days"`

	IncomeBumpPercent  float64 `mapstructure:"income_bump_percent"`
	IncomeBumpMinDelta float64 `mapstructure:"income_bump_min_delta"`

	RecordMinMonths int `mapstructure:"record_min_months"`

	FrequentVisits int `mapstructure:"frequent_visits"`

	WeekendRatio    float64 `mapstructure:"weekend_ratio"`
	WeekendMinSpend float64 `mapstructure:"weekend_min_spend"`

	// Rolling and year-over-year comparisons use the 30 days ending at the
	// latest activity, over actionable categories only.
	RollingSpikePercent float64 `mapstructure:"rolling_spike_percent"`
	RollingWinPercent   float64 `mapstructure:"rolling_win_percent"`
	RollingMinDelta     float64 `mapstructure:"rolling_min_delta"`
	RollingMinBaseline  float64 `mapstructure:"rolling_min_baseline"`

	YearOverYearPercent     float64 `mapstructure:"year_over_year_percent"`
	YearOverYearMinBaseline float64 `mapstructure:"year_over_year_min_baseline"`

	// A savings streak counts consecutive months below the all-history
	// monthly average, ending last month, within the lookback.
	StreakMinMonths      int `mapstructure:"streak_min_months"`
	StreakLookbackMonths int `mapstructure:"streak_lookback_months"`
	StreakMinHistory     int `mapstructure:"streak_min_history"`

	MaxPerCategory int `mapstructure:"max_per_category"`
	MaxPerMerchant int `mapstructure:"max_per_merchant"`

	// NonActionable holds category fragments users cannot realistically cut.
	NonActionable []string `mapstructure:"non_actionable"`
}

// DefaultConfig returns the thresholds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultTopN:             5,
		BaselineMonths:          3,
		SpikePercent:            30,
		SpikeMinDelta:           100,
		CriticalSpikePercent:    50,
		SpendDownPercent:        20,
		SpendDownMinBaseline:    50,
		AnomalyMultiple:         3,
		AnomalyMinSamples:       3,
		AnomalyMinAmount:        50,
		BillDueDays:             7,
		IncomeBumpPercent:       10,
		IncomeBumpMinDelta:      100,
		RecordMinMonths:         3,
		FrequentVisits:          10,
		WeekendRatio:            1.5,
		WeekendMinSpend:         100,
		RollingSpikePercent:     30,
		RollingWinPercent:       20,
		RollingMinDelta:         100,
		RollingMinBaseline:      100,
		YearOverYearPercent:     25,
		YearOverYearMinBaseline: 100,
		StreakMinMonths:         2,
		StreakLookbackMonths:    6,
		StreakMinHistory:        3,
		MaxPerCategory:          2,
		MaxPerMerchant:          1,
		NonActionable: []string{
			"RENT", "MORTGAGE", "HOUSING", "UTILIT", "INSURANCE",
			"LOAN", "TAX", "TRANSFER", "HOA",
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultTopN <= 0 {
		c.DefaultTopN = def.DefaultTopN
	}
	if c.BaselineMonths <= 0 {
		c.BaselineMonths = def.BaselineMonths
	}
	if c.AnomalyMultiple <= 0 {
		c.AnomalyMultiple = def.AnomalyMultiple
	}
	if c.AnomalyMinSamples <= 0 {
		c.AnomalyMinSamples = def.AnomalyMinSamples
	}
	if c.RecordMinMonths <= 0 {
		c.RecordMinMonths = def.RecordMinMonths
	}
	if c.StreakMinMonths <= 0 {
		c.StreakMinMonths = def.StreakMinMonths
	}
	if c.StreakLookbackMonths <= 0 {
		c.StreakLookbackMonths = def.StreakLookbackMonths
	}
	if c.StreakMinHistory <= 0 {
		c.StreakMinHistory = def.StreakMinHistory
	}
	if c.MaxPerCategory <= 0 {
		c.MaxPerCategory = def.MaxPerCategory
	}
	if c.MaxPerMerchant <= 0 {
		c.MaxPerMerchant = def.MaxPerMerchant
	}
	if c.NonActionable == nil {
		c.NonActionable = def.NonActionable
	}
	return c
}

// Actionable reports whether spend in category is something a user can cut.
// Merchant-level insights carry no category and are always actionable.
func (c Config) Actionable(category string) bool {
	if category == "" {
		return true
	}
	upper := strings.ToUpper(category)
	for _, frag := range c.NonActionable {
		if strings.Contains(upper, strings.ToUpper(frag)) {
			return false
		}
	}
	return true
}
