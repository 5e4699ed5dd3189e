package forecast

// Config holds the forecast engine's design parameters.
type Config struct {
	// LookbackMonths is how many complete months of history feed the savings rate.
	LookbackMonths int `mapstructure:"lookback_months"`

	// Spreads are fractions of the expected rate; they widen with the
	// volatility of the monthly net savings series.
	FixedOptimisticSpread     float64 `mapstructure:"fixed_optimistic_spread"`
	FixedPessimisticSpread    float64 `mapstructure:"fixed_pessimistic_spread"`
	VariableOptimisticSpread  float64 `mapstructure:"variable_optimistic_spread"`
	VariablePessimisticSpread float64 `mapstructure:"variable_pessimistic_spread"`
	// VolatilityCap bounds the coefficient of variation used to scale spreads.
	VolatilityCap float64 `mapstructure:"volatility_cap"`

	// Status bands on projected/target.
	VeryLikelyRatio float64 `mapstructure:"very_likely_ratio"`
	LikelyRatio     float64 `mapstructure:"likely_ratio"`
	PossibleRatio   float64 `mapstructure:"possible_ratio"`

	MaxRecommendations int     `mapstructure:"max_recommendations"`
	MinCategorySpend   float64 `mapstructure:"min_category_spend"`
	// DiscretionaryCutShare is the share of discretionary spend considered realistically cuttable.
	DiscretionaryCutShare float64 `mapstructure:"discretionary_cut_share"`

	// CapacityLookbackMonths is the spend history behind investment capacity.
	CapacityLookbackMonths int `mapstructure:"capacity_lookback_months"`
	// GrossTaxRate converts a declared gross income to take-home.
	GrossTaxRate float64 `mapstructure:"gross_tax_rate"`
}

// DefaultConfig returns the parameters used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		LookbackMonths:            6,
		FixedOptimisticSpread:     0.10,
		FixedPessimisticSpread:    0.10,
		VariableOptimisticSpread:  0.20,
		VariablePessimisticSpread: 0.25,
		VolatilityCap:             0.5,
		VeryLikelyRatio:           1.0,
		LikelyRatio:               0.8,
		PossibleRatio:             0.5,
		MaxRecommendations:        3,
		MinCategorySpend:          10,
		DiscretionaryCutShare:     0.7,
		CapacityLookbackMonths:    3,
		GrossTaxRate:              0.25,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LookbackMonths <= 0 {
		c.LookbackMonths = def.LookbackMonths
	}
	if c.VeryLikelyRatio <= 0 {
		c.VeryLikelyRatio = def.VeryLikelyRatio
	}
	if c.LikelyRatio <= 0 {
		c.LikelyRatio = def.LikelyRatio
	}
	if c.PossibleRatio <= 0 {
		c.PossibleRatio = def.PossibleRatio
	}
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = def.MaxRecommendations
	}
	if c.DiscretionaryCutShare <= 0 {
		c.DiscretionaryCutShare = def.DiscretionaryCutShare
	}
	if c.CapacityLookbackMonths <= 0 {
		c.CapacityLookbackMonths = def.CapacityLookbackMonths
	}
	if c.GrossTaxRate < 0 || c.GrossTaxRate >= 1 {
		c.GrossTaxRate = def.GrossTaxRate
	}
	return c
}
