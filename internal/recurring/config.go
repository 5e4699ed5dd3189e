package recurring

// Config holds the detector's tunable thresholds. The gray-charge and
// price-increase values are product decisions and are loaded from config.
type Config struct {
	// MinCharges is the fewest charges a merchant needs before periodicity is inferred.
	MinCharges int `mapstructure:"min_charges"`
	// ConfidenceThreshold is the lowest confidence reported as a subscription.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	// IntervalWeight is the share of confidence taken from interval regularity;
	// the rest comes from amount consistency.
	IntervalWeight float64 `mapstructure:"interval_weight"`

	// PriceIncreaseThreshold is the relative jump (0.10 = 10%) of the latest
	// charge over the earlier average that counts as a price increase.
	PriceIncreaseThreshold float64 `mapstructure:"price_increase_threshold"`

	GrayMinAmount     float64  `mapstructure:"gray_min_amount"`
	GrayMaxAmount     float64  `mapstructure:"gray_max_amount"`
	GrayMinConfidence float64  `mapstructure:"gray_min_confidence"`
	GrayMaxCharges    int      `mapstructure:"gray_max_charges"`
	GrayCategories    []string `mapstructure:"gray_categories"`
	KnownServices     []string `mapstructure:"known_services"`

	// TrialMaxAmount is the largest first charge still treated as a free or token trial.
	TrialMaxAmount float64 `mapstructure:"trial_max_amount"`
	// TrialRatio flags a trial when the first charge is below this share of the steady amount.
	TrialRatio float64 `mapstructure:"trial_ratio"`
}

// DefaultConfig returns the thresholds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MinCharges:             2,
		ConfidenceThreshold:    0.6,
		IntervalWeight:         0.6,
		PriceIncreaseThreshold: 0.10,
		GrayMinAmount:          1,
		GrayMaxAmount:          25,
		GrayMinConfidence:      0.6,
		GrayMaxCharges:         3,
		GrayCategories: []string{
			"GENERAL_SERVICES",
			"ENTERTAINMENT",
			"SUBSCRIPTION",
			"SOFTWARE",
			"OTHER",
		},
		KnownServices: []string{
			"netflix", "spotify", "apple", "amazon prime", "hulu", "disney",
			"youtube", "google one", "icloud", "microsoft", "adobe", "dropbox",
			"gym", "fitness", "hbo", "peacock", "paramount", "audible",
			"kindle", "crunchyroll", "linkedin", "github", "slack", "zoom",
		},
		TrialMaxAmount: 1,
		TrialRatio:     0.5,
	}
}
