package recurring

// Frequency is a known billing period.
type Frequency string

const (
	FrequencyUnknown   Frequency = ""
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiWeekly  Frequency = "bi-weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

type frequencyBand struct {
	freq    Frequency
	days    int     // nominal period used for next-charge prediction
	min     float64 // inclusive bounds on the median gap
	max     float64
	monthly float64 // charges per month
}

var frequencyBands = []frequencyBand{
	{FrequencyWeekly, 7, 6, 8, 4.33},
	{FrequencyBiWeekly, 14, 13, 16, 2.165},
	{FrequencyMonthly, 30, 27, 33, 1},
	{FrequencyQuarterly, 91, 85, 97, 1.0 / 3},
	{FrequencyAnnual, 365, 355, 375, 1.0 / 12},
}

// classifyFrequency matches a median gap in days against the known periods.
func classifyFrequency(medianGap float64) (frequencyBand, bool) {
	for _, b := range frequencyBands {
		if medianGap >= b.min && medianGap <= b.max {
			return b, true
		}
	}
	return frequencyBand{}, false
}

// MonthlyMultiplier converts one charge at f into a monthly figure. Unknown is 0.
func MonthlyMultiplier(f Frequency) float64 {
	for _, b := range frequencyBands {
		if b.freq == f {
			return b.monthly
		}
	}
	return 0
}
