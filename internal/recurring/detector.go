// Package recurring infers recurring billing relationships ("subscriptions")
// from transaction history alone and flags the ones that need attention.
package recurring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/stats"
)

// Charge is one point of a merchant's charge series.
type Charge struct {
	TransactionID string    `json:"transaction_id"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
}

// PriceIncrease records a jump in the latest charge over the earlier average.
type PriceIncrease struct {
	OldPrice      float64   `json:"old_price"`
	NewPrice      float64   `json:"new_price"`
	PercentChange float64   `json:"percent_change"`
	ChangeDate    time.Time `json:"change_date"`
}

// RecurringCharge describes one merchant inferred to bill periodically.
// Amounts are positive spend magnitudes.
type RecurringCharge struct {
	Merchant           string         `json:"merchant"`
	MerchantKey        string         `json:"merchant_key"`
	Category           string         `json:"category"`
	Frequency          Frequency      `json:"frequency"`
	FrequencyDays      int            `json:"frequency_days"`
	MedianIntervalDays float64        `json:"median_interval_days"`
	IntervalRegularity float64        `json:"interval_regularity"`
	AverageAmount      float64        `json:"average_amount"`
	MinAmount          float64        `json:"min_amount"`
	MaxAmount          float64        `json:"max_amount"`
	LatestAmount       float64        `json:"latest_amount"`
	AmountConsistency  float64        `json:"amount_consistency"`
	Confidence         float64        `json:"confidence"`
	ChargeCount        int            `json:"charge_count"`
	LastChargeDate     time.Time      `json:"last_charge_date"`
	NextChargeDate     *time.Time     `json:"next_charge_date"`
	MonthlyCost        float64        `json:"monthly_cost"`
	AnnualCost         float64        `json:"annual_cost"`
	IsGrayCharge       bool           `json:"is_gray_charge"`
	HasPriceIncrease   bool           `json:"has_price_increase"`
	IsTrialConversion  bool           `json:"is_trial_conversion"`
	NeedsAttention     bool           `json:"needs_attention"`
	PriceIncrease      *PriceIncrease `json:"price_increase,omitempty"`
	Charges            []Charge       `json:"charges"`
}

// Summary totals a detection run.
type Summary struct {
	Count                int     `json:"count"`
	TotalMonthlyCost     float64 `json:"total_monthly_cost"`
	TotalAnnualCost      float64 `json:"total_annual_cost"`
	GrayChargeCount      int     `json:"gray_charge_count"`
	PriceIncreaseCount   int     `json:"price_increase_count"`
	TrialConversionCount int     `json:"trial_conversion_count"`
}

// Result is the output of one detection run.
type Result struct {
	Subscriptions []RecurringCharge `json:"subscriptions"`
	Summary       Summary           `json:"summary"`
}

// Detector finds recurring charges. It holds no state between runs.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector; zero-valued limits fall back to defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MinCharges < 2 {
		cfg.MinCharges = def.MinCharges
	}
	if cfg.IntervalWeight <= 0 || cfg.IntervalWeight > 1 {
		cfg.IntervalWeight = def.IntervalWeight
	}
	if cfg.TrialRatio <= 0 {
		cfg.TrialRatio = def.TrialRatio
	}
	return &Detector{cfg: cfg}
}

// Detect validates the corpus and runs detection over it.
func (d *Detector) Detect(ctx context.Context, txns []model.Transaction) (*Result, error) {
	if err := model.ValidateTransactions(txns); err != nil {
		return nil, err
	}
	return d.DetectAggregate(ctx, aggregate.New(txns)), nil
}

// DetectAggregate runs detection over an already-built aggregator.
func (d *Detector) DetectAggregate(ctx context.Context, agg *aggregate.Aggregator) *Result {
	log := logger.Component(ctx, "Recurring")

	series := agg.SpendsByMerchant()
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := &Result{Subscriptions: []RecurringCharge{}}
	for _, key := range keys {
		rc, err := d.analyze(key, series[key])
		if err != nil {
			log.Debug().Str("merchant", key).Err(err).Msg("skipping merchant")
			continue
		}
		if rc.Confidence < d.cfg.ConfidenceThreshold {
			log.Debug().Str("merchant", key).Float64("confidence", rc.Confidence).Msg("below confidence threshold")
			continue
		}
		result.Subscriptions = append(result.Subscriptions, *rc)
	}

	sort.SliceStable(result.Subscriptions, func(i, j int) bool {
		a, b := result.Subscriptions[i], result.Subscriptions[j]
		if a.MonthlyCost != b.MonthlyCost {
			return a.MonthlyCost > b.MonthlyCost
		}
		return a.MerchantKey < b.MerchantKey
	})
	result.Summary = summarize(result.Subscriptions)

	log.Debug().Int("merchants", len(keys)).Int("subscriptions", result.Summary.Count).Msg("detection complete")
	return result
}

func (d *Detector) analyze(key string, txns []model.Transaction) (*RecurringCharge, error) {
	if len(txns) < d.cfg.MinCharges {
		return nil, &model.AnalysisError{
			Code:    model.ErrInsufficientData,
			Field:   key,
			Message: fmt.Sprintf("%d charge(s), need %d", len(txns), d.cfg.MinCharges),
		}
	}

	charges := make([]Charge, len(txns))
	for i, t := range txns {
		charges[i] = Charge{TransactionID: t.ID, Date: model.Day(t.Date), Amount: t.SpendAmount()}
	}

	gaps := make([]float64, 0, len(charges)-1)
	for i := 1; i < len(charges); i++ {
		gaps = append(gaps, charges[i].Date.Sub(charges[i-1].Date).Hours()/24)
	}

	amounts := make([]float64, len(charges))
	for i, c := range charges {
		amounts[i] = c.Amount
	}

	rc := &RecurringCharge{
		Merchant:    aggregate.DisplayName(key),
		MerchantKey: key,
		Category:    mostCommonCategory(txns),
		ChargeCount: len(charges),
		Charges:     charges,
	}

	rc.IsTrialConversion = d.isTrialConversion(amounts)
	steady := amounts
	if rc.IsTrialConversion {
		steady = amounts[1:]
	}

	rc.MedianIntervalDays = stats.Round(stats.Median(gaps), 1)
	rc.IntervalRegularity = stats.Round(stats.Consistency(stats.CV(gaps)), 3)
	rc.AmountConsistency = stats.Round(stats.Consistency(stats.CV(steady)), 3)
	rc.Confidence = stats.Round(stats.Clamp01(d.cfg.IntervalWeight*rc.IntervalRegularity+(1-d.cfg.IntervalWeight)*rc.AmountConsistency), 3)

	rc.AverageAmount = money.Div(money.Sum(steady...), float64(len(steady)))
	rc.MinAmount, rc.MaxAmount = minMax(steady)
	last := charges[len(charges)-1]
	rc.LatestAmount = money.Round(last.Amount)
	rc.LastChargeDate = last.Date

	if band, ok := classifyFrequency(stats.Median(gaps)); ok {
		rc.Frequency = band.freq
		rc.FrequencyDays = band.days
		next := last.Date.AddDate(0, 0, band.days)
		rc.NextChargeDate = &next
		rc.MonthlyCost = money.Round(rc.LatestAmount * band.monthly)
		rc.AnnualCost = money.Round(rc.MonthlyCost * 12)
	}

	if pi := d.priceIncrease(steady, last); pi != nil {
		rc.HasPriceIncrease = true
		rc.PriceIncrease = pi
	}
	rc.IsGrayCharge = d.isGrayCharge(rc)
	rc.NeedsAttention = rc.IsGrayCharge || rc.HasPriceIncrease || rc.IsTrialConversion
	return rc, nil
}

// priceIncrease compares the latest charge with the mean of the earlier steady charges.
func (d *Detector) priceIncrease(steady []float64, last Charge) *PriceIncrease {
	if len(steady) < 2 {
		return nil
	}
	previous := money.Div(money.Sum(steady[:len(steady)-1]...), float64(len(steady)-1))
	if previous <= 0 {
		return nil
	}
	change := (last.Amount - previous) / previous
	if change <= d.cfg.PriceIncreaseThreshold {
		return nil
	}
	return &PriceIncrease{
		OldPrice:      previous,
		NewPrice:      money.Round(last.Amount),
		PercentChange: stats.Round(change*100, 1),
		ChangeDate:    last.Date,
	}
}

// isTrialConversion flags a trivial first charge followed by a materially larger steady amount.
func (d *Detector) isTrialConversion(amounts []float64) bool {
	if len(amounts) < 2 {
		return false
	}
	first := amounts[0]
	steady := stats.Median(amounts[1:])
	if steady <= d.cfg.TrialMaxAmount {
		return false
	}
	return first <= d.cfg.TrialMaxAmount || first < d.cfg.TrialRatio*steady
}

// isGrayCharge flags small, confidently recurring charges from merchants the
// user is unlikely to be watching: not a well-known service, and either in a
// low-attention category or only seen a few times.
func (d *Detector) isGrayCharge(rc *RecurringCharge) bool {
	if rc.Confidence < d.cfg.GrayMinConfidence {
		return false
	}
	if rc.LatestAmount < d.cfg.GrayMinAmount || rc.LatestAmount > d.cfg.GrayMaxAmount {
		return false
	}
	if d.isKnownService(rc.MerchantKey) {
		return false
	}
	if rc.ChargeCount <= d.cfg.GrayMaxCharges {
		return true
	}
	for _, c := range d.cfg.GrayCategories {
		if strings.EqualFold(c, rc.Category) {
			return true
		}
	}
	return false
}

func (d *Detector) isKnownService(key string) bool {
	for _, s := range d.cfg.KnownServices {
		if s != "" && strings.Contains(key, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func summarize(subs []RecurringCharge) Summary {
	s := Summary{Count: len(subs)}
	monthly := make([]float64, 0, len(subs))
	for _, rc := range subs {
		monthly = append(monthly, rc.MonthlyCost)
		if rc.IsGrayCharge {
			s.GrayChargeCount++
		}
		if rc.HasPriceIncrease {
			s.PriceIncreaseCount++
		}
		if rc.IsTrialConversion {
			s.TrialConversionCount++
		}
	}
	s.TotalMonthlyCost = money.Sum(monthly...)
	s.TotalAnnualCost = money.Round(s.TotalMonthlyCost * 12)
	return s
}

func mostCommonCategory(txns []model.Transaction) string {
	counts := make(map[string]int)
	best, bestCount := model.OtherCategory, 0
	for _, t := range txns {
		c := t.PrimaryCategory()
		counts[c]++
		if counts[c] > bestCount || (counts[c] == bestCount && c < best) {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return money.Round(lo), money.Round(hi)
}
