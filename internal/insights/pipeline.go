// Package insights runs independent trigger detectors over a transaction
// snapshot and ranks what they find into an explainable feed.
package insights

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

// Pipeline ranks insights. It is safe for concurrent use.
type Pipeline struct {
	cfg      Config
	detector *recurring.Detector
	triggers []Trigger
	now      func() time.Time
}

// NewPipeline creates a pipeline with the default trigger set. A nil clock uses time.Now.
func NewPipeline(cfg Config, detector *recurring.Detector, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if detector == nil {
		detector = recurring.NewDetector(recurring.DefaultConfig())
	}
	return &Pipeline{cfg: cfg.withDefaults(), detector: detector, triggers: DefaultTriggers(), now: now}
}

// WithTriggers replaces the trigger set.
func (p *Pipeline) WithTriggers(triggers ...Trigger) *Pipeline {
	cp := *p
	cp.triggers = triggers
	return &cp
}

// RankInsights validates its inputs and returns the ranked feed. When subs
// is nil recurring charges are detected from txns.
func (p *Pipeline) RankInsights(ctx context.Context, txns []model.Transaction, subs *recurring.Result, goals []model.Goal, topN, buffer int) ([]Insight, error) {
	if err := model.ValidateTransactions(txns); err != nil {
		return nil, err
	}
	normalized := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		g = g.Normalize()
		if err := g.Validate(); err != nil {
			return nil, err
		}
		normalized = append(normalized, g)
	}

	agg := aggregate.New(txns)
	if subs == nil {
		subs = p.detector.DetectAggregate(ctx, agg)
	}
	return p.Rank(ctx, agg, subs, normalized, topN, buffer)
}

// Rank fans the triggers out, waits for all of them and returns the top topN
// items followed by up to buffer reserve items. A non-positive topN uses the
// configured default.
func (p *Pipeline) Rank(ctx context.Context, agg *aggregate.Aggregator, subs *recurring.Result, goals []model.Goal, topN, buffer int) ([]Insight, error) {
	log := logger.Component(ctx, "Insights")
	if topN <= 0 {
		topN = p.cfg.DefaultTopN
	}
	if buffer < 0 {
		buffer = 0
	}

	in := &Input{Agg: agg, Subs: subs, Goals: goals, AsOf: model.Day(p.now())}
	candidates := make([]*Candidate, len(p.triggers))

	g, gctx := errgroup.WithContext(ctx)
	for i, tr := range p.triggers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = tr.Detect(p.cfg, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]Insight, 0, len(candidates))
	emitted := 0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		emitted++
		if !p.cfg.Actionable(c.Category) {
			log.Debug().Str("trigger", string(c.Type)).Str("category", c.Category).Msg("dropping non-actionable insight")
			continue
		}
		items = append(items, render(c, score(c)))
	}

	sortInsights(items)
	items = diversify(items, p.cfg.MaxPerCategory, p.cfg.MaxPerMerchant)
	items = promoteWin(items, topN)

	if limit := topN + buffer; len(items) > limit {
		items = items[:limit]
	}
	for i := topN; i < len(items); i++ {
		items[i].IsReserve = true
	}

	log.Debug().
		Int("triggers", len(p.triggers)).
		Int("candidates", emitted).
		Int("returned", len(items)).
		Msg("insights ranked")
	return items, nil
}
