// Package notify pushes urgent insights to downstream consumers.
package notify

//go:generate mockgen -source=publisher.go -destination=publisher_mock.go -package=notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
)

// Publisher delivers a single alert event.
type Publisher interface {
	Publish(ctx context.Context, event AlertEvent) error
	Close() error
}

// LogPublisher writes events to the log instead of a broker. Used when no
// broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: logger.WithComponent(log, "notify")}
}

func (p *LogPublisher) Publish(_ context.Context, event AlertEvent) error {
	p.log.Info().
		Str("event_id", event.EventID).
		Str("user_id", event.UserID).
		Str("trigger_type", string(event.TriggerType)).
		Int("priority_level", event.PriorityLevel).
		Str("headline", event.Headline).
		Msg("alert")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Notifier filters a ranked feed down to urgent alerts and publishes them.
type Notifier struct {
	publisher Publisher
	retry     RetryConfig
	maxLevel  int
	now       func() time.Time
}

// NewNotifier publishes alerts at or above maxLevel (LevelHigh pushes
// critical and high items).
func NewNotifier(publisher Publisher, maxLevel int, retry RetryConfig) *Notifier {
	if maxLevel < insights.LevelCritical {
		maxLevel = insights.LevelHigh
	}
	return &Notifier{
		publisher: publisher,
		retry:     retry,
		maxLevel:  maxLevel,
		now:       time.Now,
	}
}

// Notify publishes every notifiable insight and returns how many were sent.
// A failed delivery is logged and does not stop the rest.
func (n *Notifier) Notify(ctx context.Context, userID string, feed []insights.Insight) int {
	log := logger.Component(ctx, "notify")
	sent := 0
	for _, ins := range feed {
		if !Notifiable(ins, n.maxLevel) {
			continue
		}
		event := NewAlertEvent(userID, ins, n.now())
		err := WithRetry(ctx, n.retry, func(ctx context.Context) error {
			return n.publisher.Publish(ctx, event)
		})
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", userID).
				Str("insight_id", ins.ID).
				Msg("failed to publish alert")
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Debug().Str("user_id", userID).Int("sent", sent).Msg("published alerts")
	}
	return sent
}
