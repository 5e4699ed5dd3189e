package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/castlemilk/pfinance/analytics/internal/insights"
)

var eventNamespace = uuid.MustParse("9a0c3f52-5d8e-4b7a-a1f0-3c6e2b8d4f17")

// AlertEvent is the message published for an urgent insight.
type AlertEvent struct {
	EventID       string               `json:"event_id"`
	UserID        string               `json:"user_id"`
	InsightID     string               `json:"insight_id"`
	Kind          insights.Kind        `json:"category"`
	TriggerType   insights.TriggerType `json:"trigger_type"`
	PriorityLevel int                  `json:"priority_level"`
	Headline      string               `json:"headline"`
	Narrative     string               `json:"narrative"`
	Amount        float64              `json:"amount,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewAlertEvent builds the event for ins. The event ID is derived from the
// user and insight so a redelivered alert keeps its identity.
func NewAlertEvent(userID string, ins insights.Insight, now time.Time) AlertEvent {
	return AlertEvent{
		EventID:       uuid.NewSHA1(eventNamespace, []byte(userID+"|"+ins.ID)).String(),
		UserID:        userID,
		InsightID:     ins.ID,
		Kind:          ins.Kind,
		TriggerType:   ins.TriggerType,
		PriorityLevel: ins.PriorityLevel,
		Headline:      ins.Headline,
		Narrative:     ins.Narrative,
		Amount:        ins.Details.RawValues["amount"],
		CreatedAt:     now.UTC(),
	}
}

// Notifiable reports whether ins is urgent enough to push. Reserve items and
// wins are never pushed.
func Notifiable(ins insights.Insight, maxLevel int) bool {
	if ins.IsReserve || ins.Kind == insights.KindWin {
		return false
	}
	return ins.PriorityLevel >= insights.LevelCritical && ins.PriorityLevel <= maxLevel
}
