package service

import (
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

// ComputeRecurringChargesRequest runs over the caller's full ledger.
type ComputeRecurringChargesRequest struct{}

// ComputeRecurringChargesResponse lists detected subscriptions, largest monthly cost first.
type ComputeRecurringChargesResponse struct {
	Subscriptions []recurring.RecurringCharge `json:"subscriptions"`
	Summary       recurring.Summary           `json:"summary"`
}

// ForecastGoalRequest names one of the caller's goals.
type ForecastGoalRequest struct {
	GoalID string `json:"goal_id"`
}

// ForecastGoalResponse carries the goal's projection against its siblings.
type ForecastGoalResponse struct {
	Forecast *forecast.GoalForecast `json:"forecast"`
}

// RankInsightsRequest sizes the feed. Zero TopN uses the configured default;
// TopN + Buffer may not exceed 50.
type RankInsightsRequest struct {
	TopN   int32 `json:"top_n"`
	Buffer int32 `json:"buffer"`
}

// RankInsightsResponse is the ranked feed, visible items followed by reserve items.
type RankInsightsResponse struct {
	Insights []insights.Insight `json:"insights"`
	// Visible counts the leading non-reserve items.
	Visible int `json:"visible"`
}

// InvestmentCapacityRequest carries the caller's monthly income. Zero falls
// back to a goal's declared income, then to observed deposits.
type InvestmentCapacityRequest struct {
	MonthlyIncome float64 `json:"monthly_income"`
	Gross         bool    `json:"is_gross_income"`
}

// InvestmentCapacityResponse is the monthly surplus left after spending and goals.
type InvestmentCapacityResponse struct {
	Capacity *forecast.InvestmentCapacity `json:"capacity"`
}
