// Package demo generates a realistic, reproducible ledger for trying the
// analytics end to end without real bank data.
package demo

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/snapshot"
)

// DefaultSeed keeps generated ledgers stable across runs.
const DefaultSeed = 42

// Options controls the generated window.
type Options struct {
	Seed   int64
	Months int
	// End is the last day of the ledger; zero means today.
	End time.Time
}

type frequency int

const (
	monthly frequency = iota
	weekly
	occasional
)

type template struct {
	merchant  string
	minAmount float64
	maxAmount float64
	category  string
	channel   string
	frequency frequency
}

var recurringTemplates = []template{
	// Monthly bills
	{"Rent payment", 2200, 2200, "RENT_AND_UTILITIES", "other", monthly},
	{"Electricity bill", 120, 220, "RENT_AND_UTILITIES", "online", monthly},
	{"Water bill", 45, 75, "RENT_AND_UTILITIES", "online", monthly},
	{"Internet bill", 89, 89, "RENT_AND_UTILITIES", "online", monthly},
	{"Phone bill", 65, 85, "RENT_AND_UTILITIES", "online", monthly},
	{"Car insurance", 145, 145, "TRANSPORTATION", "online", monthly},
	{"Netflix", 22.99, 22.99, "ENTERTAINMENT", "online", monthly},
	{"Spotify", 12.99, 12.99, "ENTERTAINMENT", "online", monthly},
	{"Gym membership", 65, 65, "PERSONAL_CARE", "in store", monthly},
	{"Home insurance", 125, 125, "RENT_AND_UTILITIES", "online", monthly},

	// Weekly
	{"Grocery shopping", 80, 200, "FOOD_AND_DRINK", "in store", weekly},
	{"Petrol", 55, 110, "TRANSPORTATION", "in store", weekly},
}

var occasionalTemplates = []template{
	{"Coffee", 4.5, 8, "FOOD_AND_DRINK", "in store", occasional},
	{"Lunch out", 15, 35, "FOOD_AND_DRINK", "in store", occasional},
	{"Dinner at restaurant", 45, 120, "FOOD_AND_DRINK", "in store", occasional},
	{"Takeaway", 20, 55, "FOOD_AND_DRINK", "online", occasional},
	{"Uber ride", 12, 45, "TRANSPORTATION", "online", occasional},
	{"Parking", 5, 20, "TRANSPORTATION", "in store", occasional},
	{"Train ticket", 8, 25, "TRANSPORTATION", "in store", occasional},
	{"Movie tickets", 18, 40, "ENTERTAINMENT", "in store", occasional},
	{"Concert tickets", 60, 180, "ENTERTAINMENT", "online", occasional},
	{"Books", 15, 45, "ENTERTAINMENT", "in store", occasional},
	{"Clothing", 40, 200, "GENERAL_MERCHANDISE", "in store", occasional},
	{"Electronics", 50, 350, "GENERAL_MERCHANDISE", "online", occasional},
	{"Amazon purchase", 20, 150, "GENERAL_MERCHANDISE", "online", occasional},
	{"Pharmacy", 10, 60, "MEDICAL", "in store", occasional},
	{"Doctor visit", 50, 150, "MEDICAL", "in store", occasional},
	{"Online course", 30, 200, "GENERAL_SERVICES", "online", occasional},
	{"Weekend trip accommodation", 150, 400, "TRAVEL", "online", occasional},
	{"Flight tickets", 200, 800, "TRAVEL", "online", occasional},
}

type generator struct {
	rng        *rand.Rand
	start, end time.Time
	txns       []model.Transaction
}

// Generate builds a ledger covering opts.Months months up to opts.End plus
// three savings goals due six months later. The same options always yield
// the same snapshot.
func Generate(opts Options) *snapshot.Snapshot {
	if opts.Months < 1 {
		opts.Months = 6
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now()
	}
	end = model.Day(end)

	g := &generator{
		rng:   rand.New(rand.NewSource(opts.Seed)),
		start: end.AddDate(0, -opts.Months, 0),
		end:   end,
	}
	g.recurring(opts.Months)
	g.occasional()
	g.incomes(opts.Months)

	slices.SortStableFunc(g.txns, func(a, b model.Transaction) int {
		return a.Date.Compare(b.Date)
	})
	for i := range g.txns {
		g.txns[i].ID = fmt.Sprintf("demo-%05d", i+1)
	}

	return &snapshot.Snapshot{
		Transactions: g.txns,
		Goals:        goals(end),
	}
}

func (g *generator) add(date time.Time, amount float64, tmpl template) {
	if date.Before(g.start) || date.After(g.end) {
		return
	}
	g.txns = append(g.txns, model.Transaction{
		Date:       date,
		Amount:     amount,
		Merchant:   tmpl.merchant,
		Categories: []string{tmpl.category},
		Channel:    tmpl.channel,
	})
}

func (g *generator) recurring(months int) {
	for _, tmpl := range recurringTemplates {
		switch tmpl.frequency {
		case monthly:
			for m := 0; m < months; m++ {
				// Metered bills drift by a few days; fixed charges land on the same day.
				jitter := 0
				if tmpl.minAmount != tmpl.maxAmount {
					jitter = g.rng.Intn(5)
				}
				g.add(g.start.AddDate(0, m, jitter), -g.amount(tmpl), tmpl)
			}
		case weekly:
			for d := g.start; d.Before(g.end); d = d.AddDate(0, 0, 6+g.rng.Intn(3)) {
				g.add(d, -g.amount(tmpl), tmpl)
			}
		}
	}
}

func (g *generator) occasional() {
	for d := g.start; d.Before(g.end); d = d.AddDate(0, 0, 1) {
		n := 1 + g.rng.Intn(3)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			n += 1 + g.rng.Intn(2)
		}
		// Holiday season
		if d.Month() == time.December && d.Day() >= 15 {
			n += 2 + g.rng.Intn(3)
		}

		for i := 0; i < n; i++ {
			tmpl := occasionalTemplates[g.rng.Intn(len(occasionalTemplates))]
			amount := g.amount(tmpl)
			// Roughly one purchase in fifty is unusually large.
			if g.rng.Intn(50) == 0 {
				amount = round2(amount * (3 + g.rng.Float64()*2))
			}
			g.add(d, -amount, tmpl)
		}
	}
}

func (g *generator) incomes(months int) {
	salary := template{merchant: "Acme Corp Payroll", category: "INCOME", channel: "other"}
	for m := 0; m <= months; m++ {
		payday := time.Date(g.start.Year(), g.start.Month()+time.Month(m), 15, 0, 0, 0, 0, time.UTC)
		g.add(payday, round2(8400+g.rng.Float64()*200), salary)
	}

	freelance := template{merchant: "Freelance project", category: "INCOME", channel: "online"}
	for m := 1; m < months; m += 2 {
		date := g.start.AddDate(0, m, 10+g.rng.Intn(10))
		g.add(date, round2(800+g.rng.Float64()*1200), freelance)
	}

	dividends := template{merchant: "Investment dividends", category: "INCOME", channel: "other"}
	for m := 0; m < months; m += 3 {
		g.add(g.start.AddDate(0, m, 24), round2(200+g.rng.Float64()*150), dividends)
	}
}

func (g *generator) amount(tmpl template) float64 {
	return round2(tmpl.minAmount + g.rng.Float64()*(tmpl.maxAmount-tmpl.minAmount))
}

func goals(end time.Time) []model.Goal {
	deadline := end.AddDate(0, 6, 0)
	return []model.Goal{
		{ID: "emergency-fund", Name: "Emergency Fund", TargetAmount: 20000, CurrentSavings: 12500, Deadline: deadline, Priority: model.PriorityHigh, MonthlyIncome: 8500, IncomeType: model.IncomeFixed},
		{ID: "japan-trip", Name: "Japan Trip", TargetAmount: 5000, CurrentSavings: 3200, Deadline: deadline, Priority: model.PriorityMedium, MonthlyIncome: 8500, IncomeType: model.IncomeFixed},
		{ID: "new-laptop", Name: "New Laptop", TargetAmount: 3000, CurrentSavings: 2800, Deadline: deadline, Priority: model.PriorityLow, MonthlyIncome: 8500, IncomeType: model.IncomeFixed},
	}
}

// round2 matches the cents rounding the fixtures were recorded with.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
