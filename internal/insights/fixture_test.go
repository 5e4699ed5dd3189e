package insights

import (
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

var asOf = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return asOf }

type ledger struct {
	txns []model.Transaction
	seq  int
}

func (l *ledger) add(month time.Month, day int, amount float64, merchant, category string) {
	l.at(time.Date(2025, month, day, 0, 0, 0, 0, time.UTC), amount, merchant, category)
}

func (l *ledger) at(date time.Time, amount float64, merchant, category string) {
	l.seq++
	l.txns = append(l.txns, model.Transaction{
		ID:         fmt.Sprintf("t%04d", l.seq),
		Date:       date,
		Amount:     amount,
		Merchant:   merchant,
		Categories: []string{category},
	})
}

// unique gives every one-off purchase its own merchant so it never looks recurring.
func (l *ledger) unique(prefix string) string {
	n := l.seq
	return fmt.Sprintf("%s q%c%c", prefix, 'a'+rune(n/26%26), 'a'+rune(n%26))
}

// householdLedger is six months of history ending in June 2025. June has a
// dining spike, an entertainment dip, one outsized shopping charge, a raise,
// a streaming price increase and a record savings month.
func householdLedger() []model.Transaction {
	l := &ledger{}
	for m := time.January; m <= time.June; m++ {
		june := m == time.June

		income := 4000.0
		if june {
			income = 4600
		}
		l.add(m, 1, income, "Employer", "INCOME")
		l.add(m, 2, -1500, "Landlord", "RENT_AND_UTILITIES")

		dining := -50.0
		if june {
			dining = -100
		}
		for _, day := range []int{5, 12, 19, 26} {
			l.add(m, day, dining, l.unique("Bistro"), "FOOD_AND_DRINK")
		}

		if june {
			l.add(m, 8, -60, l.unique("Cinema"), "ENTERTAINMENT")
		} else {
			l.add(m, 8, -100, l.unique("Cinema"), "ENTERTAINMENT")
			l.add(m, 22, -100, l.unique("Arcade"), "ENTERTAINMENT")
		}

		netflix := -15.99
		if june {
			netflix = -22.99
		}
		l.add(m, 15, netflix, "Netflix", "GENERAL_SERVICES")
		l.add(m, 20, -2.99, "Cloud Locker", "GENERAL_SERVICES")

		if june {
			l.add(m, 10, -150, "Gadget Barn", "GENERAL_MERCHANDISE")
			for day := 2; day <= 12; day++ {
				l.add(m, day, -5, "Blue Bottle", "COFFEE_SHOPS")
			}
		} else {
			for day := 3; day <= 28; day += 5 {
				l.add(m, day, -20, l.unique("Store"), "GENERAL_MERCHANDISE")
			}
		}
	}
	return l.txns
}

func emergencyFund() model.Goal {
	return model.Goal{
		ID:             "emergency",
		Name:           "Emergency Fund",
		TargetAmount:   20000,
		CurrentSavings: 1000,
		Deadline:       time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Priority:       model.PriorityHigh,
	}
}
