package insights

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
)

// idNamespace scopes insight IDs so identical evidence yields identical IDs.
var idNamespace = uuid.MustParse("6f1c2a8e-4b57-4d0e-9a61-3f0d8c7b2e55")

var titler = cases.Title(language.English)

// signedTotal is the exact signed sum of txns.
func signedTotal(txns []model.Transaction) float64 {
	return money.SumBy(txns, func(t model.Transaction) float64 { return t.Amount })
}

// quoted formats the figure a headline may show for txns.
func quoted(txns []model.Transaction) string {
	return money.Format(math.Abs(signedTotal(txns)))
}

// categoryName renders a category label for narratives.
func categoryName(category string) string {
	return titler.String(strings.ToLower(strings.ReplaceAll(category, "_", " ")))
}

func supporting(txns []model.Transaction) []SupportingTransaction {
	out := make([]SupportingTransaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, SupportingTransaction{
			TransactionID: t.ID,
			Date:          t.Date.Format(model.DateLayout),
			Merchant:      t.Merchant,
			Category:      t.PrimaryCategory(),
			Amount:        t.Amount,
		})
	}
	return out
}

func insightID(c *Candidate) string {
	ids := make([]string, 0, len(c.Supporting))
	for _, t := range c.Supporting {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	key := strings.Join([]string{string(c.Type), c.Category, c.Merchant, strings.Join(ids, ",")}, "|")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// render turns a scored candidate into an insight with its explainability block.
func render(c *Candidate, score float64) Insight {
	total := signedTotal(c.Supporting)
	raw := make(map[string]float64, len(c.RawValues)+1)
	for k, v := range c.RawValues {
		raw[k] = v
	}
	raw["amount"] = math.Abs(total)

	return Insight{
		ID:            insightID(c),
		Kind:          c.Kind,
		TriggerType:   c.Type,
		Headline:      c.Headline,
		Narrative:     c.Narrative,
		PriorityScore: score,
		PriorityLevel: c.Level,
		SpendCategory: c.Category,
		MerchantKey:   c.Merchant,
		Details: Details{
			CalculationMethod: c.Method,
			RawValues:         raw,
			ComparisonContext: c.Context,
			Transactions:      supporting(c.Supporting),
			Total:             total,
		},
	}
}
