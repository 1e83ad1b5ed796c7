package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference between two amounts still treated as equal
var Tolerance = decimal.RequireFromString("0.01")

// Discrepancy is an inconsistency between the server's totals and its items.
// Discrepancies are reported alongside the receipt, they do not reject it.
type Discrepancy struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", d.Field, d.Expected, d.Got)
}

// Check compares subtotal, total and categories_summary against the items
func Check(r *Receipt) []Discrepancy {
	var out []Discrepancy

	mismatch := func(field string, expected, got decimal.Decimal) {
		if expected.Sub(got).Abs().GreaterThan(Tolerance) {
			out = append(out, Discrepancy{
				Field:    field,
				Expected: expected.StringFixed(2),
				Got:      got.StringFixed(2),
			})
		}
	}

	mismatch("total", r.Subtotal.Add(r.Tax), r.Total)

	itemsSum := decimal.Zero
	counts := make(map[string]int)
	sums := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, it := range r.Items {
		line := it.LineTotal()
		itemsSum = itemsSum.Add(line)
		if _, ok := counts[it.Category]; !ok {
			order = append(order, it.Category)
			sums[it.Category] = decimal.Zero
		}
		counts[it.Category]++
		sums[it.Category] = sums[it.Category].Add(line)
	}
	mismatch("subtotal", itemsSum, r.Subtotal)

	for _, s := range r.CategoriesSummary {
		field := "categories_summary." + s.Key
		if s.Count != counts[s.Key] {
			out = append(out, Discrepancy{
				Field:    field + ".count",
				Expected: fmt.Sprintf("%d", counts[s.Key]),
				Got:      fmt.Sprintf("%d", s.Count),
			})
		}
		mismatch(field+".total", sums[s.Key], s.Total)
	}

	for _, category := range order {
		if _, ok := r.CategoriesSummary.Get(category); !ok {
			out = append(out, Discrepancy{
				Field:    "categories_summary." + category,
				Expected: fmt.Sprintf("%d items", counts[category]),
				Got:      "missing",
			})
		}
	}

	return out
}
