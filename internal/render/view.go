// Package render turns a validated receipt into display-ready values.
// Building a view does no I/O; writers for HTML and terminal output consume it.
package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-uploader/internal/receipt"
)

const dateLayout = "1/2/2006"

// Row is one line of the items table
type Row struct {
	Description string
	Quantity    string
	UnitPrice   string
	LineTotal   string
	Category    string
}

func (r Row) String() string {
	return strings.Join([]string{r.Description, r.Quantity, r.UnitPrice, r.LineTotal, r.Category}, " | ")
}

// Card summarizes one category
type Card struct {
	Key   string
	Label string
	Total string
	Count int
}

func (c Card) String() string {
	return fmt.Sprintf("%s — %s / %d items", c.Label, c.Total, c.Count)
}

// Totals are the amounts at the foot of the receipt, as sent by the server
type Totals struct {
	Subtotal string
	Tax      string
	Total    string
}

func (t Totals) String() string {
	return strings.Join([]string{t.Subtotal, t.Tax, t.Total}, " / ")
}

// View is everything needed to display a receipt
type View struct {
	StoreName string
	Date      string
	Rows      []Row
	Cards     []Card
	Totals    Totals
	Notes     []string // Inconsistencies found in the server's numbers
}

// Build produces the view for r. Line totals are recomputed from quantity and
// price; subtotal, tax and total are shown as received. Each discrepancy
// becomes a note.
func Build(r *receipt.Receipt, discrepancies []receipt.Discrepancy) View {
	v := View{
		StoreName: r.StoreName,
		Date:      FormatDate(r),
		Rows:      make([]Row, 0, len(r.Items)),
		Cards:     make([]Card, 0, len(r.CategoriesSummary)),
		Totals: Totals{
			Subtotal: Money(r.Subtotal),
			Tax:      Money(r.Tax),
			Total:    Money(r.Total),
		},
	}

	for _, it := range r.Items {
		v.Rows = append(v.Rows, Row{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   Money(it.Price),
			LineTotal:   Money(it.LineTotal()),
			Category:    it.Category,
		})
	}

	for _, s := range r.CategoriesSummary {
		v.Cards = append(v.Cards, Card{
			Key:   s.Key,
			Label: CategoryLabel(s.Key),
			Total: Money(s.Total),
			Count: s.Count,
		})
	}

	for _, d := range discrepancies {
		v.Notes = append(v.Notes, d.String())
	}

	return v
}

// Money formats an amount in dollars with two decimals
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// CategoryLabel replaces the first underscore with a space and upper-cases the result
func CategoryLabel(key string) string {
	return strings.ToUpper(strings.Replace(key, "_", " ", 1))
}

// FormatDate shows the receipt date as M/D/YYYY, or as received if it cannot be parsed
func FormatDate(r *receipt.Receipt) string {
	t, err := r.Time()
	if err != nil {
		return r.Date
	}
	return t.Format(dateLayout)
}
