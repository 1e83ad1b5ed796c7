package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a single line printed on a receipt
type Item struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // Unit price
	Category    string          `json:"category"`
}

// LineTotal returns quantity × price
func (i Item) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.Price)
}

// Receipt is the structured result returned by the receipt-parsing service
type Receipt struct {
	ID                *int64          `json:"id,omitempty"` // Assigned by the server, may be absent
	StoreName         string          `json:"store_name"`
	Date              string          `json:"date"` // ISO 8601 as received
	Items             []Item          `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	CategoriesSummary Categories      `json:"categories_summary"`
}

// Time parses Date using the accepted ISO 8601 layouts
func (r *Receipt) Time() (time.Time, error) {
	return parseDate(r.Date)
}
