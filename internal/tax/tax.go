// Package tax computes invoice totals under the two fixed-rate Algerian
// taxes: TVA at 19% and TAP at 2%.
package tax

import "github.com/shopspring/decimal"

// Tax rates applied to every invoice.
var (
	TVARate = decimal.New(19, -2) // 19%
	TAPRate = decimal.New(2, -2)  // 2%
)

// Line is one (quantity, unit price) pair of an invoice.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity times unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the four monetary totals of an invoice.
type Totals struct {
	HT  decimal.Decimal `json:"total_ht"`
	TVA decimal.Decimal `json:"tva"`
	TAP decimal.Decimal `json:"tap"`
	TTC decimal.Decimal `json:"total_ttc"`
}

// Compute derives the tax totals for a set of lines. The computation is pure
// and order-independent: no intermediate rounding is applied, so recomputing
// on an unchanged line set always yields identical results.
func Compute(lines []Line) Totals {
	ht := decimal.Zero
	for _, l := range lines {
		ht = ht.Add(l.Subtotal())
	}
	tva := ht.Mul(TVARate)
	tap := ht.Mul(TAPRate)
	return Totals{
		HT:  ht,
		TVA: tva,
		TAP: tap,
		TTC: ht.Add(tva).Add(tap),
	}
}
