package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals holds the computed monetary breakdown of an invoice
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals computes subtotal, tax and total for a set of line items.
// The discount is an absolute amount applied before tax; the taxable base is
// clamped at zero so a discount larger than the subtotal can never produce a
// negative tax amount. Each item's Total field is trusted as-is: keeping it in
// sync with quantity and unit price is the aggregate's job (Recalculate).
func ComputeTotals(items []LineItem, taxRate, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].Total)
	}

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	taxAmount := taxable.Mul(taxRate).Div(oneHundred).Round(2)

	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Sub(discount).Add(taxAmount),
	}
}

// DateOf truncates a timestamp to its civil date, keeping the location.
// Invoice dates follow a date-only contract; every comparison against "today"
// goes through this helper so a stray time-of-day component can never make
// two equal dates compare unequal.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same civil date
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
