package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR" // Euro (default)
	USD Currency = "USD" // US Dollar
	GBP Currency = "GBP" // British Pound
	CHF Currency = "CHF" // Swiss Franc
)

// Money pairs a decimal amount with its currency for display on
// customer-facing documents. Billing arithmetic stays on bare
// decimal.Decimal inside the domain; Money enters at the rendering
// boundary, where the currency decides the formatting.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the given amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyEUR creates Money in EUR
func NewMoneyEUR(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: EUR}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// String returns a human-readable representation, e.g. "45.00 EUR"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// currencySymbols holds the display symbol for each supported currency
var currencySymbols = map[Currency]string{
	EUR: "€",
	USD: "$",
	GBP: "£",
}

// Display returns the amount formatted for customer-facing documents,
// with the amount before the symbol as printed on French invoices,
// e.g. "45.00 €". Currencies without a symbol fall back to String.
func (m Money) Display() string {
	symbol, ok := currencySymbols[m.currency]
	if !ok {
		return m.String()
	}
	return m.amount.StringFixed(2) + " " + symbol
}
