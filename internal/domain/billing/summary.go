package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSummary is the dashboard-level aggregate derived from the current
// invoice collection. It is a pure projection: never persisted, always rebuilt
// from scratch after a mutation.
//
// Paid reflects money actually received, not invoice status: the partially
// collected amount of an unsettled invoice is counted in Paid and subtracted
// from its status bucket. Paid + Pending + Overdue therefore need not equal
// Total when draft or cancelled invoices exist; this is a dashboard
// approximation, not a ledger.
type PaymentSummary struct {
	Total           decimal.Decimal `json:"total"`
	Paid            decimal.Decimal `json:"paid"`
	Pending         decimal.Decimal `json:"pending"`
	Overdue         decimal.Decimal `json:"overdue"`
	TodaySales      decimal.Decimal `json:"today_sales"`
	PendingInvoices int             `json:"pending_invoices"`
	OverdueInvoices int             `json:"overdue_invoices"`
}

// CalculateSummary reduces a collection of invoices into a PaymentSummary.
// Single pass, order-independent: the result is identical for any permutation
// of the input. Today's sales match on civil date only.
func CalculateSummary(invoices []Invoice, today time.Time) PaymentSummary {
	s := PaymentSummary{
		Total:      decimal.Zero,
		Paid:       decimal.Zero,
		Pending:    decimal.Zero,
		Overdue:    decimal.Zero,
		TodaySales: decimal.Zero,
	}

	for i := range invoices {
		inv := &invoices[i]
		s.Total = s.Total.Add(inv.Total)

		if SameDay(inv.IssueDate, today) {
			s.TodaySales = s.TodaySales.Add(inv.Total)
		}

		switch inv.Status {
		case InvoiceStatusPaid:
			s.Paid = s.Paid.Add(inv.Total)
		case InvoiceStatusSent:
			s.Pending = s.Pending.Add(inv.Total)
			s.PendingInvoices++
		case InvoiceStatusOverdue:
			s.Overdue = s.Overdue.Add(inv.Total)
			s.OverdueInvoices++
		default:
			// draft and cancelled contribute to the grand total only
			continue
		}

		// cash already collected on an unsettled invoice moves from its
		// status bucket into Paid
		if inv.IsPartiallyPaid() {
			switch inv.Status {
			case InvoiceStatusSent:
				s.Pending = s.Pending.Sub(inv.PaidAmount)
			case InvoiceStatusOverdue:
				s.Overdue = s.Overdue.Sub(inv.PaidAmount)
			}
			s.Paid = s.Paid.Add(inv.PaidAmount)
		}
	}

	return s
}
