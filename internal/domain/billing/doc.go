// Package billing contains the invoicing and payment-reconciliation domain:
// the Invoice aggregate with its line items and payment records, the pure
// totals arithmetic, the dashboard summary projection, and the overdue sweep.
//
// All mutation goes through the Invoice aggregate's methods; repositories and
// application services never touch invoice state directly. Monetary amounts
// are decimal throughout, dates on invoices follow a date-only contract (no
// time-of-day component is ever stored or compared).
package billing
