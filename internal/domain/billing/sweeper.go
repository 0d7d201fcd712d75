package billing

import "time"

// SweepOverdue reclassifies every SENT invoice whose due date has passed to
// OVERDUE and returns the invoices that changed. Invoices that are paid,
// cancelled, draft or already overdue are untouched, so running the sweep
// twice in succession changes nothing the second time.
//
// Consumers that depend on freshness (the summary, list reads) run the sweep
// first; a scheduler triggers it on a coarse interval as well. Either way the
// invariant holds: no invoice with a past due date is ever reported as SENT.
func SweepOverdue(invoices []*Invoice, now time.Time) []*Invoice {
	var changed []*Invoice
	for _, inv := range invoices {
		if inv.MarkOverdue(now) {
			changed = append(changed, inv)
		}
	}
	return changed
}
