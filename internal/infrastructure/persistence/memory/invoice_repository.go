// Package memory provides in-memory repository implementations used by tests
// and by single-process setups that do not need a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
)

// InvoiceRepository is an in-memory implementation of billing.InvoiceRepository.
// Safe for concurrent use.
type InvoiceRepository struct {
	mu        sync.RWMutex
	invoices  map[uuid.UUID]*billing.Invoice
	sequences map[string]int64
}

// NewInvoiceRepository creates a new in-memory invoice repository
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices:  make(map[uuid.UUID]*billing.Invoice),
		sequences: make(map[string]int64),
	}
}

// FindByID finds an invoice by its ID
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneInvoice(inv), nil
}

// FindByNumber finds an invoice by its display number
func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invoices {
		if inv.Number == number {
			return cloneInvoice(inv), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindAll finds invoices matching the filter
func (r *InvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(filter)

	sort.Slice(matched, func(i, j int) bool {
		// Newest first, mirroring the SQL repository's default ordering
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := filter.Offset()
	limit := filter.Limit()
	if filter.Page > 0 && filter.PageSize > 0 {
		if offset >= len(matched) {
			return []billing.Invoice{}, nil
		}
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[offset:end]
	}

	result := make([]billing.Invoice, len(matched))
	for i, inv := range matched {
		result[i] = *cloneInvoice(inv)
	}
	return result, nil
}

// Count counts invoices matching the filter
func (r *InvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.matching(filter))), nil
}

// FindDueBefore finds all SENT invoices with a due date before the cutoff
func (r *InvoiceRepository) FindDueBefore(ctx context.Context, cutoff time.Time) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := billing.DateOf(cutoff)
	var result []billing.Invoice
	for _, inv := range r.invoices {
		if inv.Status == billing.InvoiceStatusSent && inv.DueDate.Before(day) {
			result = append(result, *cloneInvoice(inv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result, nil
}

// Save creates or updates an invoice. An update whose aggregate was loaded
// before another writer saved the same invoice is rejected with
// ErrConcurrencyConflict, mirroring the SQL repository's versioned update.
func (r *InvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.invoices[invoice.ID]; ok && existing.Version != invoice.Version-1 {
		return shared.ErrConcurrencyConflict
	}

	r.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

// FindPaymentsByInvoice returns the payments recorded against one invoice
func (r *InvoiceRepository) FindPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	payments := make([]billing.Payment, len(inv.Payments))
	copy(payments, inv.Payments)
	return payments, nil
}

// FindAllPayments returns payments across all invoices
func (r *InvoiceRepository) FindAllPayments(ctx context.Context, filter shared.Filter) ([]billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var payments []billing.Payment
	for _, inv := range r.invoices {
		payments = append(payments, inv.Payments...)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].Date.Before(payments[j].Date)
	})

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := filter.Offset()
		if offset >= len(payments) {
			return []billing.Payment{}, nil
		}
		end := offset + filter.Limit()
		if end > len(payments) {
			end = len(payments)
		}
		payments = payments[offset:end]
	}
	return payments, nil
}

// NextSequence atomically increments and returns the sequence for the period
func (r *InvoiceRepository) NextSequence(ctx context.Context, period time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := period.Format("200601")
	r.sequences[key]++
	return r.sequences[key], nil
}

// matching returns invoices matching the filter, without pagination.
// Caller must hold the read lock.
func (r *InvoiceRepository) matching(filter billing.InvoiceFilter) []*billing.Invoice {
	today := billing.DateOf(time.Now())

	var matched []*billing.Invoice
	for _, inv := range r.invoices {
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.FromDate != nil && inv.IssueDate.Before(billing.DateOf(*filter.FromDate)) {
			continue
		}
		if filter.ToDate != nil && inv.IssueDate.After(billing.DateOf(*filter.ToDate)) {
			continue
		}
		if filter.Overdue != nil && *filter.Overdue {
			pastDue := inv.DueDate.Before(today) &&
				(inv.Status == billing.InvoiceStatusSent || inv.Status == billing.InvoiceStatusOverdue)
			if !pastDue {
				continue
			}
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(inv.Number), needle) &&
				!strings.Contains(strings.ToLower(inv.ClientName), needle) {
				continue
			}
		}
		matched = append(matched, inv)
	}
	return matched
}

// cloneInvoice returns a deep-enough copy so callers cannot mutate stored state
func cloneInvoice(inv *billing.Invoice) *billing.Invoice {
	copied := *inv
	copied.Items = make(billing.LineItems, len(inv.Items))
	copy(copied.Items, inv.Items)
	copied.Payments = make(billing.Payments, len(inv.Payments))
	copy(copied.Payments, inv.Payments)
	copied.ClearDomainEvents()
	return &copied
}

// Ensure InvoiceRepository implements billing.InvoiceRepository
var _ billing.InvoiceRepository = (*InvoiceRepository)(nil)
