package billing

import (
	"context"
	"time"

	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	ClientID *uuid.UUID     // Filter by client
	Status   *InvoiceStatus // Filter by status
	FromDate *time.Time     // Filter by issue date range start
	ToDate   *time.Time     // Filter by issue date range end
	Overdue  *bool          // Filter only past-due invoices
}

// InvoiceRepository defines the interface for invoice persistence.
// The Invoice aggregate owns its payments; the repository additionally
// maintains a flat payment index for cross-invoice queries.
type InvoiceRepository interface {
	// FindByID finds an invoice by ID, shared.ErrNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its display number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindAll finds invoices matching the filter
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// FindDueBefore finds all SENT invoices with a due date before the cutoff
	FindDueBefore(ctx context.Context, cutoff time.Time) ([]Invoice, error)

	// Save creates or updates an invoice, syncing the flat payment index
	Save(ctx context.Context, invoice *Invoice) error

	// FindPaymentsByInvoice returns the payments recorded against one invoice
	FindPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindAllPayments returns payments across invoices from the flat index
	FindAllPayments(ctx context.Context, filter shared.Filter) ([]Payment, error)

	// NextSequence atomically increments and returns the invoice number
	// sequence for the period (year+month) containing the given time
	NextSequence(ctx context.Context, period time.Time) (int64, error)
}
