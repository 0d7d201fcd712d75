package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
)

// AuditLogHandler subscribes to invoice lifecycle events and writes one
// structured audit entry per event. The log stream is the audit trail:
// every state change an invoice goes through shows up here with its
// business fields, keyed by invoice ID.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns the invoice event types the handler subscribes to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceSent,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoicePartiallyPaid,
		billing.EventTypeInvoiceOverdue,
		billing.EventTypeInvoiceCancelled,
	}
}

// Handle writes the audit entry for a single event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("invoice_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *billing.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("client_name", e.ClientName),
			zap.String("total", e.Total.String()))
	case *billing.InvoiceSentEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.Time("due_date", e.DueDate))
	case *billing.InvoicePaidEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("total", e.Total.String()),
			zap.String("paid_amount", e.PaidAmount.String()))
	case *billing.InvoicePartiallyPaidEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("payment_amount", e.PaymentAmount.String()),
			zap.String("outstanding", e.Outstanding.String()))
	case *billing.InvoiceOverdueEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.Int("days_overdue", e.DaysOverdue),
			zap.String("outstanding", e.Outstanding.String()))
	case *billing.InvoiceCancelledEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("reason", e.Reason))
	}

	h.logger.Info("invoice audit entry", fields...)
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
