package billing

import (
	"time"

	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the Invoice aggregate
const (
	EventTypeInvoiceCreated       = "billing.invoice.created"
	EventTypeInvoiceSent          = "billing.invoice.sent"
	EventTypeInvoicePaid          = "billing.invoice.paid"
	EventTypeInvoicePartiallyPaid = "billing.invoice.partially_paid"
	EventTypeInvoiceOverdue       = "billing.invoice.overdue"
	EventTypeInvoiceCancelled     = "billing.invoice.cancelled"
)

const invoiceAggregateType = "Invoice"

// InvoiceCreatedEvent is published when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	ClientName string          `json:"client_name"`
	Total      decimal.Decimal `json:"total"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		ClientName:      inv.ClientName,
		Total:           inv.Total,
	}
}

// InvoiceSentEvent is published when a draft invoice is issued
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	Number  string    `json:"number"`
	DueDate time.Time `json:"due_date"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		DueDate:         inv.DueDate,
	}
}

// InvoicePaidEvent is published when cumulative payments settle the invoice
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	Total      decimal.Decimal `json:"total"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		Total:           inv.Total,
		PaidAmount:      inv.PaidAmount,
	}
}

// InvoicePartiallyPaidEvent is published when a payment leaves a balance open
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	Number        string          `json:"number"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// NewInvoicePartiallyPaidEvent creates a new InvoicePartiallyPaidEvent
func NewInvoicePartiallyPaidEvent(inv *Invoice, payment *Payment) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePartiallyPaid, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		PaymentAmount:   payment.Amount,
		PaidAmount:      inv.PaidAmount,
		Outstanding:     inv.Outstanding(),
	}
}

// InvoiceOverdueEvent is published when the sweep reclassifies an invoice
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice, now time.Time) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		DueDate:         inv.DueDate,
		DaysOverdue:     inv.DaysOverdue(now),
		Outstanding:     inv.Outstanding(),
	}
}

// InvoiceCancelledEvent is published when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, invoiceAggregateType, inv.ID),
		Number:          inv.Number,
		Reason:          inv.CancelReason,
	}
}
