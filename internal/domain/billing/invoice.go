package billing

import (
	"fmt"
	"time"

	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Editable, not yet issued to the client
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Issued and awaiting payment
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully settled, cumulative payments >= total
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Past due date and not fully paid
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Voided before any payment
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state.
// Paid and cancelled invoices never transition again.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanApplyPayment returns true if payments can be recorded in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusOverdue
}

// Invoice represents a billing document aggregate root: services/products sold
// to a client with computed totals and the payment history applied against it.
type Invoice struct {
	shared.BaseAggregateRoot
	Number       string          `json:"number"`
	ClientID     uuid.UUID       `json:"client_id"`
	ClientName   string          `json:"client_name"`
	IssueDate    time.Time       `json:"issue_date"` // date-only
	DueDate      time.Time       `json:"due_date"`   // date-only
	Items        LineItems       `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"` // percent
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	Discount     decimal.Decimal `json:"discount"` // absolute amount
	Total        decimal.Decimal `json:"total"`
	Status       InvoiceStatus   `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	Payments     Payments        `json:"payments"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
}

// NewInvoice creates a new draft invoice. Line item totals and invoice totals
// are recomputed here; callers never pass precomputed totals in.
func NewInvoice(
	number string,
	clientID uuid.UUID,
	clientName string,
	issueDate time.Time,
	dueDate time.Time,
	items []LineItem,
	taxRate decimal.Decimal,
	discount decimal.Decimal,
	notes string,
) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if err := ValidateInvoiceInput(clientID, clientName, issueDate, dueDate, items, taxRate, discount); err != nil {
		return nil, err
	}
	issueDate = DateOf(issueDate)
	dueDate = DateOf(dueDate)

	copied := make(LineItems, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].Recalculate()
	}

	totals := ComputeTotals(copied, taxRate, discount)

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		ClientID:          clientID,
		ClientName:        clientName,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		Items:             copied,
		Subtotal:          totals.Subtotal,
		TaxRate:           taxRate,
		TaxAmount:         totals.TaxAmount,
		Discount:          discount,
		Total:             totals.Total,
		Status:            InvoiceStatusDraft,
		Notes:             notes,
		Payments:          Payments{},
		PaidAmount:        decimal.Zero,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ValidateInvoiceInput checks the business fields of an invoice draft without
// constructing it. It applies the same rules as NewInvoice, letting callers
// reject bad input before committing side effects such as drawing a value
// from the invoice number sequence.
func ValidateInvoiceInput(
	clientID uuid.UUID,
	clientName string,
	issueDate time.Time,
	dueDate time.Time,
	items []LineItem,
	taxRate decimal.Decimal,
	discount decimal.Decimal,
) error {
	if clientID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if clientName == "" {
		return shared.NewDomainError("INVALID_CLIENT_NAME", "Client name cannot be empty")
	}
	if len(items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Invoice must have at least one line item")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(oneHundred) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be between 0 and 100 percent")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if issueDate.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if DateOf(dueDate).Before(DateOf(issueDate)) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	for i := range items {
		if items[i].Quantity < 1 {
			return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Line item %q quantity must be at least 1", items[i].Name))
		}
		if items[i].UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_UNIT_PRICE", fmt.Sprintf("Line item %q unit price cannot be negative", items[i].Name))
		}
	}
	return nil
}

// Send issues a draft invoice to the client
func (inv *Invoice) Send() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// RecordPayment appends a payment to the invoice and reconciles its status.
// When cumulative payments reach the total the invoice flips to PAID, which is
// terminal: no later operation moves it back to SENT or OVERDUE.
func (inv *Invoice) RecordPayment(payment *Payment) error {
	if !inv.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record payment on invoice in %s status", inv.Status))
	}
	if payment.InvoiceID != inv.ID {
		return shared.NewDomainError("INVALID_INVOICE_ID", "Payment does not belong to this invoice")
	}
	if !payment.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	inv.Payments = append(inv.Payments, *payment)
	inv.PaidAmount = inv.Payments.TotalPaid()

	now := time.Now()
	if inv.PaidAmount.GreaterThanOrEqual(inv.Total) {
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv, payment))
	}

	inv.UpdatedAt = now
	inv.IncrementVersion()

	return nil
}

// MarkOverdue reclassifies a sent invoice whose due date has passed.
// Calling it on any other status, or before the due date, is a no-op error-free
// skip for the sweeper's benefit: the sweep must be idempotent.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if !inv.IsPastDue(now) {
		return false
	}

	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv, now))

	return true
}

// IsPastDue reports whether the invoice is SENT with a due date before today
func (inv *Invoice) IsPastDue(now time.Time) bool {
	return inv.Status == InvoiceStatusSent && inv.DueDate.Before(DateOf(now))
}

// Cancel voids the invoice. Only invoices with no recorded payments can be
// cancelled; the cancel path does not refund.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if len(inv.Payments) > 0 || inv.PaidAmount.IsPositive() {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel invoice with recorded payments")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// Outstanding returns the amount still owed on the invoice
func (inv *Invoice) Outstanding() decimal.Decimal {
	outstanding := inv.Total.Sub(inv.PaidAmount)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// IsPartiallyPaid reports whether some but not all of the total is collected
func (inv *Invoice) IsPartiallyPaid() bool {
	return inv.PaidAmount.IsPositive() && inv.PaidAmount.LessThan(inv.Total)
}

// PaymentCount returns the number of payments recorded
func (inv *Invoice) PaymentCount() int {
	return len(inv.Payments)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (inv *Invoice) DaysOverdue(now time.Time) int {
	if inv.Status != InvoiceStatusOverdue && !inv.IsPastDue(now) {
		return 0
	}
	days := int(DateOf(now).Sub(inv.DueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
