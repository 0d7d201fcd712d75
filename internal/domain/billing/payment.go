package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCheck    PaymentMethod = "CHECK"
	PaymentMethodOther    PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusPending, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CountsTowardBalance returns true if the payment reduces the invoice's
// outstanding amount. Failed and refunded payments do not.
func (s PaymentStatus) CountsTowardBalance() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusPending
}

// Payment represents a recorded transfer of money against a specific invoice.
// It is a value object within the Invoice aggregate, stored as JSONB; the flat
// payments table kept by persistence is a secondary index for cross-invoice
// queries, never an independent owner. A payment is immutable once created
// except for status changes.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewPayment creates a new completed payment against the given invoice
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, method PaymentMethod, date time.Time, reference, notes string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Payment invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if date.IsZero() {
		date = time.Now()
	}

	return &Payment{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    method,
		Date:      DateOf(date),
		Reference: reference,
		Notes:     notes,
		Status:    PaymentStatusCompleted,
		CreatedAt: time.Now(),
	}, nil
}

// Payments is a slice of Payment that implements GORM Scanner/Valuer for JSONB storage
type Payments []Payment

// TotalPaid sums the amounts of all payments that count toward the balance
func (p Payments) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for i := range p {
		if p[i].Status.CountsTowardBalance() {
			total = total.Add(p[i].Amount)
		}
	}
	return total
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p Payments) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *Payments) Scan(value interface{}) error {
	if value == nil {
		*p = Payments{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Payments: unsupported type")
	}

	if len(bytes) == 0 {
		*p = Payments{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}
