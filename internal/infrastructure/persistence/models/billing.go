package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Line items and payments are owned by the aggregate and stored as JSONB;
// the invoice_payments table is a secondary flat index kept in sync on Save.
type InvoiceModel struct {
	AggregateModel
	Number       string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	ClientName   string            `gorm:"type:varchar(200);not null"`
	IssueDate    time.Time         `gorm:"type:date;not null;index"`
	DueDate      time.Time         `gorm:"type:date;not null;index"`
	Items        billing.LineItems `gorm:"type:jsonb;default:'[]'"`
	Subtotal     decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TaxRate      decimal.Decimal   `gorm:"type:decimal(7,4);not null"`
	TaxAmount    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Discount     decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Total        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Status       billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Notes        string            `gorm:"type:text"`
	Payments     billing.Payments  `gorm:"type:jsonb;default:'[]'"`
	PaidAmount   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	SentAt       *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		Number:       m.Number,
		ClientID:     m.ClientID,
		ClientName:   m.ClientName,
		IssueDate:    m.IssueDate,
		DueDate:      m.DueDate,
		Items:        m.Items,
		Subtotal:     m.Subtotal,
		TaxRate:      m.TaxRate,
		TaxAmount:    m.TaxAmount,
		Discount:     m.Discount,
		Total:        m.Total,
		Status:       m.Status,
		Notes:        m.Notes,
		Payments:     m.Payments,
		PaidAmount:   m.PaidAmount,
		SentAt:       m.SentAt,
		PaidAt:       m.PaidAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Number = inv.Number
	m.ClientID = inv.ClientID
	m.ClientName = inv.ClientName
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Items = inv.Items
	m.Subtotal = inv.Subtotal
	m.TaxRate = inv.TaxRate
	m.TaxAmount = inv.TaxAmount
	m.Discount = inv.Discount
	m.Total = inv.Total
	m.Status = inv.Status
	m.Notes = inv.Notes
	m.Payments = inv.Payments
	m.PaidAmount = inv.PaidAmount
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoicePaymentModel is the flat payment index row. It mirrors payments
// embedded in the invoice JSONB so cross-invoice payment queries stay cheap.
type InvoicePaymentModel struct {
	ID        uuid.UUID             `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method    billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Date      time.Time             `gorm:"type:date;not null;index"`
	Reference string                `gorm:"type:varchar(100)"`
	Notes     string                `gorm:"type:text"`
	Status    billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'COMPLETED';index"`
	CreatedAt time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the index row to a domain Payment value object.
func (m *InvoicePaymentModel) ToDomain() billing.Payment {
	return billing.Payment{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		Amount:    m.Amount,
		Method:    m.Method,
		Date:      m.Date,
		Reference: m.Reference,
		Notes:     m.Notes,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// InvoicePaymentModelFromDomain creates an index row from a domain Payment.
func InvoicePaymentModelFromDomain(p billing.Payment) InvoicePaymentModel {
	return InvoicePaymentModel{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		Method:    p.Method,
		Date:      p.Date,
		Reference: p.Reference,
		Notes:     p.Notes,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

// InvoiceSequenceModel holds the per-period invoice number counter.
// One row per billing period (YYYYMM); NextSequence increments atomically.
type InvoiceSequenceModel struct {
	Period    string    `gorm:"type:varchar(6);primary_key"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
