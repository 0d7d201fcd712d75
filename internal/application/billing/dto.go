package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salonsuite/backend/internal/domain/billing"
)

// LineItemRequest represents one billable row in a create request
type LineItemRequest struct {
	Type        string          `json:"type" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Quantity    int64           `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	ServiceID   *uuid.UUID      `json:"service_id,omitempty"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	StylistID   *uuid.UUID      `json:"stylist_id,omitempty"`
	StylistName string          `json:"stylist_name,omitempty"`
}

// CreateInvoiceRequest represents a request to create an invoice.
// Unless Draft is set the invoice is issued immediately and starts
// awaiting payment.
type CreateInvoiceRequest struct {
	ClientID       uuid.UUID        `json:"client_id" binding:"required"`
	ClientName     string           `json:"client_name" binding:"required"`
	IssueDate      time.Time        `json:"issue_date"`
	DueDate        time.Time        `json:"due_date"`
	Items          []LineItemRequest `json:"items" binding:"required"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
	Discount       decimal.Decimal  `json:"discount"`
	Notes          string           `json:"notes"`
	Draft          bool             `json:"draft"`
	IdempotencyKey string           `json:"-"` // Set from X-Idempotency-Key header, not from request body
}

// RecordPaymentRequest represents a request to record a payment against an invoice
type RecordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Method         string          `json:"method" binding:"required"`
	Date           time.Time       `json:"date"`
	Reference      string          `json:"reference"`
	Notes          string          `json:"notes"`
	IdempotencyKey string          `json:"-"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search   string     `form:"search"`
	ClientID *uuid.UUID `form:"client_id"`
	Status   string     `form:"status"`
	FromDate *time.Time `form:"from_date"`
	ToDate   *time.Time `form:"to_date"`
	Overdue  *bool      `form:"overdue"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	StylistName string          `json:"stylist_name,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID          `json:"id"`
	Number       string             `json:"number"`
	ClientID     uuid.UUID          `json:"client_id"`
	ClientName   string             `json:"client_name"`
	IssueDate    time.Time          `json:"issue_date"`
	DueDate      time.Time          `json:"due_date"`
	Items        []LineItemResponse `json:"items"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	TaxRate      decimal.Decimal    `json:"tax_rate"`
	TaxAmount    decimal.Decimal    `json:"tax_amount"`
	Discount     decimal.Decimal    `json:"discount"`
	Total        decimal.Decimal    `json:"total"`
	Status       string             `json:"status"`
	Notes        string             `json:"notes,omitempty"`
	Payments     []PaymentResponse  `json:"payments"`
	PaidAmount   decimal.Decimal    `json:"paid_amount"`
	Outstanding  decimal.Decimal    `json:"outstanding"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Version      int                `json:"version"`
}

// SummaryResponse represents the billing dashboard summary
type SummaryResponse struct {
	Total           decimal.Decimal `json:"total"`
	Paid            decimal.Decimal `json:"paid"`
	Pending         decimal.Decimal `json:"pending"`
	Overdue         decimal.Decimal `json:"overdue"`
	TodaySales      decimal.Decimal `json:"today_sales"`
	PendingInvoices int             `json:"pending_invoices"`
	OverdueInvoices int             `json:"overdue_invoices"`
}

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	items := make([]LineItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = LineItemResponse{
			ID:          item.ID,
			Type:        string(item.Type),
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			StylistName: item.StylistName,
		}
	}

	payments := make([]PaymentResponse, len(inv.Payments))
	for i := range inv.Payments {
		payments[i] = *toPaymentResponse(&inv.Payments[i])
	}

	return &InvoiceResponse{
		ID:           inv.ID,
		Number:       inv.Number,
		ClientID:     inv.ClientID,
		ClientName:   inv.ClientName,
		IssueDate:    inv.IssueDate,
		DueDate:      inv.DueDate,
		Items:        items,
		Subtotal:     inv.Subtotal,
		TaxRate:      inv.TaxRate,
		TaxAmount:    inv.TaxAmount,
		Discount:     inv.Discount,
		Total:        inv.Total,
		Status:       string(inv.Status),
		Notes:        inv.Notes,
		Payments:     payments,
		PaidAmount:   inv.PaidAmount,
		Outstanding:  inv.Outstanding(),
		SentAt:       inv.SentAt,
		PaidAt:       inv.PaidAt,
		CancelledAt:  inv.CancelledAt,
		CancelReason: inv.CancelReason,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
}

func toPaymentResponse(p *billing.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		Method:    string(p.Method),
		Date:      p.Date,
		Reference: p.Reference,
		Notes:     p.Notes,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
}

func toSummaryResponse(s billing.PaymentSummary) *SummaryResponse {
	return &SummaryResponse{
		Total:           s.Total,
		Paid:            s.Paid,
		Pending:         s.Pending,
		Overdue:         s.Overdue,
		TodaySales:      s.TodaySales,
		PendingInvoices: s.PendingInvoices,
		OverdueInvoices: s.OverdueInvoices,
	}
}
