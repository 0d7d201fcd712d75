package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	billingapp "github.com/salonsuite/backend/internal/application/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/salonsuite/backend/internal/interfaces/http/middleware"
)

// idempotencyKeyHeader carries the client-chosen key that makes invoice
// creation and payment recording safe to retry
const idempotencyKeyHeader = "X-Idempotency-Key"

// BillingHandler handles invoice and payment related API endpoints
type BillingHandler struct {
	BaseHandler
	service *billingapp.InvoiceService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(service *billingapp.InvoiceService) *BillingHandler {
	return &BillingHandler{
		service: service,
	}
}

// InvoiceListQuery represents invoice list query parameters.
// Dates are accepted as YYYY-MM-DD strings.
type InvoiceListQuery struct {
	Search   string `form:"search"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Status   string `form:"status"`
	FromDate string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate   string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Overdue  *bool  `form:"overdue"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentListQuery represents payment list query parameters
type PaymentListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Create creates a new invoice
func (h *BillingHandler) Create(c *gin.Context) {
	var req billingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)

	invoice, err := h.service.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Get returns a single invoice by ID
func (h *BillingHandler) Get(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber returns a single invoice by its invoice number
func (h *BillingHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Invoice number is required")
		return
	}

	invoice, err := h.service.GetInvoiceByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List returns a paginated list of invoices
func (h *BillingHandler) List(c *gin.Context) {
	var query InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.bindingError(c, err)
		return
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	filter := billingapp.InvoiceListFilter{
		Search:   query.Search,
		Status:   query.Status,
		Overdue:  query.Overdue,
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
	}
	if query.ClientID != "" {
		clientID, err := uuid.Parse(query.ClientID)
		if err != nil {
			h.BadRequest(c, "Invalid client ID")
			return
		}
		filter.ClientID = &clientID
	}
	if query.FromDate != "" {
		t, err := time.Parse("2006-01-02", query.FromDate)
		if err != nil {
			h.BadRequest(c, "Invalid from_date")
			return
		}
		filter.FromDate = &t
	}
	if query.ToDate != "" {
		t, err := time.Parse("2006-01-02", query.ToDate)
		if err != nil {
			h.BadRequest(c, "Invalid to_date")
			return
		}
		// End of day so the range is inclusive
		t = t.Add(24*time.Hour - time.Second)
		filter.ToDate = &t
	}

	result, err := h.service.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Send issues a draft invoice
func (h *BillingHandler) Send(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.service.SendInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// RecordPayment records a payment against an invoice
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req billingapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)

	invoice, err := h.service.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel cancels an invoice
func (h *BillingHandler) Cancel(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req billingapp.CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	invoice, err := h.service.CancelInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListPayments returns the payments recorded against one invoice
func (h *BillingHandler) ListPayments(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// ListAllPayments returns payments across all invoices, newest first
func (h *BillingHandler) ListAllPayments(c *gin.Context) {
	var query PaymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.bindingError(c, err)
		return
	}

	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}

	payments, err := h.service.ListAllPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// Summary returns aggregate billing figures
func (h *BillingHandler) Summary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// SweepOverdue marks past-due invoices as overdue and returns the count
func (h *BillingHandler) SweepOverdue(c *gin.Context) {
	count, err := h.service.SweepOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"marked_overdue": count})
}

// invoiceID parses the :id path parameter, responding with a 400 on failure
func (h *BillingHandler) invoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return uuid.Nil, false
	}
	return id, true
}

// bindingError distinguishes field validation failures from malformed bodies
func (h *BillingHandler) bindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, err.Error())
}
