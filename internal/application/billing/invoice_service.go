package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
)

// Defaults holds billing values applied when a request omits them
type Defaults struct {
	TaxRate decimal.Decimal // percent
	DueDays int             // days between issue and due date
}

// InvoiceService provides application-level invoice operations:
// creation with sequential numbering, lifecycle transitions, payment
// recording, the dashboard summary and the overdue sweep.
type InvoiceService struct {
	repo        billing.InvoiceRepository
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	defaults    Defaults
	logger      *zap.Logger
	now         func() time.Time
}

// InvoiceServiceOption configures an InvoiceService
type InvoiceServiceOption func(*InvoiceService)

// WithEventPublisher sets the publisher invoked after each successful mutation
func WithEventPublisher(publisher shared.EventPublisher) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.publisher = publisher
	}
}

// WithIdempotency enables replay rejection for create and payment requests
func WithIdempotency(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.idempotency = store
		s.idemCfg = cfg
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.logger = logger
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.now = now
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo billing.InvoiceRepository, defaults Defaults, opts ...InvoiceServiceOption) *InvoiceService {
	s := &InvoiceService{
		repo:     repo,
		defaults: defaults,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInvoice creates a new invoice with the next sequential number for its
// issue period. Unless req.Draft is set the invoice is issued immediately.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (resp *InvoiceResponse, err error) {
	if err := s.guardReplay(ctx, "create", req.IdempotencyKey); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.releaseReplay(ctx, "create", req.IdempotencyKey)
		}
	}()

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 0, s.defaults.DueDays)
	}
	taxRate := s.defaults.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	items := make([]billing.LineItem, 0, len(req.Items))
	for _, ir := range req.Items {
		item, err := billing.NewLineItem(billing.ItemType(ir.Type), ir.Name, ir.Quantity, ir.UnitPrice)
		if err != nil {
			return nil, err
		}
		item.ServiceID = ir.ServiceID
		item.ProductID = ir.ProductID
		item.StylistID = ir.StylistID
		item.StylistName = ir.StylistName
		items = append(items, *item)
	}

	// Validate before drawing a sequence value: a rejected draft must not
	// burn a number and leave a gap in the legal numbering
	if err := billing.ValidateInvoiceInput(req.ClientID, req.ClientName, issueDate, dueDate, items, taxRate, req.Discount); err != nil {
		return nil, err
	}

	seq, err := s.repo.NextSequence(ctx, issueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	number := billing.FormatInvoiceNumber(issueDate, seq)

	invoice, err := billing.NewInvoice(
		number,
		req.ClientID,
		req.ClientName,
		issueDate,
		dueDate,
		items,
		taxRate,
		req.Discount,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	if !req.Draft {
		if err := invoice.Send(); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	s.logger.Info("invoice created",
		zap.String("id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("status", string(invoice.Status)),
		zap.String("total", invoice.Total.String()))

	return toInvoiceResponse(invoice), nil
}

// GetInvoice retrieves an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// GetInvoiceByNumber retrieves an invoice by its display number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	invoice, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// ListInvoices lists invoices with filtering and pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	domainFilter := billing.InvoiceFilter{
		ClientID: filter.ClientID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
		Overdue:  filter.Overdue,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = filter.OrderBy
	domainFilter.OrderDir = filter.OrderDir

	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Unknown invoice status")
		}
		domainFilter.Status = &status
	}

	invoices, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = *toInvoiceResponse(&invoices[i])
	}

	page := domainFilter.Filter.Page
	if page < 1 {
		page = 1
	}
	result := shared.NewPaginated(items, total, page, domainFilter.Filter.Limit())
	return &result, nil
}

// SendInvoice issues a draft invoice to the client
func (s *InvoiceService) SendInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.Send(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	return toInvoiceResponse(invoice), nil
}

// RecordPayment records a payment against an invoice and reconciles its status
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (resp *InvoiceResponse, err error) {
	if err := s.guardReplay(ctx, "payment", req.IdempotencyKey); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.releaseReplay(ctx, "payment", req.IdempotencyKey)
		}
	}()

	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payment, err := billing.NewPayment(
		invoice.ID,
		req.Amount,
		billing.PaymentMethod(req.Method),
		req.Date,
		req.Reference,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := invoice.RecordPayment(payment); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	s.logger.Info("payment recorded",
		zap.String("invoice", invoice.Number),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", string(payment.Method)),
		zap.String("status", string(invoice.Status)))

	return toInvoiceResponse(invoice), nil
}

// CancelInvoice voids an invoice that has no recorded payments
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	return toInvoiceResponse(invoice), nil
}

// ListPayments returns the payments recorded against one invoice
func (s *InvoiceService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.repo.FindPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = *toPaymentResponse(&payments[i])
	}
	return responses, nil
}

// ListAllPayments returns payments across invoices from the flat index
func (s *InvoiceService) ListAllPayments(ctx context.Context, filter shared.Filter) ([]PaymentResponse, error) {
	payments, err := s.repo.FindAllPayments(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = *toPaymentResponse(&payments[i])
	}
	return responses, nil
}

// GetSummary computes the dashboard summary over the full invoice collection.
// The overdue sweep runs first so the summary never reports a past-due
// invoice as pending.
func (s *InvoiceService) GetSummary(ctx context.Context) (*SummaryResponse, error) {
	if _, err := s.SweepOverdue(ctx); err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx, billing.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return toSummaryResponse(billing.CalculateSummary(nil, s.now())), nil
	}

	filter := billing.InvoiceFilter{}
	filter.Page = 1
	filter.PageSize = int(count)
	invoices, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := billing.CalculateSummary(invoices, s.now())
	return toSummaryResponse(summary), nil
}

// SweepOverdue marks every sent invoice past its due date as overdue and
// returns how many changed. Running it twice in a row changes nothing the
// second time.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.repo.FindDueBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load due invoices: %w", err)
	}

	marked := 0
	for i := range due {
		invoice := &due[i]
		if !invoice.MarkOverdue(now) {
			continue
		}
		if err := s.repo.Save(ctx, invoice); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// The invoice changed between the sweep's read and
				// write, e.g. a payment settled it. Re-check against
				// the fresh state instead of overwriting it.
				swept, rerr := s.resweep(ctx, invoice.ID, now)
				if rerr != nil {
					return marked, fmt.Errorf("failed to re-sweep invoice %s: %w", invoice.Number, rerr)
				}
				if swept {
					marked++
				}
				continue
			}
			return marked, fmt.Errorf("failed to save overdue invoice %s: %w", invoice.Number, err)
		}
		s.publishEvents(ctx, invoice)
		marked++
	}

	if marked > 0 {
		s.logger.Info("overdue sweep marked invoices", zap.Int("count", marked))
	}
	return marked, nil
}

// resweep reloads an invoice that changed mid-sweep and applies the overdue
// check to its fresh state. Reports whether the invoice was marked.
func (s *InvoiceService) resweep(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !fresh.MarkOverdue(now) {
		return false, nil
	}
	if err := s.repo.Save(ctx, fresh); err != nil {
		return false, err
	}
	s.publishEvents(ctx, fresh)
	return true, nil
}

// guardReplay rejects a request whose idempotency key was already processed
// within the TTL window. Requests without a key are never rejected.
// The key is reserved up front so two concurrent requests with the same key
// cannot both pass; callers release it again when the operation fails.
func (s *InvoiceService) guardReplay(ctx context.Context, operation, key string) error {
	if s.idempotency == nil || !s.idemCfg.Enabled || key == "" {
		return nil
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, operation+":"+key, s.idemCfg.TTL)
	if err != nil {
		// the store being down must not block billing
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return nil
	}
	if !fresh {
		return shared.ErrAlreadyProcessed
	}
	return nil
}

// releaseReplay frees a key reserved by guardReplay after a failed operation,
// so the client's legitimate retry is not rejected as a replay.
func (s *InvoiceService) releaseReplay(ctx context.Context, operation, key string) {
	if s.idempotency == nil || !s.idemCfg.Enabled || key == "" {
		return
	}
	if err := s.idempotency.Remove(ctx, operation+":"+key); err != nil {
		s.logger.Warn("failed to release idempotency key",
			zap.String("operation", operation),
			zap.Error(err))
	}
}

// publishEvents publishes and clears the aggregate's pending domain events.
// Publish failures are logged, not propagated: the mutation is already saved.
func (s *InvoiceService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.publisher == nil {
		invoice.ClearDomainEvents()
		return
	}

	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish domain events",
			zap.String("invoice", invoice.Number),
			zap.Error(err))
	}
	invoice.ClearDomainEvents()
}
