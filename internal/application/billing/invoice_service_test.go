package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/salonsuite/backend/internal/infrastructure/cache"
	"github.com/salonsuite/backend/internal/infrastructure/persistence/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

func testDefaults() Defaults {
	return Defaults{
		TaxRate: decimal.NewFromInt(20),
		DueDays: 30,
	}
}

func newTestService(t *testing.T, opts ...InvoiceServiceOption) (*InvoiceService, *memory.InvoiceRepository, *capturePublisher) {
	t.Helper()
	repo := memory.NewInvoiceRepository()
	publisher := &capturePublisher{}
	opts = append([]InvoiceServiceOption{WithEventPublisher(publisher)}, opts...)
	svc := NewInvoiceService(repo, testDefaults(), opts...)
	return svc, repo, publisher
}

func createRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		ClientID:   uuid.New(),
		ClientName: "Marie Dupont",
		Items: []LineItemRequest{
			{Type: "SERVICE", Name: "Coupe femme", Quantity: 1, UnitPrice: decimal.NewFromInt(45)},
		},
	}
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	svc, _, publisher := newTestService(t)

	resp, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	assert.Equal(t, "SENT", resp.Status)
	assert.Regexp(t, `^FACT-\d{6}-0001$`, resp.Number)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(45)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(54)))
	assert.Equal(t, resp.IssueDate.AddDate(0, 0, 30), resp.DueDate)
	assert.NotNil(t, resp.SentAt)

	assert.Equal(t,
		[]string{billing.EventTypeInvoiceCreated, billing.EventTypeInvoiceSent},
		publisher.eventTypes())
}

func TestInvoiceService_CreateInvoice_Draft(t *testing.T) {
	svc, _, publisher := newTestService(t)

	req := createRequest()
	req.Draft = true
	resp, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "DRAFT", resp.Status)
	assert.Nil(t, resp.SentAt)
	assert.Equal(t, []string{billing.EventTypeInvoiceCreated}, publisher.eventTypes())
}

func TestInvoiceService_CreateInvoice_SequentialNumbers(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)
	second, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	period := time.Now().Format("200601")
	assert.Equal(t, "FACT-"+period+"-0001", first.Number)
	assert.Equal(t, "FACT-"+period+"-0002", second.Number)
}

func TestInvoiceService_CreateInvoice_CustomTaxRate(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createRequest()
	rate := decimal.NewFromInt(10)
	req.TaxRate = &rate
	resp, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromFloat(4.5)), "got %s", resp.TaxAmount)
	assert.True(t, resp.Total.Equal(decimal.NewFromFloat(49.5)))
}

func TestInvoiceService_CreateInvoice_InvalidItem(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createRequest()
	req.Items[0].Quantity = 0
	_, err := svc.CreateInvoice(context.Background(), req)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
}

func TestInvoiceService_CreateInvoice_IdempotencyReplay(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	svc, _, _ := newTestService(t, WithIdempotency(store, shared.DefaultIdempotencyConfig()))

	req := createRequest()
	req.IdempotencyKey = "req-123"

	_, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateInvoice(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestInvoiceService_RecordPayment_PartialThenFull(t *testing.T) {
	svc, _, publisher := newTestService(t)

	created, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	partial, err := svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(20),
		Method: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, "SENT", partial.Status)
	assert.True(t, partial.Outstanding.Equal(decimal.NewFromInt(34)))

	full, err := svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(34),
		Method: "CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAID", full.Status)
	assert.True(t, full.Outstanding.IsZero())
	assert.NotNil(t, full.PaidAt)
	assert.Len(t, full.Payments, 2)

	assert.Contains(t, publisher.eventTypes(), billing.EventTypeInvoicePartiallyPaid)
	assert.Contains(t, publisher.eventTypes(), billing.EventTypeInvoicePaid)
}

func TestInvoiceService_RecordPayment_UnknownInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RecordPayment(context.Background(), uuid.New(), RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: "CASH",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceService_RecordPayment_OnDraftRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createRequest()
	req.Draft = true
	created, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: "CASH",
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestInvoiceService_SendInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createRequest()
	req.Draft = true
	created, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	sent, err := svc.SendInvoice(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SENT", sent.Status)

	_, err = svc.SendInvoice(context.Background(), created.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestInvoiceService_CancelInvoice(t *testing.T) {
	svc, _, publisher := newTestService(t)

	created, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	cancelled, err := svc.CancelInvoice(context.Background(), created.ID, CancelInvoiceRequest{Reason: "duplicate entry"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "duplicate entry", cancelled.CancelReason)
	assert.Contains(t, publisher.eventTypes(), billing.EventTypeInvoiceCancelled)
}

func TestInvoiceService_CancelInvoice_WithPaymentsRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: "CASH",
	})
	require.NoError(t, err)

	_, err = svc.CancelInvoice(context.Background(), created.ID, CancelInvoiceRequest{Reason: "mistake"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "HAS_PAYMENTS", domainErr.Code)
}

func TestInvoiceService_ListInvoices(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateInvoice(context.Background(), createRequest())
		require.NoError(t, err)
	}

	page, err := svc.ListInvoices(context.Background(), InvoiceListFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.TotalPages)
}

func TestInvoiceService_ListInvoices_StatusFilter(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createRequest()
	req.Draft = true
	_, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	page, err := svc.ListInvoices(context.Background(), InvoiceListFilter{Status: "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.ListInvoices(context.Background(), InvoiceListFilter{Status: "BOGUS"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATUS", domainErr.Code)
}

func TestInvoiceService_SweepOverdue(t *testing.T) {
	svc, _, publisher := newTestService(t)

	past := time.Now().AddDate(0, 0, -40)
	req := createRequest()
	req.IssueDate = past
	req.DueDate = past.AddDate(0, 0, 10)
	created, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	// a current invoice stays untouched
	_, err = svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	marked, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	overdue, err := svc.GetInvoice(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "OVERDUE", overdue.Status)
	assert.Contains(t, publisher.eventTypes(), billing.EventTypeInvoiceOverdue)

	// second run is a no-op
	marked, err = svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestInvoiceService_GetSummary(t *testing.T) {
	svc, _, _ := newTestService(t)

	// paid invoice
	paid, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), paid.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(54),
		Method: "CARD",
	})
	require.NoError(t, err)

	// pending invoice with a partial payment
	pending, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), pending.ID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(20),
		Method: "CASH",
	})
	require.NoError(t, err)

	// overdue invoice, swept during summary
	past := time.Now().AddDate(0, 0, -40)
	req := createRequest()
	req.IssueDate = past
	req.DueDate = past.AddDate(0, 0, 10)
	_, err = svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Total.Equal(decimal.NewFromInt(162)), "total %s", summary.Total)
	assert.True(t, summary.Paid.Equal(decimal.NewFromInt(74)), "paid %s", summary.Paid)
	assert.True(t, summary.Pending.Equal(decimal.NewFromInt(34)), "pending %s", summary.Pending)
	assert.True(t, summary.Overdue.Equal(decimal.NewFromInt(54)), "overdue %s", summary.Overdue)
	assert.Equal(t, 1, summary.PendingInvoices)
	assert.Equal(t, 1, summary.OverdueInvoices)
	assert.True(t, summary.TodaySales.Equal(decimal.NewFromInt(108)), "today %s", summary.TodaySales)
}

func TestInvoiceService_GetSummary_Empty(t *testing.T) {
	svc, _, _ := newTestService(t)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Total.IsZero())
	assert.Zero(t, summary.PendingInvoices)
	assert.Zero(t, summary.OverdueInvoices)
}

func TestInvoiceService_ListPayments(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
		Amount:    decimal.NewFromInt(20),
		Method:    "CASH",
		Reference: "till-7",
	})
	require.NoError(t, err)

	payments, err := svc.ListPayments(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "CASH", payments[0].Method)
	assert.Equal(t, "till-7", payments[0].Reference)

	all, err := svc.ListAllPayments(context.Background(), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInvoiceService_CreateInvoice_RetryAfterFailure(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	svc, _, _ := newTestService(t, WithIdempotency(store, shared.DefaultIdempotencyConfig()))

	bad := createRequest()
	bad.IdempotencyKey = "req-456"
	bad.Items = nil

	_, err := svc.CreateInvoice(context.Background(), bad)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrAlreadyProcessed)

	// The failed attempt must not burn the key: the client's retry with
	// corrected input goes through
	good := createRequest()
	good.IdempotencyKey = "req-456"
	resp, err := svc.CreateInvoice(context.Background(), good)
	require.NoError(t, err)
	assert.Regexp(t, `-0001$`, resp.Number)

	// and the successful attempt still rejects replays
	_, err = svc.CreateInvoice(context.Background(), good)
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestInvoiceService_RecordPayment_RetryAfterFailure(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	svc, _, _ := newTestService(t, WithIdempotency(store, shared.DefaultIdempotencyConfig()))

	created, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)

	req := RecordPaymentRequest{
		Amount:         decimal.NewFromInt(-5),
		Method:         "CASH",
		IdempotencyKey: "pay-1",
	}
	_, err = svc.RecordPayment(context.Background(), created.ID, req)
	require.Error(t, err)

	req.Amount = decimal.NewFromInt(54)
	paid, err := svc.RecordPayment(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "PAID", paid.Status)

	_, err = svc.RecordPayment(context.Background(), created.ID, req)
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestInvoiceService_CreateInvoice_RejectedDraftKeepsSequence(t *testing.T) {
	svc, _, _ := newTestService(t)

	bad := createRequest()
	rate := decimal.NewFromInt(150)
	bad.TaxRate = &rate

	_, err := svc.CreateInvoice(context.Background(), bad)
	require.Error(t, err)

	// The rejected draft must not leave a gap in the numbering
	resp, err := svc.CreateInvoice(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Regexp(t, `-0001$`, resp.Number)
}

// hookedInvoiceRepository lets a test interleave work between the sweep's
// read and its write.
type hookedInvoiceRepository struct {
	*memory.InvoiceRepository
	afterFindDueBefore func()
}

func (r *hookedInvoiceRepository) FindDueBefore(ctx context.Context, cutoff time.Time) ([]billing.Invoice, error) {
	due, err := r.InvoiceRepository.FindDueBefore(ctx, cutoff)
	if hook := r.afterFindDueBefore; hook != nil {
		r.afterFindDueBefore = nil
		hook()
	}
	return due, err
}

func TestInvoiceService_SweepOverdue_PaymentLandsMidSweep(t *testing.T) {
	repo := &hookedInvoiceRepository{InvoiceRepository: memory.NewInvoiceRepository()}
	svc := NewInvoiceService(repo, testDefaults())

	past := time.Now().AddDate(0, 0, -40)
	req := createRequest()
	req.IssueDate = past
	req.DueDate = past.AddDate(0, 0, 10)
	created, err := svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	// A payment settles the invoice between the sweep's read and write;
	// the sweep must not overwrite the paid state with OVERDUE
	repo.afterFindDueBefore = func() {
		_, perr := svc.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(54),
			Method: "CASH",
		})
		require.NoError(t, perr)
	}

	marked, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)

	got, err := svc.GetInvoice(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAID", got.Status)
}
