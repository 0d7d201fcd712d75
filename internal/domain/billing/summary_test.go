package billing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryInvoice(t *testing.T, total string, status InvoiceStatus, paid string) Invoice {
	t.Helper()
	items := []LineItem{mustLineItem(t, "Service", 1, total)}
	inv, err := NewInvoice(
		"FACT-"+uuid.NewString()[:8],
		uuid.New(),
		"Client",
		time.Now().AddDate(0, 0, -7),
		time.Now().AddDate(0, 0, 30),
		items,
		d("0"),
		d("0"),
		"",
	)
	require.NoError(t, err)
	inv.Status = status
	inv.PaidAmount = d(paid)
	if inv.PaidAmount.IsPositive() {
		p, err := NewPayment(inv.ID, inv.PaidAmount, PaymentMethodCash, time.Now(), "", "")
		require.NoError(t, err)
		inv.Payments = append(inv.Payments, *p)
	}
	return *inv
}

func TestCalculateSummary_Buckets(t *testing.T) {
	today := time.Now()
	invoices := []Invoice{
		summaryInvoice(t, "54", InvoiceStatusPaid, "54"),
		summaryInvoice(t, "100", InvoiceStatusSent, "0"),
		summaryInvoice(t, "80", InvoiceStatusOverdue, "0"),
		summaryInvoice(t, "30", InvoiceStatusDraft, "0"),
		summaryInvoice(t, "25", InvoiceStatusCancelled, "0"),
	}

	s := CalculateSummary(invoices, today)

	assert.True(t, s.Total.Equal(d("289")), "total: %s", s.Total)
	assert.True(t, s.Paid.Equal(d("54")), "paid: %s", s.Paid)
	assert.True(t, s.Pending.Equal(d("100")), "pending: %s", s.Pending)
	assert.True(t, s.Overdue.Equal(d("80")), "overdue: %s", s.Overdue)
	assert.Equal(t, 1, s.PendingInvoices)
	assert.Equal(t, 1, s.OverdueInvoices)
}

func TestCalculateSummary_PartialPaymentMovesCashToPaid(t *testing.T) {
	// invoice of 103, one payment of 50, overdue: 50 counts as collected,
	// 53 stays in the overdue bucket
	today := time.Now()
	invoices := []Invoice{
		summaryInvoice(t, "103", InvoiceStatusOverdue, "50"),
	}

	s := CalculateSummary(invoices, today)

	assert.True(t, s.Paid.Equal(d("50")), "paid: %s", s.Paid)
	assert.True(t, s.Overdue.Equal(d("53")), "overdue: %s", s.Overdue)
	assert.True(t, s.Pending.IsZero())
	assert.Equal(t, 1, s.OverdueInvoices)
}

func TestCalculateSummary_PartialOnSent(t *testing.T) {
	today := time.Now()
	invoices := []Invoice{
		summaryInvoice(t, "200", InvoiceStatusSent, "75"),
	}

	s := CalculateSummary(invoices, today)

	assert.True(t, s.Paid.Equal(d("75")))
	assert.True(t, s.Pending.Equal(d("125")))
}

func TestCalculateSummary_FullPaymentScenario(t *testing.T) {
	// paying a 54 invoice in full raises paid by 54 and leaves the other
	// buckets untouched
	today := time.Now()
	before := []Invoice{
		summaryInvoice(t, "54", InvoiceStatusSent, "0"),
		summaryInvoice(t, "100", InvoiceStatusOverdue, "0"),
	}
	after := []Invoice{
		summaryInvoice(t, "54", InvoiceStatusPaid, "54"),
		summaryInvoice(t, "100", InvoiceStatusOverdue, "0"),
	}

	sb := CalculateSummary(before, today)
	sa := CalculateSummary(after, today)

	assert.True(t, sa.Paid.Sub(sb.Paid).Equal(d("54")))
	assert.True(t, sa.Overdue.Equal(sb.Overdue))
	assert.True(t, sa.Pending.Equal(d("0")))
}

func TestCalculateSummary_OrderIndependent(t *testing.T) {
	today := time.Now()
	invoices := []Invoice{
		summaryInvoice(t, "54", InvoiceStatusPaid, "54"),
		summaryInvoice(t, "103", InvoiceStatusOverdue, "50"),
		summaryInvoice(t, "200", InvoiceStatusSent, "75"),
		summaryInvoice(t, "30", InvoiceStatusDraft, "0"),
		summaryInvoice(t, "42", InvoiceStatusSent, "0"),
	}

	want := CalculateSummary(invoices, today)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]Invoice, len(invoices))
		copy(shuffled, invoices)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := CalculateSummary(shuffled, today)
		assert.True(t, got.Total.Equal(want.Total))
		assert.True(t, got.Paid.Equal(want.Paid))
		assert.True(t, got.Pending.Equal(want.Pending))
		assert.True(t, got.Overdue.Equal(want.Overdue))
		assert.True(t, got.TodaySales.Equal(want.TodaySales))
		assert.Equal(t, want.PendingInvoices, got.PendingInvoices)
		assert.Equal(t, want.OverdueInvoices, got.OverdueInvoices)
	}
}

func TestCalculateSummary_TodaySales(t *testing.T) {
	today := time.Date(2023, 10, 14, 15, 30, 0, 0, time.UTC)

	issuedToday := summaryInvoice(t, "60", InvoiceStatusSent, "0")
	issuedToday.IssueDate = time.Date(2023, 10, 14, 0, 0, 0, 0, time.UTC)

	issuedYesterday := summaryInvoice(t, "40", InvoiceStatusSent, "0")
	issuedYesterday.IssueDate = time.Date(2023, 10, 13, 0, 0, 0, 0, time.UTC)

	s := CalculateSummary([]Invoice{issuedToday, issuedYesterday}, today)

	assert.True(t, s.TodaySales.Equal(d("60")), "today sales: %s", s.TodaySales)
}

func TestCalculateSummary_AccountingPartition(t *testing.T) {
	// with no partial payments, paid + pending + overdue never exceeds total
	today := time.Now()
	invoices := []Invoice{
		summaryInvoice(t, "54", InvoiceStatusPaid, "54"),
		summaryInvoice(t, "100", InvoiceStatusSent, "0"),
		summaryInvoice(t, "80", InvoiceStatusOverdue, "0"),
		summaryInvoice(t, "30", InvoiceStatusDraft, "0"),
	}

	s := CalculateSummary(invoices, today)

	sum := s.Paid.Add(s.Pending).Add(s.Overdue)
	assert.True(t, sum.LessThanOrEqual(s.Total))
}

func TestCalculateSummary_Empty(t *testing.T) {
	s := CalculateSummary(nil, time.Now())
	assert.True(t, s.Total.IsZero())
	assert.True(t, s.Paid.IsZero())
	assert.Equal(t, 0, s.PendingInvoices)
	assert.Equal(t, 0, s.OverdueInvoices)
}
