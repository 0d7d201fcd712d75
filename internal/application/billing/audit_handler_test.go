package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salonsuite/backend/internal/domain/billing"
)

func auditTestInvoice(t *testing.T) *billing.Invoice {
	t.Helper()

	item, err := billing.NewLineItem(billing.ItemTypeService, "Coupe femme", 1, decimal.NewFromInt(45))
	require.NoError(t, err)

	inv, err := billing.NewInvoice("FACT-202310-0001", uuid.New(), "Marie Dupont",
		time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 10, 31, 0, 0, 0, 0, time.UTC),
		[]billing.LineItem{*item}, decimal.NewFromInt(20), decimal.Zero, "")
	require.NoError(t, err)
	return inv
}

func TestAuditLogHandler_EventTypes(t *testing.T) {
	handler := NewAuditLogHandler(zap.NewNop())

	types := handler.EventTypes()
	assert.ElementsMatch(t, []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceSent,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoicePartiallyPaid,
		billing.EventTypeInvoiceOverdue,
		billing.EventTypeInvoiceCancelled,
	}, types)
}

func TestAuditLogHandler_CreatedEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewAuditLogHandler(zap.New(core))

	inv := auditTestInvoice(t)
	event := billing.NewInvoiceCreatedEvent(inv)

	require.NoError(t, handler.Handle(context.Background(), event))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "invoice audit entry", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, billing.EventTypeInvoiceCreated, fields["event_type"])
	assert.Equal(t, inv.ID.String(), fields["invoice_id"])
	assert.Equal(t, "FACT-202310-0001", fields["number"])
	assert.Equal(t, "Marie Dupont", fields["client_name"])
	assert.Equal(t, "54", fields["total"])
}

func TestAuditLogHandler_OverdueEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewAuditLogHandler(zap.New(core))

	inv := auditTestInvoice(t)
	require.NoError(t, inv.Send())
	require.True(t, inv.MarkOverdue(time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)))

	events := inv.GetDomainEvents()
	var overdue *billing.InvoiceOverdueEvent
	for _, e := range events {
		if o, ok := e.(*billing.InvoiceOverdueEvent); ok {
			overdue = o
		}
	}
	require.NotNil(t, overdue)

	require.NoError(t, handler.Handle(context.Background(), overdue))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, billing.EventTypeInvoiceOverdue, fields["event_type"])
	assert.Equal(t, int64(5), fields["days_overdue"])
	assert.Equal(t, "54", fields["outstanding"])
}
