package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAndFromContext(t *testing.T) {
	base := zap.NewNop()
	ctx := WithContext(context.Background(), base)

	assert.Same(t, base, FromContext(ctx))
}

func TestFromContext_MissingLoggerReturnsNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), base, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))

	enriched.Info("test")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx, _ = WithRequestID(ctx, base, "req-456")

	WithLogger(ctx, base).Info("invoice created")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-456", entries[0].ContextMap()["request_id"])
}

func TestContextLogger_With(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	WithLogger(context.Background(), base).
		With(zap.String("invoice_number", "FACT-202310-0001")).
		Info("payment recorded")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "FACT-202310-0001", entries[0].ContextMap()["invoice_number"])
}
