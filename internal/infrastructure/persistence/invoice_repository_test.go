package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	t.Run("finds existing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		clientID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "number", "client_id", "client_name", "status", "subtotal", "tax_rate", "tax_amount", "discount", "total", "paid_amount", "items", "payments"}).
			AddRow(invoiceID, "FACT-202310-0001", clientID, "Marie Dupont", "SENT",
				decimal.NewFromInt(45), decimal.NewFromInt(20), decimal.NewFromInt(9),
				decimal.Zero, decimal.NewFromInt(54), decimal.Zero, "[]", "[]")

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnRows(rows)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		assert.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, invoiceID, invoice.ID)
		assert.Equal(t, "FACT-202310-0001", invoice.Number)
		assert.Equal(t, billing.InvoiceStatusSent, invoice.Status)
		assert.True(t, invoice.Total.Equal(decimal.NewFromInt(54)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for non-existent invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Nil(t, invoice)
	})
}

func TestGormInvoiceRepository_FindByNumber(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE number = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("FACT-202310-0099", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.FindByNumber(context.Background(), "FACT-202310-0099")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository_Count(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	status := billing.InvoiceStatusOverdue
	mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE status = \$1`).
		WithArgs(string(status)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background(), billing.InvoiceFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGormInvoiceRepository_NextSequence(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	period := time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO invoice_sequences .*ON CONFLICT \(period\).*RETURNING last_value`).
		WithArgs("202310", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(4))

	seq, err := repo.NextSequence(context.Background(), period)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// SQLite-compatible table definitions for round-trip tests

type invoiceTableSQLite struct {
	ID           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
	Number       string `gorm:"uniqueIndex"`
	ClientID     string `gorm:"index"`
	ClientName   string
	IssueDate    time.Time
	DueDate      time.Time
	Items        string
	Subtotal     string
	TaxRate      string
	TaxAmount    string
	Discount     string
	Total        string
	Status       string `gorm:"index"`
	Notes        string
	Payments     string
	PaidAmount   string
	SentAt       *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

func (invoiceTableSQLite) TableName() string { return "invoices" }

type invoicePaymentTableSQLite struct {
	ID        string `gorm:"primaryKey"`
	InvoiceID string `gorm:"index"`
	Amount    string
	Method    string
	Date      time.Time
	Reference string
	Notes     string
	Status    string
	CreatedAt time.Time
}

func (invoicePaymentTableSQLite) TableName() string { return "invoice_payments" }

type invoiceSequenceTableSQLite struct {
	Period    string `gorm:"primaryKey"`
	LastValue int64
	UpdatedAt time.Time
}

func (invoiceSequenceTableSQLite) TableName() string { return "invoice_sequences" }

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&invoiceTableSQLite{}, &invoicePaymentTableSQLite{}, &invoiceSequenceTableSQLite{})
	require.NoError(t, err)

	return db
}

func newTestInvoice(t *testing.T) *billing.Invoice {
	t.Helper()

	item, err := billing.NewLineItem(billing.ItemTypeService, "Coupe femme", 1, decimal.NewFromInt(45))
	require.NoError(t, err)

	inv, err := billing.NewInvoice(
		"FACT-202310-0001",
		uuid.New(),
		"Marie Dupont",
		time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 10, 31, 0, 0, 0, 0, time.UTC),
		[]billing.LineItem{*item},
		decimal.NewFromInt(20),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	return inv
}

func TestGormInvoiceRepository_SaveAndFind(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	t.Run("round-trips an invoice", func(t *testing.T) {
		inv := newTestInvoice(t)

		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.Number, found.Number)
		assert.Equal(t, inv.ClientName, found.ClientName)
		assert.Equal(t, billing.InvoiceStatusDraft, found.Status)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "Coupe femme", found.Items[0].Name)
		assert.True(t, found.Total.Equal(decimal.NewFromInt(54)))
	})

	t.Run("finds by number", func(t *testing.T) {
		found, err := repo.FindByNumber(ctx, "FACT-202310-0001")
		require.NoError(t, err)
		assert.Equal(t, "FACT-202310-0001", found.Number)
	})
}

func TestGormInvoiceRepository_PaymentIndexSync(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t)
	require.NoError(t, inv.Send())
	require.NoError(t, repo.Save(ctx, inv))

	payment, err := billing.NewPayment(inv.ID, decimal.NewFromInt(20), billing.PaymentMethodCash,
		time.Date(2023, 10, 5, 0, 0, 0, 0, time.UTC), "", "")
	require.NoError(t, err)
	require.NoError(t, inv.RecordPayment(payment))
	require.NoError(t, repo.Save(ctx, inv))

	// The second save re-inserts the first payment's index row; the
	// conflict-ignore clause must not duplicate it
	second, err := billing.NewPayment(inv.ID, decimal.NewFromInt(34), billing.PaymentMethodCard,
		time.Date(2023, 10, 8, 0, 0, 0, 0, time.UTC), "", "")
	require.NoError(t, err)
	require.NoError(t, inv.RecordPayment(second))
	require.NoError(t, repo.Save(ctx, inv))

	payments, err := repo.FindPaymentsByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, billing.PaymentMethodCash, payments[0].Method)
	assert.Equal(t, billing.PaymentMethodCard, payments[1].Method)

	all, err := repo.FindAllPayments(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormInvoiceRepository_StaleWriteRejected(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t)
	require.NoError(t, inv.Send())
	require.NoError(t, repo.Save(ctx, inv))

	stale, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	// A payment settles the invoice after the stale copy was loaded
	fresh, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	payment, err := billing.NewPayment(fresh.ID, decimal.NewFromInt(54), billing.PaymentMethodCash,
		time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC), "", "")
	require.NoError(t, err)
	require.NoError(t, fresh.RecordPayment(payment))
	require.NoError(t, repo.Save(ctx, fresh))

	// Writing the stale copy back must not resurrect the paid invoice
	require.True(t, stale.MarkOverdue(time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)))
	err = repo.Save(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	got, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, got.Status)
}

func TestGormInvoiceRepository_SearchIsCaseInsensitive(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t)
	require.NoError(t, repo.Save(ctx, inv))

	var filter billing.InvoiceFilter
	filter.Search = "marie"
	found, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, inv.Number, found[0].Number)

	filter.Search = "fact-202310"
	found, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	filter.Search = "nobody"
	found, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGormInvoiceRepository_FindDueBefore(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	overdue := newTestInvoice(t)
	require.NoError(t, overdue.Send())
	require.NoError(t, repo.Save(ctx, overdue))

	item, err := billing.NewLineItem(billing.ItemTypeService, "Brushing", 1, decimal.NewFromInt(30))
	require.NoError(t, err)
	current, err := billing.NewInvoice(
		"FACT-202311-0001",
		uuid.New(),
		"Sophie Martin",
		time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
		[]billing.LineItem{*item},
		decimal.NewFromInt(20),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	require.NoError(t, current.Send())
	require.NoError(t, repo.Save(ctx, current))

	due, err := repo.FindDueBefore(ctx, time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.Number, due[0].Number)
}

func TestGormInvoiceRepository_NextSequence_SQLite(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	october := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	november := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)

	for want := int64(1); want <= 3; want++ {
		got, err := repo.NextSequence(ctx, october)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A new period starts its own sequence
	got, err := repo.NextSequence(ctx, november)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}
