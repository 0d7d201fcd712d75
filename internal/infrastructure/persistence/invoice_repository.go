package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/salonsuite/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its display number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyInvoiceFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindDueBefore finds all SENT invoices with a due date before the cutoff
func (r *GormInvoiceRepository) FindDueBefore(ctx context.Context, cutoff time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", billing.InvoiceStatusSent, billing.DateOf(cutoff)).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice and keeps the flat payment index in sync.
// Updates carry the aggregate's previous version in the WHERE clause: when the
// stored row moved on since the caller loaded it, no row matches and the stale
// write is rejected with ErrConcurrencyConflict instead of overwriting the
// newer state. Payments are append-only, so index rows are inserted with
// conflict-ignore.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Select("*").
			Omit("created_at").
			Updates(model)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var existing int64
			if err := tx.Model(&models.InvoiceModel{}).
				Where("id = ?", model.ID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return shared.ErrConcurrencyConflict
			}
			if err := tx.Create(model).Error; err != nil {
				return err
			}
		}

		if len(invoice.Payments) == 0 {
			return nil
		}

		rows := make([]models.InvoicePaymentModel, len(invoice.Payments))
		for i, p := range invoice.Payments {
			rows[i] = models.InvoicePaymentModelFromDomain(p)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// FindPaymentsByInvoice returns the payments recorded against one invoice
func (r *GormInvoiceRepository) FindPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var rows []models.InvoicePaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, len(rows))
	for i, row := range rows {
		payments[i] = row.ToDomain()
	}
	return payments, nil
}

// FindAllPayments returns payments across invoices from the flat index
func (r *GormInvoiceRepository) FindAllPayments(ctx context.Context, filter shared.Filter) ([]billing.Payment, error) {
	var rows []models.InvoicePaymentModel
	query := r.db.WithContext(ctx).Model(&models.InvoicePaymentModel{})

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, len(rows))
	for i, row := range rows {
		payments[i] = row.ToDomain()
	}
	return payments, nil
}

// NextSequence atomically increments and returns the invoice number sequence
// for the billing period containing the given time. The single upsert keeps
// concurrent creators from ever observing the same value.
func (r *GormInvoiceRepository) NextSequence(ctx context.Context, period time.Time) (int64, error) {
	key := period.Format("200601")

	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO invoice_sequences (period, last_value, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT (period)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = EXCLUDED.updated_at
		RETURNING last_value`,
		key, time.Now()).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// applyInvoiceFilter applies filter options to the query
func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyInvoiceFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyInvoiceFilterWithoutPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		// LOWER/LIKE instead of ILIKE so the same query runs on both
		// the postgres and sqlite drivers
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(client_name) LIKE ?", searchPattern, searchPattern)
	}

	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", billing.DateOf(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date <= ?", billing.DateOf(*filter.ToDate))
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("due_date < ? AND status IN ?", billing.DateOf(time.Now()),
			[]billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusOverdue})
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
