package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts a new invoice. A folio collision yields ErrDuplicateFolio.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	m := models.InvoiceModelFromDomain(inv)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err, invoicing.ErrDuplicateFolio)
	}
	return nil
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var m models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, nil)
	}
	return m.ToDomain(), nil
}

// FindByFolio finds an invoice by its fiscal folio
func (r *GormInvoiceRepository) FindByFolio(ctx context.Context, folio string) (*invoicing.Invoice, error) {
	var m models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("folio = ?", folio).First(&m).Error; err != nil {
		return nil, translateError(err, nil)
	}
	return m.ToDomain(), nil
}

// ListByUser returns one page of a user's invoices, newest first, and the total count
func (r *GormInvoiceRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, nil)
	}

	var rows []models.InvoiceModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, nil)
	}

	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

// UpdateSyncStatus overwrites the sync status and error of one invoice.
// Writing the same values twice leaves the row unchanged apart from updated_at.
// Any status other than SYNCED is written only while the row is not SYNCED;
// a SYNCED row yields ErrInvalidTransition.
func (r *GormInvoiceRepository) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status invoicing.SyncStatus, syncError *string) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput.WithMessage("Unknown sync status: " + string(status))
	}
	if syncError != nil {
		truncated := invoicing.TruncateSyncError(*syncError)
		syncError = &truncated
	}

	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", id)
	if status != invoicing.SyncStatusSynced {
		// SYNCED is terminal in the database too, whatever the caller last read
		query = query.Where("sync_status <> ?", invoicing.SyncStatusSynced)
	}
	result := query.Updates(map[string]any{
		"sync_status": status,
		"sync_error":  syncError,
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		return translateError(result.Error, nil)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if status == invoicing.SyncStatusSynced {
		return shared.ErrNotFound
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err, nil)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return invoicing.ErrInvalidTransition.WithMessage("Invoice is already synced")
}

// FindPendingOlderThan lists PENDING_SYNC invoices not updated since cutoff, oldest first
func (r *GormInvoiceRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]invoicing.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("sync_status = ? AND updated_at < ?", invoicing.SyncStatusPending, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, translateError(err, nil)
	}

	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
