package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements invoicing.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PurchaseOrder, error) {
	var m models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, nil)
	}
	return m.ToDomain(), nil
}

// UpsertByFolio inserts unknown folios and refreshes known ones inside a
// single transaction. Either every order is applied or none is.
func (r *GormPurchaseOrderRepository) UpsertByFolio(ctx context.Context, orders []invoicing.PurchaseOrder) (created, updated int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, updated = 0, 0
		for i := range orders {
			po := orders[i]

			var existing models.PurchaseOrderModel
			findErr := tx.Where("folio = ?", po.Folio).First(&existing).Error
			switch {
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				if po.ID == uuid.Nil {
					po.ID = uuid.New()
				}
				now := time.Now().UTC()
				po.CreatedAt, po.UpdatedAt = now, now

				var m models.PurchaseOrderModel
				m.FromDomain(&po)
				if err := tx.Create(&m).Error; err != nil {
					return err
				}
				created++
			case findErr != nil:
				return findErr
			default:
				if err := tx.Model(&existing).Updates(map[string]any{
					"date":            po.Date,
					"subsidiary_name": po.SubsidiaryName,
					"vendor_name":     po.VendorName,
					"vendor_erp_id":   po.VendorErpID,
					"subtotal":        po.Subtotal,
					"total":           po.Total,
					"updated_at":      time.Now().UTC(),
				}).Error; err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, translateError(err, nil)
	}
	return created, updated, nil
}

var _ invoicing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
