package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSupplierRepository implements invoicing.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindProfileByUserID loads the user's supplier profile together with its subsidiary
func (r *GormSupplierRepository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*invoicing.SupplierProfile, error) {
	var m models.SupplierProfileModel
	if err := r.db.WithContext(ctx).
		Preload("Subsidiary").
		Where("user_id = ?", userID).
		First(&m).Error; err != nil {
		return nil, translateError(err, nil)
	}
	return m.ToDomain(), nil
}

var _ invoicing.SupplierRepository = (*GormSupplierRepository)(nil)
