package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceptionRepository implements invoicing.ReceptionRepository using GORM
type GormReceptionRepository struct {
	db *gorm.DB
}

// NewGormReceptionRepository creates a new GormReceptionRepository
func NewGormReceptionRepository(db *gorm.DB) *GormReceptionRepository {
	return &GormReceptionRepository{db: db}
}

// Create stores the reception and its articles atomically
func (r *GormReceptionRepository) Create(ctx context.Context, reception *invoicing.Reception) error {
	var m models.ReceptionModel
	m.FromDomain(reception)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	return translateError(err, shared.ErrAlreadyExists.WithMessage("Reception folio already exists"))
}

// FindByID loads a reception with its articles in entry order
func (r *GormReceptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reception, error) {
	var m models.ReceptionModel
	if err := r.db.WithContext(ctx).
		Preload("Articles", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, nil)
	}
	return m.ToDomain(), nil
}

var _ invoicing.ReceptionRepository = (*GormReceptionRepository)(nil)
