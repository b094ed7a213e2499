package persistence

import (
	"errors"
	"fmt"

	"github.com/portal/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm errors onto domain errors. duplicate is returned
// for unique violations and may be nil when the caller expects none.
func translateError(err error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	default:
		return fmt.Errorf("%w: %v", shared.ErrDatabase, err)
	}
}
