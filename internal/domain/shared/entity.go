package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps of portal records.
// Timestamps are UTC at microsecond precision so they survive a PostgreSQL
// round trip unchanged.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh id and stamps both timestamps.
func NewBaseEntity() BaseEntity {
	now := Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a state change.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = Now()
}

// Now is the clock used for entity timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
