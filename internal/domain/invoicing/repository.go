package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
)

// InvoiceRepository persists invoices. Lookups return shared.ErrNotFound when
// no row matches; Create returns ErrDuplicateFolio on a folio collision.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByFolio(ctx context.Context, folio string) (*Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Invoice, int64, error)
	// UpdateSyncStatus overwrites status and error for the invoice id. It
	// never moves a SYNCED row to another status and returns
	// ErrInvalidTransition instead.
	UpdateSyncStatus(ctx context.Context, id uuid.UUID, status SyncStatus, syncError *string) error
	// FindPendingOlderThan lists PENDING_SYNC invoices last touched before cutoff
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Invoice, error)
}

// ReceptionRepository persists receptions together with their articles
type ReceptionRepository interface {
	Create(ctx context.Context, reception *Reception) error
	FindByID(ctx context.Context, id uuid.UUID) (*Reception, error)
}

// SupplierRepository resolves the fiscal parties behind a portal user
type SupplierRepository interface {
	// FindProfileByUserID loads the supplier profile with its subsidiary
	FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*SupplierProfile, error)
}

// PurchaseOrderRepository persists purchase orders imported from the ERP
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	// UpsertByFolio inserts or updates orders keyed by folio in one transaction
	UpsertByFolio(ctx context.Context, orders []PurchaseOrder) (created, updated int, err error)
}
