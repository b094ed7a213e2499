package invoicing

import (
	"context"
	"fmt"

	"github.com/portal/backend/internal/domain/invoicing"
	"go.uber.org/zap"
)

// PurchaseOrderSyncService imports purchase orders from the ERP
type PurchaseOrderSyncService struct {
	source PurchaseOrderSource
	orders invoicing.PurchaseOrderRepository
	logger *zap.Logger
}

// NewPurchaseOrderSyncService creates a new PurchaseOrderSyncService
func NewPurchaseOrderSyncService(source PurchaseOrderSource, orders invoicing.PurchaseOrderRepository, logger *zap.Logger) *PurchaseOrderSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderSyncService{source: source, orders: orders, logger: logger}
}

// Sync fetches every purchase order and upserts them by folio
func (s *PurchaseOrderSyncService) Sync(ctx context.Context) (*PurchaseOrderSyncResult, error) {
	orders, err := s.source.FetchPurchaseOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return &PurchaseOrderSyncResult{Message: "No purchase orders found in the ERP"}, nil
	}

	created, updated, err := s.orders.UpsertByFolio(ctx, orders)
	if err != nil {
		return nil, fmt.Errorf("store purchase orders: %w", err)
	}

	s.logger.Info("Purchase orders imported",
		zap.Int("fetched", len(orders)),
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
	return &PurchaseOrderSyncResult{
		Message: fmt.Sprintf("Synchronized %d purchase orders", len(orders)),
		Fetched: len(orders),
		Created: created,
		Updated: updated,
	}, nil
}
