package invoicing

import (
	"context"
	"errors"
	"testing"

	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderSyncService_Sync(t *testing.T) {
	t.Run("upserts fetched orders", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		orders := new(MockPurchaseOrderRepository)
		svc := NewPurchaseOrderSyncService(source, orders, nil)

		fetched := []invoicing.PurchaseOrder{{Folio: "PO-1"}, {Folio: "PO-2"}, {Folio: "PO-3"}}
		source.On("FetchPurchaseOrders", mock.Anything).Return(fetched, nil)
		orders.On("UpsertByFolio", mock.Anything, fetched).Return(2, 1, nil)

		result, err := svc.Sync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, result.Fetched)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, result.Updated)
	})

	t.Run("nothing to import", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		orders := new(MockPurchaseOrderRepository)
		svc := NewPurchaseOrderSyncService(source, orders, nil)
		source.On("FetchPurchaseOrders", mock.Anything).Return([]invoicing.PurchaseOrder{}, nil)

		result, err := svc.Sync(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Fetched)
		orders.AssertNotCalled(t, "UpsertByFolio", mock.Anything, mock.Anything)
	})

	t.Run("erp failure", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		svc := NewPurchaseOrderSyncService(source, new(MockPurchaseOrderRepository), nil)
		cause := errors.New("erp query failed: 401")
		source.On("FetchPurchaseOrders", mock.Anything).Return(nil, cause)

		_, err := svc.Sync(context.Background())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("store failure", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		orders := new(MockPurchaseOrderRepository)
		svc := NewPurchaseOrderSyncService(source, orders, nil)
		source.On("FetchPurchaseOrders", mock.Anything).Return([]invoicing.PurchaseOrder{{Folio: "PO-1"}}, nil)
		orders.On("UpsertByFolio", mock.Anything, mock.Anything).Return(0, 0, shared.ErrDatabase)

		_, err := svc.Sync(context.Background())
		assert.ErrorIs(t, err, shared.ErrDatabase)
	})
}
