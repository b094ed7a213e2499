package handler

import (
	"github.com/gin-gonic/gin"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
)

// SyncHandler pulls reference data from the ERP
type SyncHandler struct {
	BaseHandler
	purchaseOrders *invoicingapp.PurchaseOrderSyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(purchaseOrders *invoicingapp.PurchaseOrderSyncService) *SyncHandler {
	return &SyncHandler{purchaseOrders: purchaseOrders}
}

// SyncPurchaseOrders godoc
// @ID           syncPurchaseOrders
// @Summary      Import purchase orders from the ERP
// @Description  Runs the ERP purchase order query and upserts the results by folio
// @Tags         sync
// @Produce      json
// @Param        x-sync-key header string true "Sync secret"
// @Success      200 {object} APIResponse[invoicingapp.PurchaseOrderSyncResult]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /sync/purchase-orders [post]
func (h *SyncHandler) SyncPurchaseOrders(c *gin.Context) {
	result, err := h.purchaseOrders.Sync(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
