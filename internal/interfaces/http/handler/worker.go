package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/infrastructure/logger"
)

// Headers that may carry the worker secret
const (
	HeaderWorkerKey    = "x-worker-key"
	HeaderSQSSignature = "x-amz-sqs-signature"
)

// WorkerHandler receives pushed queue batches from an external invoker
type WorkerHandler struct {
	worker *invoicingapp.WorkerService
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(worker *invoicingapp.WorkerService) *WorkerHandler {
	return &WorkerHandler{worker: worker}
}

// WorkerResponse is the body returned to the invoker. It keeps the flat
// shape queue push integrations expect rather than the API envelope.
type WorkerResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Report  *invoicingapp.BatchReport `json:"report,omitempty"`
}

// Reconcile godoc
// @ID           reconcileBatch
// @Summary      Reconcile a queue batch
// @Description  Processes a single queue message or a {"Records":[...]} batch. Per-message failures are recorded on the invoice and do not fail the batch.
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        x-worker-key header string false "Worker secret"
// @Param        x-amz-sqs-signature header string false "Worker secret (queue push integrations)"
// @Success      200 {object} WorkerResponse
// @Failure      401 {object} WorkerResponse
// @Failure      500 {object} WorkerResponse
// @Router       /workers/reconcile [post]
func (h *WorkerHandler) Reconcile(c *gin.Context) {
	credential := c.GetHeader(HeaderWorkerKey)
	if credential == "" {
		credential = c.GetHeader(HeaderSQSSignature)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, WorkerResponse{Error: "unreadable request body"})
		return
	}

	report, err := h.worker.HandleInvocation(c.Request.Context(), credential, body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, WorkerResponse{Success: true, Message: report.Message(), Report: report})
	case errors.Is(err, invoicing.ErrUnauthorizedWorker):
		c.JSON(http.StatusUnauthorized, WorkerResponse{Message: "Unauthorized Worker Execution"})
	default:
		logger.L(c.Request.Context()).Error("Worker batch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, WorkerResponse{Error: err.Error(), Report: report})
	}
}
