package handler

import (
	"github.com/gin-gonic/gin"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
)

// ReceptionHandler serves goods receptions
type ReceptionHandler struct {
	BaseHandler
	receptions *invoicingapp.ReceptionService
}

// NewReceptionHandler creates a new ReceptionHandler
func NewReceptionHandler(receptions *invoicingapp.ReceptionService) *ReceptionHandler {
	return &ReceptionHandler{receptions: receptions}
}

// Create godoc
// @ID           createReception
// @Summary      Record a goods reception
// @Description  Records goods received against a purchase order. Article amounts are computed by the server.
// @Tags         receptions
// @Accept       json
// @Produce      json
// @Param        request body invoicingapp.CreateReceptionRequest true "Reception"
// @Success      201 {object} APIResponse[invoicingapp.ReceptionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /receptions [post]
func (h *ReceptionHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateReceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	reception, err := h.receptions.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reception)
}

// Get godoc
// @ID           getReception
// @Summary      Get a reception
// @Tags         receptions
// @Produce      json
// @Param        id path string true "Reception ID" format(uuid)
// @Success      200 {object} APIResponse[invoicingapp.ReceptionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /receptions/{id} [get]
func (h *ReceptionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid reception ID format")
		return
	}

	reception, err := h.receptions.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reception)
}
