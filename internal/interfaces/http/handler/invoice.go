package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/domain/shared"
)

// Multipart field names accepted by the intake endpoint
const (
	FieldReceptionID = "receptionId"
	FieldUserID      = "userId"
	FieldXMLFile     = "xmlFile"
	FieldPDFFile     = "pdfFile"
)

// InvoiceHandler serves supplier invoice intake, listing and resync
type InvoiceHandler struct {
	BaseHandler
	intake      *invoicingapp.IntakeService
	invoices    *invoicingapp.InvoiceService
	maxFileSize int64
}

// NewInvoiceHandler creates a new InvoiceHandler. Uploaded files larger than
// maxFileSize are refused while reading; zero means no per-file limit.
func NewInvoiceHandler(intake *invoicingapp.IntakeService, invoices *invoicingapp.InvoiceService, maxFileSize int64) *InvoiceHandler {
	return &InvoiceHandler{intake: intake, invoices: invoices, maxFileSize: maxFileSize}
}

// Submit godoc
// @ID           submitInvoice
// @Summary      Submit an invoice
// @Description  Uploads the CFDI XML and its PDF rendering for a reception. The invoice is stored as PENDING_SYNC and reconciled with the ERP asynchronously.
// @Tags         invoices
// @Accept       multipart/form-data
// @Produce      json
// @Param        receptionId formData string true "Reception ID" format(uuid)
// @Param        userId      formData string true "Supplier user ID, must match the token" format(uuid)
// @Param        xmlFile     formData file   true "CFDI XML"
// @Param        pdfFile     formData file   true "PDF rendering"
// @Success      201 {object} APIResponse[invoicingapp.SubmitInvoiceResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Submit(c *gin.Context) {
	callerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := invoicingapp.SubmitInvoiceInput{}
	if input.ReceptionID, err = optionalUUID(c.PostForm(FieldReceptionID)); err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("receptionId must be a UUID"))
		return
	}
	if input.UserID, err = optionalUUID(c.PostForm(FieldUserID)); err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("userId must be a UUID"))
		return
	}
	if input.UserID != uuid.Nil && input.UserID != callerID {
		h.Forbidden(c, "userId does not match the authenticated user")
		return
	}

	if input.StructuredDocument, err = h.readFile(c, FieldXMLFile); err != nil {
		h.HandleError(c, err)
		return
	}
	if input.RenderedDocument, err = h.readFile(c, FieldPDFFile); err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.intake.Submit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List godoc
// @ID           listInvoices
// @Summary      List my invoices
// @Description  Lists the caller's invoices, newest first, with one-hour document links
// @Tags         invoices
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20) maximum(100)
// @Param        order_by  query string false "Sort column" Enums(created_at, updated_at, issue_date, folio, total, sync_status)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} PagedResponse[invoicingapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req invoicingapp.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	page, err := h.invoices.List(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Description  Returns one invoice with its sync status and error. Operators may read any invoice.
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[invoicingapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), viewer, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Resync godoc
// @ID           resyncInvoice
// @Summary      Requeue an invoice
// @Description  Resets a FAILED or stuck PENDING_SYNC invoice to PENDING_SYNC and publishes it again. SYNCED invoices are refused.
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      202 {object} APIResponse[invoicingapp.ResyncResult]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/resync [post]
func (h *InvoiceHandler) Resync(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	result, err := h.invoices.Resync(c.Request.Context(), viewer, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, result)
}

func (h *InvoiceHandler) viewerAndID(c *gin.Context) (invoicingapp.Viewer, uuid.UUID, bool) {
	viewer, err := getViewer(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return viewer, uuid.Nil, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return viewer, uuid.Nil, false
	}
	return viewer, id, true
}

// readFile loads a multipart file into memory. An absent part yields nil so
// the intake reports the missing field by name.
func (h *InvoiceHandler) readFile(c *gin.Context, field string) (*invoicingapp.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Request body exceeds the %d byte limit", tooLarge.Limit))
		}
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Unreadable multipart field %s", field))
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("File %s exceeds the %d byte limit", fh.Filename, h.maxFileSize))
	}

	data, err := readPart(fh)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Unreadable multipart field %s", field))
	}
	return &invoicingapp.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// optionalUUID parses s, treating an empty value as uuid.Nil
func optionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
