package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Invoice DTOs
// ============================================================================

// SubmitInvoiceInput is one supplier submission
type SubmitInvoiceInput struct {
	UserID             uuid.UUID
	ReceptionID        uuid.UUID
	StructuredDocument *File
	RenderedDocument   *File
}

// SubmitInvoiceResult is returned once the invoice is stored and queued
type SubmitInvoiceResult struct {
	Message string          `json:"message"`
	Invoice InvoiceResponse `json:"invoice"`
}

// InvoiceResponse represents an invoice in API responses. The document URLs
// are presigned when possible and fall back to the stored key.
type InvoiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	Folio       string          `json:"folio"`
	IssueDate   time.Time       `json:"issue_date"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
	XMLURL      string          `json:"xml_url"`
	PDFURL      string          `json:"pdf_url"`
	SyncStatus  string          `json:"sync_status"`
	SyncError   *string         `json:"sync_error,omitempty"`
	UserID      uuid.UUID       `json:"user_id"`
	ReceptionID uuid.UUID       `json:"reception_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToInvoiceResponse converts a domain invoice, leaving document URLs as keys
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          inv.ID,
		Folio:       inv.Folio,
		IssueDate:   inv.IssueDate,
		Subtotal:    inv.Subtotal,
		Total:       inv.Total,
		XMLURL:      inv.XMLKey,
		PDFURL:      inv.PDFKey,
		SyncStatus:  inv.SyncStatus.String(),
		SyncError:   inv.SyncError,
		UserID:      inv.UserID,
		ReceptionID: inv.ReceptionID,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

// Viewer identifies who is reading an invoice
type Viewer struct {
	UserID   uuid.UUID
	Operator bool
}

// CanSee reports whether the viewer may read invoices owned by ownerID
func (v Viewer) CanSee(ownerID uuid.UUID) bool {
	return v.Operator || v.UserID == ownerID
}

// ListInvoicesRequest holds paging for the supplier's invoice list
type ListInvoicesRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at updated_at issue_date folio total sync_status"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ResyncResult reports an operator-triggered re-enqueue
type ResyncResult struct {
	Invoice   InvoiceResponse `json:"invoice"`
	Published bool            `json:"published"`
}

// ============================================================================
// Reception DTOs
// ============================================================================

// CreateReceptionRequest represents a request to record received goods
type CreateReceptionRequest struct {
	PurchaseOrderID uuid.UUID              `json:"purchaseOrderId" binding:"required"`
	Folio           string                 `json:"folio" binding:"required,min=1,max=100"`
	Date            time.Time              `json:"date" binding:"required"`
	Articles        []CreateArticleRequest `json:"articles" binding:"required,min=1,dive"`
}

// CreateArticleRequest is one received line item. Amounts are computed server side.
type CreateArticleRequest struct {
	Name      string          `json:"name" binding:"required,min=1,max=255"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"required"`
}

// ReceptionResponse represents a reception in API responses
type ReceptionResponse struct {
	ID              uuid.UUID         `json:"id"`
	PurchaseOrderID uuid.UUID         `json:"purchase_order_id"`
	Folio           string            `json:"folio"`
	Date            time.Time         `json:"date"`
	Articles        []ArticleResponse `json:"articles"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Total           decimal.Decimal   `json:"total"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ArticleResponse represents a reception article in API responses
type ArticleResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// ToReceptionResponse converts a domain reception with its derived totals
func ToReceptionResponse(r *invoicing.Reception) ReceptionResponse {
	articles := make([]ArticleResponse, len(r.Articles))
	for i := range r.Articles {
		a := r.Articles[i]
		a.Recompute()
		articles[i] = ArticleResponse{
			ID:        a.ID,
			Name:      a.Name,
			Quantity:  a.Quantity,
			UnitPrice: a.UnitPrice,
			Subtotal:  a.Subtotal,
			Tax:       a.Tax,
			Total:     a.Total,
		}
	}
	subtotal, total := r.Totals()
	return ReceptionResponse{
		ID:              r.ID,
		PurchaseOrderID: r.PurchaseOrderID,
		Folio:           r.Folio,
		Date:            r.Date,
		Articles:        articles,
		Subtotal:        subtotal,
		Total:           total,
		CreatedAt:       r.CreatedAt,
	}
}

// ============================================================================
// Purchase order import DTOs
// ============================================================================

// PurchaseOrderSyncResult summarizes one import from the ERP
type PurchaseOrderSyncResult struct {
	Message string `json:"message"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// ============================================================================
// Sweep DTOs
// ============================================================================

// StuckInvoice is a PENDING_SYNC invoice older than the sweep threshold
type StuckInvoice struct {
	ID        uuid.UUID     `json:"id"`
	Folio     string        `json:"folio"`
	UserID    uuid.UUID     `json:"user_id"`
	UpdatedAt time.Time     `json:"updated_at"`
	Age       time.Duration `json:"age"`
}

// SweepReport lists stuck invoices and what an explicit requeue did with them
type SweepReport struct {
	Cutoff   time.Time      `json:"cutoff"`
	Stuck    []StuckInvoice `json:"stuck"`
	Requeued int            `json:"requeued"`
	Failed   int            `json:"failed"`
}
