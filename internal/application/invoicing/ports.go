package invoicing

import (
	"context"
	"time"

	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// File is an uploaded document held in memory
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// DocumentStore keeps invoice documents in object storage.
// Implemented by the infrastructure layer (S3 or any S3-compatible store).
type DocumentStore interface {
	// Put stores the file under folder and returns its storage key
	Put(ctx context.Context, file File, folder string) (string, error)

	// Presign returns a temporary download URL, or "" when signing fails
	Presign(ctx context.Context, key string, ttl time.Duration) string

	// Delete removes the object; a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// MessagePublisher hands queue messages to the durable work queue
type MessagePublisher interface {
	Publish(ctx context.Context, msg invoicing.QueueMessage) error
}

// VendorBill is the payload the ERP action receives for one invoice
type VendorBill struct {
	SupplierTaxID         string          `json:"supplierTaxId"`
	ReceptionFolio        string          `json:"receptionFolio"`
	FiscalFolio           string          `json:"fiscalFolio"`
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	StructuredDocumentURL string          `json:"structuredDocumentUrl"`
	RenderedDocumentURL   string          `json:"renderedDocumentUrl"`
}

// VendorBillResult is the ERP's answer to a vendor bill submission.
// Raw holds the undecoded response for diagnostics.
type VendorBillResult struct {
	Success      bool   `json:"success"`
	VendorBillID string `json:"vendorBillId,omitempty"`
	Error        string `json:"error,omitempty"`
	Raw          string `json:"-"`
}

// VendorBillGateway submits vendor bills to the ERP
type VendorBillGateway interface {
	SubmitVendorBill(ctx context.Context, bill VendorBill) (*VendorBillResult, error)
}

// PurchaseOrderSource reads purchase orders from the ERP
type PurchaseOrderSource interface {
	FetchPurchaseOrders(ctx context.Context) ([]invoicing.PurchaseOrder, error)
}

// PipelineRecorder receives pipeline counters. telemetry.PipelineMetrics
// implements it; services fall back to a no-op recorder.
type PipelineRecorder interface {
	InvoiceSubmitted(ctx context.Context)
	SyncOutcome(ctx context.Context, outcome string)
	StuckInvoices(ctx context.Context, n int)
}

type nopRecorder struct{}

func (nopRecorder) InvoiceSubmitted(context.Context)    {}
func (nopRecorder) SyncOutcome(context.Context, string) {}
func (nopRecorder) StuckInvoices(context.Context, int)  {}

func recorderOrNop(r PipelineRecorder) PipelineRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
