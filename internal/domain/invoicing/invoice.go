package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SyncStatus tracks reconciliation of an invoice into the ERP
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING_SYNC"
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// MaxSyncErrorLength bounds the stored sync error text
const MaxSyncErrorLength = 255

// IsValid checks if the status is a known value
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends a worker attempt
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSynced || s == SyncStatusFailed
}

func (s SyncStatus) String() string {
	return string(s)
}

// Invoice is a supplier-submitted bill awaiting or finished with ERP sync
type Invoice struct {
	shared.BaseEntity
	Folio       string
	IssueDate   time.Time
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
	XMLKey      string
	PDFKey      string
	SyncStatus  SyncStatus
	SyncError   *string
	UserID      uuid.UUID
	ReceptionID uuid.UUID
}

// NewInvoice creates an invoice in PENDING_SYNC from a parsed document
func NewInvoice(doc *Document, userID, receptionID uuid.UUID, xmlKey, pdfKey string) (*Invoice, error) {
	if doc == nil {
		return nil, ErrInvalidDocumentFormat
	}
	if doc.FiscalFolio == "" {
		return nil, ErrMissingFiscalFolio
	}
	if userID == uuid.Nil {
		return nil, missingField("userId")
	}
	if receptionID == uuid.Nil {
		return nil, missingField("receptionId")
	}
	return &Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		Folio:       doc.FiscalFolio,
		IssueDate:   doc.IssueDate,
		Subtotal:    doc.Subtotal,
		Total:       doc.Total,
		XMLKey:      xmlKey,
		PDFKey:      pdfKey,
		SyncStatus:  SyncStatusPending,
		UserID:      userID,
		ReceptionID: receptionID,
	}, nil
}

// MarkSynced moves the invoice to SYNCED and clears any error.
// Repeating it on a SYNCED invoice is a no-op.
func (i *Invoice) MarkSynced() {
	i.SyncStatus = SyncStatusSynced
	i.SyncError = nil
	i.Touch()
}

// MarkFailed moves the invoice to FAILED with a bounded reason.
// A SYNCED invoice is never downgraded.
func (i *Invoice) MarkFailed(reason string) error {
	if i.SyncStatus == SyncStatusSynced {
		return ErrInvalidTransition.WithMessage("Invoice is already synced")
	}
	msg := TruncateSyncError(reason)
	i.SyncStatus = SyncStatusFailed
	i.SyncError = &msg
	i.Touch()
	return nil
}

// ResetPending re-arms a FAILED or PENDING_SYNC invoice for another attempt
func (i *Invoice) ResetPending() error {
	if i.SyncStatus == SyncStatusSynced {
		return ErrInvalidTransition.WithMessage("Invoice is already synced")
	}
	i.SyncStatus = SyncStatusPending
	i.SyncError = nil
	i.Touch()
	return nil
}

// IsSynced returns true once the ERP accepted the invoice
func (i *Invoice) IsSynced() bool {
	return i.SyncStatus == SyncStatusSynced
}

// TruncateSyncError bounds an error message to MaxSyncErrorLength runes
func TruncateSyncError(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxSyncErrorLength {
		return msg
	}
	return string(r[:MaxSyncErrorLength])
}

// QueueMessage is the unit of asynchronous work handed from intake to the worker
type QueueMessage struct {
	InvoiceID   string `json:"invoiceId"`
	UserID      string `json:"userId"`
	ReceptionID string `json:"receptionId"`
}

// NewQueueMessage builds the message for an invoice
func NewQueueMessage(inv *Invoice) QueueMessage {
	return QueueMessage{
		InvoiceID:   inv.ID.String(),
		UserID:      inv.UserID.String(),
		ReceptionID: inv.ReceptionID.String(),
	}
}
