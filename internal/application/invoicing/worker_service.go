package invoicing

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultPresignTTL gives the ERP a day to download the documents
const DefaultPresignTTL = 24 * time.Hour

// Sync error texts recorded on FAILED invoices
const (
	reasonIncompleteData = "Incomplete user or reception data"
	reasonValidation     = "Validation failed: "
	reasonERPRejected    = "ERP rejected: "
	reasonERPError       = "ERP request failed: "
)

// ErrERPDelivery is returned for a batch when ERP transport errors should
// make the queue redeliver it
var ErrERPDelivery = errors.New("erp delivery failed")

// ErrUnreadableBatch is returned for an invocation body that is not JSON.
// It fails the whole invocation so the queue redelivers or dead-letters it.
var ErrUnreadableBatch = errors.New("worker payload is not valid JSON")

// WorkerConfig holds reconciliation worker settings
type WorkerConfig struct {
	SecretKey string
	// RedeliverOnERPError turns ERP transport errors into batch failures
	RedeliverOnERPError bool
	PresignTTL          time.Duration
}

// OutcomeKind tags how a single queue message ended
type OutcomeKind string

const (
	OutcomeProcessed OutcomeKind = "processed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// MessageOutcome is the result of handling one queue message
type MessageOutcome struct {
	InvoiceID    string      `json:"invoice_id,omitempty"`
	Kind         OutcomeKind `json:"outcome"`
	Reason       string      `json:"reason,omitempty"`
	VendorBillID string      `json:"vendor_bill_id,omitempty"`

	erpErr error
}

// BatchReport aggregates the outcomes of one worker invocation
type BatchReport struct {
	Records   int              `json:"records"`
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Outcomes  []MessageOutcome `json:"outcomes"`
}

func (r *BatchReport) add(o MessageOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Kind {
	case OutcomeProcessed:
		r.Processed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Message is the summary returned to the invoker
func (r *BatchReport) Message() string {
	return fmt.Sprintf("Processed %d records.", r.Records)
}

// erpErrors collects the transport errors seen in the batch
func (r *BatchReport) erpErrors() []error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.erpErr != nil {
			errs = append(errs, o.erpErr)
		}
	}
	return errs
}

// WorkerService reconciles queued invoices against receptions and syncs them to the ERP
type WorkerService struct {
	invoices   invoicing.InvoiceRepository
	receptions invoicing.ReceptionRepository
	suppliers  invoicing.SupplierRepository
	store      DocumentStore
	gateway    VendorBillGateway
	metrics    PipelineRecorder
	config     WorkerConfig
	logger     *zap.Logger
}

// NewWorkerService creates a new WorkerService
func NewWorkerService(
	invoices invoicing.InvoiceRepository,
	receptions invoicing.ReceptionRepository,
	suppliers invoicing.SupplierRepository,
	store DocumentStore,
	gateway VendorBillGateway,
	metrics PipelineRecorder,
	config WorkerConfig,
	logger *zap.Logger,
) *WorkerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PresignTTL <= 0 {
		config.PresignTTL = DefaultPresignTTL
	}
	return &WorkerService{
		invoices:   invoices,
		receptions: receptions,
		suppliers:  suppliers,
		store:      store,
		gateway:    gateway,
		metrics:    recorderOrNop(metrics),
		config:     config,
		logger:     logger.Named("worker"),
	}
}

// Authenticate checks the shared secret presented by an external invoker.
// An unconfigured secret rejects every invocation.
func (s *WorkerService) Authenticate(credential string) error {
	if s.config.SecretKey == "" || credential == "" {
		return invoicing.ErrUnauthorizedWorker
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(s.config.SecretKey)) != 1 {
		return invoicing.ErrUnauthorizedWorker
	}
	return nil
}

// HandleInvocation authenticates and processes a pushed batch body
func (s *WorkerService) HandleInvocation(ctx context.Context, credential string, body []byte) (*BatchReport, error) {
	if err := s.Authenticate(credential); err != nil {
		s.logger.Warn("Rejected worker invocation")
		return nil, err
	}
	records, err := ParseBatch(body)
	if err != nil {
		return nil, err
	}
	return s.ProcessRecords(ctx, records)
}

// HandleBatch processes records popped from the in-process queue. It has the
// queue.BatchHandler shape; a returned error makes the queue redeliver.
func (s *WorkerService) HandleBatch(ctx context.Context, records []json.RawMessage) error {
	_, err := s.ProcessRecords(ctx, records)
	return err
}

// ProcessRecords handles each record in order. A failed message never stops
// its siblings; only infrastructure errors outside a message's own
// bookkeeping abort the batch.
func (s *WorkerService) ProcessRecords(ctx context.Context, records []json.RawMessage) (*BatchReport, error) {
	report := &BatchReport{Records: len(records), Outcomes: make([]MessageOutcome, 0, len(records))}

	for _, record := range records {
		msg := DecodeRecord(record)
		outcome, err := s.process(ctx, msg)
		if err != nil {
			s.logger.Error("Worker batch aborted",
				zap.String("invoice_id", msg.InvoiceID),
				zap.Int("batch_size", len(records)),
				zap.Error(err),
			)
			return report, err
		}
		report.add(outcome)
		s.metrics.SyncOutcome(ctx, string(outcome.Kind))
		s.logOutcome(outcome)
	}

	s.logger.Info("Worker batch finished",
		zap.Int("batch_size", report.Records),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)

	if s.config.RedeliverOnERPError {
		if errs := report.erpErrors(); len(errs) > 0 {
			return report, fmt.Errorf("%w: %w", ErrERPDelivery, errors.Join(errs...))
		}
	}
	return report, nil
}

func (s *WorkerService) logOutcome(o MessageOutcome) {
	fields := []zap.Field{
		zap.String("invoice_id", o.InvoiceID),
		zap.String("outcome", string(o.Kind)),
	}
	switch o.Kind {
	case OutcomeProcessed:
		s.logger.Info("Invoice synced to ERP", append(fields, zap.String("vendor_bill_id", o.VendorBillID))...)
	case OutcomeSkipped:
		s.logger.Info("Queue message skipped", append(fields, zap.String("reason", o.Reason))...)
	default:
		s.logger.Warn("Invoice reconciliation failed", append(fields, zap.String("reason", o.Reason))...)
	}
}

// process runs one message to a terminal outcome
func (s *WorkerService) process(ctx context.Context, msg invoicing.QueueMessage) (MessageOutcome, error) {
	if msg.InvoiceID == "" {
		return MessageOutcome{Kind: OutcomeSkipped, Reason: "message has no invoiceId"}, nil
	}
	id, err := uuid.Parse(msg.InvoiceID)
	if err != nil {
		return MessageOutcome{InvoiceID: msg.InvoiceID, Kind: OutcomeSkipped, Reason: "invoiceId is not a UUID"}, nil
	}

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.failMissing(ctx, id, reasonIncompleteData), nil
		}
		return MessageOutcome{}, err
	}
	if inv.IsSynced() {
		return MessageOutcome{InvoiceID: msg.InvoiceID, Kind: OutcomeSkipped, Reason: "already synced"}, nil
	}

	profile, err := s.suppliers.FindProfileByUserID(ctx, inv.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.fail(ctx, inv, reasonIncompleteData, nil), nil
		}
		return MessageOutcome{}, err
	}
	reception, err := s.receptions.FindByID(ctx, inv.ReceptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.fail(ctx, inv, reasonIncompleteData, nil), nil
		}
		return MessageOutcome{}, err
	}

	if mismatches := invoicing.CheckAmounts(inv.Subtotal, inv.Total, reception, invoicing.WorkerTolerance); len(mismatches) > 0 {
		msgs := make([]string, len(mismatches))
		for i, m := range mismatches {
			msgs[i] = m.String()
		}
		return s.fail(ctx, inv, reasonValidation+strings.Join(msgs, " | "), nil), nil
	}

	bill := VendorBill{
		SupplierTaxID:         profile.RFC,
		ReceptionFolio:        reception.Folio,
		FiscalFolio:           inv.Folio,
		TotalAmount:           inv.Total,
		StructuredDocumentURL: s.store.Presign(ctx, inv.XMLKey, s.config.PresignTTL),
		RenderedDocumentURL:   s.store.Presign(ctx, inv.PDFKey, s.config.PresignTTL),
	}

	result, err := s.gateway.SubmitVendorBill(ctx, bill)
	if err != nil {
		return s.fail(ctx, inv, reasonERPError+err.Error(), err), nil
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = result.Raw
		}
		return s.fail(ctx, inv, reasonERPRejected+reason, nil), nil
	}

	inv.MarkSynced()
	_ = s.record(ctx, inv.ID, inv.SyncStatus, nil)
	return MessageOutcome{InvoiceID: msg.InvoiceID, Kind: OutcomeProcessed, VendorBillID: result.VendorBillID}, nil
}

func (s *WorkerService) fail(ctx context.Context, inv *invoicing.Invoice, reason string, erpErr error) MessageOutcome {
	if err := inv.MarkFailed(reason); err != nil {
		return MessageOutcome{InvoiceID: inv.ID.String(), Kind: OutcomeSkipped, Reason: "already synced"}
	}
	if err := s.record(ctx, inv.ID, inv.SyncStatus, inv.SyncError); errors.Is(err, invoicing.ErrInvalidTransition) {
		// a redelivered copy of this message synced the invoice while this one waited
		return MessageOutcome{InvoiceID: inv.ID.String(), Kind: OutcomeSkipped, Reason: "already synced"}
	}
	return MessageOutcome{InvoiceID: inv.ID.String(), Kind: OutcomeFailed, Reason: *inv.SyncError, erpErr: erpErr}
}

// failMissing records FAILED for an invoice that could not be loaded. The
// update usually finds no row; that is logged and the batch moves on.
func (s *WorkerService) failMissing(ctx context.Context, id uuid.UUID, reason string) MessageOutcome {
	msg := invoicing.TruncateSyncError(reason)
	_ = s.record(ctx, id, invoicing.SyncStatusFailed, &msg)
	return MessageOutcome{InvoiceID: id.String(), Kind: OutcomeFailed, Reason: msg}
}

// record persists a status transition. Failures are logged and returned for
// inspection; they never abort the batch.
func (s *WorkerService) record(ctx context.Context, id uuid.UUID, status invoicing.SyncStatus, syncError *string) error {
	err := s.invoices.UpdateSyncStatus(ctx, id, status, syncError)
	switch {
	case err == nil:
	case errors.Is(err, invoicing.ErrInvalidTransition):
		s.logger.Warn("Invoice synced concurrently, keeping SYNCED",
			zap.String("invoice_id", id.String()),
			zap.String("status", status.String()),
		)
	default:
		s.logger.Error("Failed to record sync status",
			zap.String("invoice_id", id.String()),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
	return err
}

// ParseBatch splits an invocation body into records. A {"Records":[...]}
// object yields one record per element; any other JSON value is a single
// record and is skipped later if it carries no invoiceId.
func ParseBatch(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, ErrUnreadableBatch
	}
	if body[0] == '{' {
		var envelope struct {
			Records []json.RawMessage `json:"Records"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Records != nil {
			return envelope.Records, nil
		}
	}
	return []json.RawMessage{json.RawMessage(body)}, nil
}

// DecodeRecord extracts the queue message from a record. The body field may
// hold the message as an object or as a JSON string; a record without a
// usable body is read as the message itself.
func DecodeRecord(record json.RawMessage) invoicing.QueueMessage {
	var wrapper struct {
		Body json.RawMessage `json:"body"`
	}
	payload := []byte(record)
	if err := json.Unmarshal(record, &wrapper); err == nil && len(wrapper.Body) > 0 {
		var text string
		switch {
		case json.Unmarshal(wrapper.Body, &text) == nil:
			if json.Valid([]byte(text)) {
				payload = []byte(text)
			}
		case bytes.HasPrefix(bytes.TrimSpace(wrapper.Body), []byte("{")):
			payload = wrapper.Body
		}
	}

	var msg invoicing.QueueMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return invoicing.QueueMessage{}
	}
	return msg
}
