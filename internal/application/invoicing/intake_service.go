package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IntakeAcceptedMessage is returned to the supplier after a successful submission
const IntakeAcceptedMessage = "Invoice received and is being processed asynchronously"

// IntakeConfig holds submission settings
type IntakeConfig struct {
	// CrossValidate runs the full supplier/subsidiary/reception check at submission
	CrossValidate bool
	// MaxFileSize rejects larger documents; zero disables the check
	MaxFileSize int64
}

// PublishOutcome records whether the queue accepted an invoice's message.
// Intake logs it and returns success either way; invoices whose message was
// lost stay PENDING_SYNC and show up in the stuck-invoice sweep.
type PublishOutcome struct {
	InvoiceID uuid.UUID
	Published bool
	Err       error
}

func (o PublishOutcome) log(l *zap.Logger) {
	if o.Published {
		l.Info("Invoice queued for reconciliation", zap.String("invoice_id", o.InvoiceID.String()))
		return
	}
	l.Warn("Invoice stored but queue publish failed",
		zap.String("invoice_id", o.InvoiceID.String()),
		zap.Error(o.Err),
	)
}

// IntakeService accepts supplier invoice submissions
type IntakeService struct {
	invoices   invoicing.InvoiceRepository
	receptions invoicing.ReceptionRepository
	suppliers  invoicing.SupplierRepository
	store      DocumentStore
	publisher  MessagePublisher
	metrics    PipelineRecorder
	config     IntakeConfig
	logger     *zap.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	invoices invoicing.InvoiceRepository,
	receptions invoicing.ReceptionRepository,
	suppliers invoicing.SupplierRepository,
	store DocumentStore,
	publisher MessagePublisher,
	metrics PipelineRecorder,
	config IntakeConfig,
	logger *zap.Logger,
) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		invoices:   invoices,
		receptions: receptions,
		suppliers:  suppliers,
		store:      store,
		publisher:  publisher,
		metrics:    recorderOrNop(metrics),
		config:     config,
		logger:     logger,
	}
}

// Submit validates and stores an invoice, then queues it for the worker.
// Storage failures leave no invoice row behind.
func (s *IntakeService) Submit(ctx context.Context, in SubmitInvoiceInput) (*SubmitInvoiceResult, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	doc, err := invoicing.ParseDocumentBytes(in.StructuredDocument.Data)
	if err != nil {
		return nil, err
	}

	reception, err := s.receptions.FindByID(ctx, in.ReceptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Reception not found")
		}
		return nil, err
	}

	if s.config.CrossValidate {
		if err := s.crossValidate(ctx, doc, in.UserID, reception); err != nil {
			return nil, err
		}
	}

	if existing, err := s.invoices.FindByFolio(ctx, doc.FiscalFolio); err == nil && existing != nil {
		return nil, invoicing.ErrDuplicateFolio
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	folder := fmt.Sprintf("invoices/%s/%s", in.UserID, in.ReceptionID)
	xmlKey, err := s.store.Put(ctx, *in.StructuredDocument, folder)
	if err != nil {
		return nil, uploadError(in.StructuredDocument.Name, err)
	}
	pdfKey, err := s.store.Put(ctx, *in.RenderedDocument, folder)
	if err != nil {
		s.discard(ctx, xmlKey)
		return nil, uploadError(in.RenderedDocument.Name, err)
	}

	inv, err := invoicing.NewInvoice(doc, in.UserID, in.ReceptionID, xmlKey, pdfKey)
	if err != nil {
		s.discard(ctx, xmlKey, pdfKey)
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		// a concurrent submission of the same folio can win between the lookup and the insert
		s.discard(ctx, xmlKey, pdfKey)
		return nil, err
	}
	s.metrics.InvoiceSubmitted(ctx)

	s.publish(ctx, inv).log(s.logger)

	return &SubmitInvoiceResult{
		Message: IntakeAcceptedMessage,
		Invoice: ToInvoiceResponse(inv),
	}, nil
}

func (s *IntakeService) checkInput(in SubmitInvoiceInput) error {
	switch {
	case in.ReceptionID == uuid.Nil:
		return invoicing.ErrMissingRequiredField.WithMessage("Missing required field: receptionId")
	case in.UserID == uuid.Nil:
		return invoicing.ErrMissingRequiredField.WithMessage("Missing required field: userId")
	case in.StructuredDocument == nil || len(in.StructuredDocument.Data) == 0:
		return invoicing.ErrMissingRequiredField.WithMessage("Missing required field: xmlFile")
	case in.RenderedDocument == nil || len(in.RenderedDocument.Data) == 0:
		return invoicing.ErrMissingRequiredField.WithMessage("Missing required field: pdfFile")
	}
	if limit := s.config.MaxFileSize; limit > 0 {
		for _, f := range []*File{in.StructuredDocument, in.RenderedDocument} {
			if int64(len(f.Data)) > limit {
				return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("File %s exceeds the %d byte limit", f.Name, limit))
			}
		}
	}
	return nil
}

func (s *IntakeService) crossValidate(ctx context.Context, doc *invoicing.Document, userID uuid.UUID, reception *invoicing.Reception) error {
	profile, err := s.suppliers.FindProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound.WithMessage("Supplier profile not found")
		}
		return err
	}
	return invoicing.ValidateDocument(doc, invoicing.Reference{
		Supplier:   profile,
		Subsidiary: profile.Subsidiary,
		Reception:  reception,
	}, invoicing.IntakeTolerance)
}

func (s *IntakeService) publish(ctx context.Context, inv *invoicing.Invoice) PublishOutcome {
	err := s.publisher.Publish(ctx, invoicing.NewQueueMessage(inv))
	return PublishOutcome{InvoiceID: inv.ID, Published: err == nil, Err: err}
}

// discard removes uploads that no invoice row will reference. Failures are
// only logged.
func (s *IntakeService) discard(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to remove orphaned document", zap.String("key", key), zap.Error(err))
		}
	}
}

func uploadError(name string, cause error) error {
	return fmt.Errorf("%w: %s: %v", invoicing.ErrStorageUpload, name, cause)
}
