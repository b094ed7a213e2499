package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ListPresignTTL bounds document links handed to suppliers
const ListPresignTTL = time.Hour

// ErrRequeueFailed is returned when an operator resync could not reach the queue
var ErrRequeueFailed = shared.NewDomainError("REQUEUE_FAILED", "Invoice was reset but could not be queued")

// InvoiceService serves invoice reads and operator resyncs
type InvoiceService struct {
	invoices  invoicing.InvoiceRepository
	store     DocumentStore
	publisher MessagePublisher
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoices invoicing.InvoiceRepository,
	store DocumentStore,
	publisher MessagePublisher,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoices:  invoices,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns the user's invoices, newest first, with presigned document links
func (s *InvoiceService) List(ctx context.Context, userID uuid.UUID, req ListInvoicesRequest) (shared.Paginated[InvoiceResponse], error) {
	filter := shared.Filter{Page: req.Page, PageSize: req.PageSize, OrderBy: req.OrderBy, OrderDir: req.OrderDir}.Normalize()

	invoices, total, err := s.invoices.ListByUser(ctx, userID, filter)
	if err != nil {
		return shared.Paginated[InvoiceResponse]{}, err
	}

	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = s.withLinks(ctx, &invoices[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Get returns one invoice. Invoices owned by someone else read as not found.
func (s *InvoiceService) Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	resp := s.withLinks(ctx, inv)
	return &resp, nil
}

// Resync resets a FAILED or stuck PENDING_SYNC invoice and queues it again.
// SYNCED invoices are refused.
func (s *InvoiceService) Resync(ctx context.Context, viewer Viewer, id uuid.UUID) (*ResyncResult, error) {
	inv, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := inv.ResetPending(); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateSyncStatus(ctx, inv.ID, inv.SyncStatus, nil); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, invoicing.NewQueueMessage(inv)); err != nil {
		s.logger.Error("Resync publish failed", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		return nil, ErrRequeueFailed
	}
	s.logger.Info("Invoice requeued", zap.String("invoice_id", inv.ID.String()))
	return &ResyncResult{Invoice: ToInvoiceResponse(inv), Published: true}, nil
}

func (s *InvoiceService) load(ctx context.Context, viewer Viewer, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Invoice not found")
		}
		return nil, err
	}
	if !viewer.CanSee(inv.UserID) {
		return nil, shared.ErrNotFound.WithMessage("Invoice not found")
	}
	return inv, nil
}

// withLinks presigns both documents, keeping the stored key when signing fails
func (s *InvoiceService) withLinks(ctx context.Context, inv *invoicing.Invoice) InvoiceResponse {
	resp := ToInvoiceResponse(inv)
	if url := s.store.Presign(ctx, inv.XMLKey, ListPresignTTL); url != "" {
		resp.XMLURL = url
	}
	if url := s.store.Presign(ctx, inv.PDFKey, ListPresignTTL); url != "" {
		resp.PDFURL = url
	}
	return resp
}
