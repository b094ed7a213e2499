package invoicing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceptionService records goods received against purchase orders
type ReceptionService struct {
	receptions invoicing.ReceptionRepository
	orders     invoicing.PurchaseOrderRepository
	logger     *zap.Logger
}

// NewReceptionService creates a new ReceptionService
func NewReceptionService(
	receptions invoicing.ReceptionRepository,
	orders invoicing.PurchaseOrderRepository,
	logger *zap.Logger,
) *ReceptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceptionService{
		receptions: receptions,
		orders:     orders,
		logger:     logger,
	}
}

// Create stores a reception. Article amounts are computed here regardless of
// what the client sent.
func (s *ReceptionService) Create(ctx context.Context, req CreateReceptionRequest) (*ReceptionResponse, error) {
	if _, err := s.orders.FindByID(ctx, req.PurchaseOrderID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Purchase order not found")
		}
		return nil, err
	}

	articles := make([]invoicing.Article, 0, len(req.Articles))
	for _, a := range req.Articles {
		article, err := invoicing.NewArticle(a.Name, a.Quantity, a.UnitPrice)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	reception, err := invoicing.NewReception(req.PurchaseOrderID, req.Folio, req.Date, articles)
	if err != nil {
		return nil, err
	}
	if err := s.receptions.Create(ctx, reception); err != nil {
		return nil, err
	}

	s.logger.Info("Reception created",
		zap.String("reception_id", reception.ID.String()),
		zap.String("folio", reception.Folio),
		zap.Int("articles", len(articles)),
	)
	resp := ToReceptionResponse(reception)
	return &resp, nil
}

// Get returns a reception with its derived totals
func (s *ReceptionService) Get(ctx context.Context, id uuid.UUID) (*ReceptionResponse, error) {
	reception, err := s.receptions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Reception not found")
		}
		return nil, err
	}
	resp := ToReceptionResponse(reception)
	return &resp, nil
}
