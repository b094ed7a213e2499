package invoicing

import (
	"context"
	"time"

	"github.com/portal/backend/internal/domain/invoicing"
	"go.uber.org/zap"
)

// SweepConfig holds stuck-invoice detection settings
type SweepConfig struct {
	StuckAfter time.Duration
	Limit      int
}

// SweepService reports invoices left in PENDING_SYNC, typically because their
// queue message was never published or was dead-lettered. It never requeues
// on its own; Sweep with requeue=true is an explicit operator action.
type SweepService struct {
	invoices  invoicing.InvoiceRepository
	publisher MessagePublisher
	metrics   PipelineRecorder
	config    SweepConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewSweepService creates a new SweepService
func NewSweepService(
	invoices invoicing.InvoiceRepository,
	publisher MessagePublisher,
	metrics PipelineRecorder,
	config SweepConfig,
	logger *zap.Logger,
) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.StuckAfter <= 0 {
		config.StuckAfter = 30 * time.Minute
	}
	if config.Limit <= 0 {
		config.Limit = 500
	}
	return &SweepService{
		invoices:  invoices,
		publisher: publisher,
		metrics:   recorderOrNop(metrics),
		config:    config,
		logger:    logger.Named("sweep"),
		now:       time.Now,
	}
}

// Sweep lists stuck invoices and records the gauge. With requeue set, each
// one's message is published again.
func (s *SweepService) Sweep(ctx context.Context, requeue bool) (*SweepReport, error) {
	now := s.now()
	cutoff := now.Add(-s.config.StuckAfter)

	invoices, err := s.invoices.FindPendingOlderThan(ctx, cutoff, s.config.Limit)
	if err != nil {
		return nil, err
	}
	s.metrics.StuckInvoices(ctx, len(invoices))

	report := &SweepReport{Cutoff: cutoff, Stuck: make([]StuckInvoice, 0, len(invoices))}
	for i := range invoices {
		inv := &invoices[i]
		stuck := StuckInvoice{
			ID:        inv.ID,
			Folio:     inv.Folio,
			UserID:    inv.UserID,
			UpdatedAt: inv.UpdatedAt,
			Age:       now.Sub(inv.UpdatedAt),
		}
		report.Stuck = append(report.Stuck, stuck)
		s.logger.Warn("Invoice stuck in PENDING_SYNC",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("folio", inv.Folio),
			zap.Duration("age", stuck.Age),
		)

		if !requeue {
			continue
		}
		if err := s.publisher.Publish(ctx, invoicing.NewQueueMessage(inv)); err != nil {
			report.Failed++
			s.logger.Error("Requeue failed", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
			continue
		}
		report.Requeued++
	}

	if len(invoices) > 0 || requeue {
		s.logger.Info("Sweep finished",
			zap.Int("stuck", len(invoices)),
			zap.Int("requeued", report.Requeued),
			zap.Int("requeue_failed", report.Failed),
		)
	}
	return report, nil
}
