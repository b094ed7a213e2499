package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names exported by the invoice pipeline
const (
	MetricInvoicesSubmitted  = "portal_invoices_submitted_total"
	MetricSyncOutcomes       = "portal_invoice_sync_outcomes_total"
	MetricERPRequestDuration = "portal_erp_request_duration_seconds"
	MetricStuckInvoices      = "portal_stuck_invoices"
)

// Metric attribute keys
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrOperation = attribute.Key("operation")
	AttrResult    = attribute.Key("result")
)

// ERP round trips range from a cached SuiteQL page to a slow RESTlet bill creation.
var erpDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// PipelineMetrics records intake, worker, ERP and sweep activity
type PipelineMetrics struct {
	submitted   metric.Int64Counter
	outcomes    metric.Int64Counter
	erpDuration metric.Float64Histogram
	stuck       metric.Int64Gauge
}

// NewPipelineMetrics registers the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)
	if m.submitted, err = meter.Int64Counter(MetricInvoicesSubmitted,
		metric.WithDescription("Invoices accepted by intake"), metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.outcomes, err = meter.Int64Counter(MetricSyncOutcomes,
		metric.WithDescription("Worker outcomes per queue message"), metric.WithUnit("{message}")); err != nil {
		return nil, err
	}
	if m.erpDuration, err = meter.Float64Histogram(MetricERPRequestDuration,
		metric.WithDescription("ERP request latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(erpDurationBuckets...)); err != nil {
		return nil, err
	}
	if m.stuck, err = meter.Int64Gauge(MetricStuckInvoices,
		metric.WithDescription("Invoices pending sync past the sweep threshold"), metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *PipelineMetrics) InvoiceSubmitted(ctx context.Context) {
	m.submitted.Add(ctx, 1)
}

// SyncOutcome counts one worker outcome (synced, failed, skipped)
func (m *PipelineMetrics) SyncOutcome(ctx context.Context, outcome string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

// RecordERPRequest observes one ERP round trip
func (m *PipelineMetrics) RecordERPRequest(ctx context.Context, operation string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.erpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOperation.String(operation), AttrResult.String(result)))
}

// StuckInvoices sets the number of invoices found by the last sweep
func (m *PipelineMetrics) StuckInvoices(ctx context.Context, n int) {
	m.stuck.Record(ctx, int64(n))
}
