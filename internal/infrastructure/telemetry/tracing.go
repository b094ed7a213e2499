package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for pipeline spans
const TracerName = "supplier-portal"

// Span attribute keys
const (
	SpanAttrInvoiceID   = "invoice.id"
	SpanAttrFolio       = "invoice.folio"
	SpanAttrReceptionID = "reception.id"
	SpanAttrBatchSize   = "batch.size"
	SpanAttrOutcome     = "outcome"
)

// StartSpan starts an internal span named name. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "worker.process_message",
//	    attribute.String(telemetry.SpanAttrInvoiceID, id))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// RecordError marks the span as failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id carried by ctx, or ""
func TraceID(ctx context.Context) string {
	id := trace.SpanContextFromContext(ctx).TraceID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}
