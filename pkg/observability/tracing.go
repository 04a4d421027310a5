package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for meeting pipeline operations.
const TracerName = "verimeet"

// Span attribute keys
const (
	AttrBotID       = "bot_id"
	AttrMeetingURL  = "meeting_url"
	AttrSegment     = "segment_index"
	AttrIntent      = "intent"
	AttrService     = "service"
	AttrModel       = "model"
	AttrFactCount   = "fact_count"
	AttrIntentCount = "intent_count"
)

// Span names
const (
	SpanProcessSegment  = "verimeet.process_segment"
	SpanDetectFacts     = "verimeet.detect_facts"
	SpanVerifyFact      = "verimeet.verify_fact"
	SpanDetectIntents   = "verimeet.detect_intents"
	SpanUpdateSummary   = "verimeet.update_summary"
	SpanFinalizeMeeting = "verimeet.finalize_meeting"
	SpanIntegrationCall = "verimeet.integration_call"
)

// Tracer provides distributed tracing for the meeting pipeline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a pipeline tracer.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartSegmentSpan starts a root span for processing one transcript segment.
func (t *Tracer) StartSegmentSpan(ctx context.Context, botID string, segmentIndex int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProcessSegment,
		trace.WithAttributes(
			attribute.String(AttrBotID, botID),
			attribute.Int(AttrSegment, segmentIndex),
		),
	)
}

// StartFinalizeSpan starts a span for finalizing a meeting.
func (t *Tracer) StartFinalizeSpan(ctx context.Context, botID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanFinalizeMeeting,
		trace.WithAttributes(attribute.String(AttrBotID, botID)),
	)
}

// StartSpan starts a named child span.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartIntegrationSpan starts a span for an external service call.
func (t *Tracer) StartIntegrationSpan(ctx context.Context, service string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanIntegrationCall,
		trace.WithAttributes(attribute.String(AttrService, service)),
	)
}

// RecordError records an error on the span and marks it failed.
func RecordError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// TraceID returns the trace id from the context, or "" when not tracing.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
