// Package observability holds Prometheus metrics and OpenTelemetry tracing
// for the meeting pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the meeting pipeline.
type Metrics struct {
	// Pipeline metrics
	SegmentsProcessedTotal *prometheus.CounterVec
	FactsDetectedTotal     prometheus.Counter
	FactsVerifiedTotal     prometheus.Counter
	IntentsDetectedTotal   *prometheus.CounterVec
	MeetingsFinalizedTotal prometheus.Counter
	ProcessingSeconds      prometheus.Histogram

	// Integration metrics
	IntegrationCallsTotal   *prometheus.CounterVec
	IntegrationCallSeconds  *prometheus.HistogramVec

	// LLM metrics
	LLMCallsTotal     *prometheus.CounterVec
	LLMLatencySeconds *prometheus.HistogramVec
	LLMTokensTotal    *prometheus.CounterVec
}

// Default creates metrics registered on the default registerer.
func Default() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SegmentsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verimeet_segments_processed_total",
				Help: "Total transcript segments processed",
			},
			[]string{"status"},
		),
		FactsDetectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verimeet_facts_detected_total",
				Help: "Total factual statements detected",
			},
		),
		FactsVerifiedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verimeet_facts_verified_total",
				Help: "Total facts verified against web search",
			},
		),
		IntentsDetectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verimeet_intents_detected_total",
				Help: "Total actionable intents detected",
			},
			[]string{"intent"},
		),
		MeetingsFinalizedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verimeet_meetings_finalized_total",
				Help: "Total meetings finalized",
			},
		),
		ProcessingSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "verimeet_segment_processing_seconds",
				Help:    "End to end processing latency per transcript segment",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
		),
		IntegrationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verimeet_integration_calls_total",
				Help: "Total calls to external integrations",
			},
			[]string{"service", "operation", "status"},
		),
		IntegrationCallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verimeet_integration_call_seconds",
				Help:    "External integration call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"service", "operation"},
		),
		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verimeet_llm_calls_total",
				Help: "Total LLM completions",
			},
			[]string{"operation", "model", "status"},
		),
		LLMLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verimeet_llm_latency_seconds",
				Help:    "LLM completion latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"operation", "model"},
		),
		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verimeet_llm_tokens_total",
				Help: "Total tokens consumed by LLM calls",
			},
			[]string{"direction", "model"},
		),
	}
}

// RecordSegment records a processed transcript segment.
func (m *Metrics) RecordSegment(status string, seconds float64) {
	m.SegmentsProcessedTotal.WithLabelValues(status).Inc()
	m.ProcessingSeconds.Observe(seconds)
}

// RecordFacts records detected and verified fact counts for one segment.
func (m *Metrics) RecordFacts(detected, verified int) {
	m.FactsDetectedTotal.Add(float64(detected))
	m.FactsVerifiedTotal.Add(float64(verified))
}

// RecordIntent records a detected intent.
func (m *Metrics) RecordIntent(intent string) {
	m.IntentsDetectedTotal.WithLabelValues(intent).Inc()
}

// RecordIntegrationCall records an external service call.
func (m *Metrics) RecordIntegrationCall(service, operation, status string, seconds float64) {
	m.IntegrationCallsTotal.WithLabelValues(service, operation, status).Inc()
	m.IntegrationCallSeconds.WithLabelValues(service, operation).Observe(seconds)
}

// RecordLLMCall records an LLM completion.
func (m *Metrics) RecordLLMCall(operation, model, status string, seconds float64, promptTokens, completionTokens int) {
	m.LLMCallsTotal.WithLabelValues(operation, model, status).Inc()
	m.LLMLatencySeconds.WithLabelValues(operation, model).Observe(seconds)
	m.LLMTokensTotal.WithLabelValues("prompt", model).Add(float64(promptTokens))
	m.LLMTokensTotal.WithLabelValues("completion", model).Add(float64(completionTokens))
}
