// Package observe provides application-wide observability primitives for
// Auricle: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Auricle metrics.
const meterName = "github.com/auricle-ai/auricle"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// LLMDuration tracks LLM inference latency. Use with attribute:
	//   attribute.String("call", "topic_extraction"|"claim_selection"|"query_optimization"|"verification")
	LLMDuration metric.Float64Histogram

	// SearchDuration tracks web search latency. Use with attribute:
	//   attribute.String("kind", "text"|"images")
	SearchDuration metric.Float64Histogram

	// FactCheckDuration tracks end-to-end verification latency per claim,
	// from dequeue to recorded result.
	FactCheckDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsIngested counts transcript segments entering the pipeline.
	// Use with attribute: attribute.Bool("final", ...)
	SegmentsIngested metric.Int64Counter

	// TopicDecisions counts topic engine outcomes. Use with attribute:
	//   attribute.String("decision", "created"|"reused")
	TopicDecisions metric.Int64Counter

	// ClaimsSelected counts claims entering the fact queue.
	ClaimsSelected metric.Int64Counter

	// FactVerdicts counts completed verifications. Use with attribute:
	//   attribute.String("verdict", ...)
	FactVerdicts metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ClaimQueueDepth tracks the number of claims awaiting verification.
	ClaimQueueDepth metric.Int64UpDownCounter

	// ActiveSessions tracks the number of live audio sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are wide because a single verification chains an LLM call, a web
// search, and a second LLM call.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.LLMDuration, err = m.Float64Histogram("auricle.llm.duration",
		metric.WithDescription("Latency of LLM inference by call type."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SearchDuration, err = m.Float64Histogram("auricle.search.duration",
		metric.WithDescription("Latency of web searches by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FactCheckDuration, err = m.Float64Histogram("auricle.fact_check.duration",
		metric.WithDescription("End-to-end verification latency per claim."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsIngested, err = m.Int64Counter("auricle.segments.ingested",
		metric.WithDescription("Total transcript segments ingested, partial and final."),
	); err != nil {
		return nil, err
	}
	if met.TopicDecisions, err = m.Int64Counter("auricle.topic.decisions",
		metric.WithDescription("Total topic engine outcomes by decision."),
	); err != nil {
		return nil, err
	}
	if met.ClaimsSelected, err = m.Int64Counter("auricle.claims.selected",
		metric.WithDescription("Total claims selected for verification."),
	); err != nil {
		return nil, err
	}
	if met.FactVerdicts, err = m.Int64Counter("auricle.fact.verdicts",
		metric.WithDescription("Total completed verifications by verdict."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("auricle.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("auricle.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ClaimQueueDepth, err = m.Int64UpDownCounter("auricle.claim_queue.depth",
		metric.WithDescription("Number of claims awaiting verification."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("auricle.active_sessions",
		metric.WithDescription("Number of live audio sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("auricle.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordLLMCall records an LLM inference duration for the given call type.
func (m *Metrics) RecordLLMCall(ctx context.Context, call string, seconds float64) {
	m.LLMDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("call", call)),
	)
}

// RecordSearch records a web search duration for the given search kind.
func (m *Metrics) RecordSearch(ctx context.Context, kind string, seconds float64) {
	m.SearchDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordTopicDecision records a topic engine outcome.
func (m *Metrics) RecordTopicDecision(ctx context.Context, reused bool) {
	decision := "created"
	if reused {
		decision = "reused"
	}
	m.TopicDecisions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("decision", decision)),
	)
}

// RecordFactVerdict records a completed verification verdict.
func (m *Metrics) RecordFactVerdict(ctx context.Context, verdict string) {
	m.FactVerdicts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", verdict)),
	)
}

// RequestStatus renders a call outcome as the status attribute value for
// [Metrics.RecordProviderRequest].
func RequestStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
