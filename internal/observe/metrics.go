// Package observe provides application-wide observability primitives for the
// earnings-call analyzer: OpenTelemetry metrics with a Prometheus exporter
// bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter so metrics can be scraped via the standard
// /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all analyzer metrics.
const meterName = "github.com/vishwa0198/earnings-call-analyzer"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks pipeline stage latency. Use with attribute:
	//   attribute.String("stage", ...): "process", "index", "retrieve", "answer"
	StageDuration metric.Float64Histogram

	// ProviderDuration tracks collaborator call latency. Use with attribute:
	//   attribute.String("kind", ...): "embeddings" or "generation"
	ProviderDuration metric.Float64Histogram

	// --- Counters ---

	// ChunksIndexed counts chunks (including split sub-chunks) written to the
	// vector index.
	ChunksIndexed metric.Int64Counter

	// Queries counts answered queries. Use with attribute:
	//   attribute.String("tier", ...): "high", "medium", "low", "out_of_scope"
	Queries metric.Int64Counter

	// ProviderRequests counts collaborator API calls. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts collaborator errors after retry exhaustion. Use
	// with attribute: attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// IndexSize tracks the number of entries currently in the vector index.
	IndexSize metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Pipeline
// stages are sub-second; collaborator round-trips can run into tens of
// seconds.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("callanalyzer.stage.duration",
		metric.WithDescription("Latency of pipeline stages by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("callanalyzer.provider.duration",
		metric.WithDescription("Latency of collaborator calls by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunksIndexed, err = m.Int64Counter("callanalyzer.chunks.indexed",
		metric.WithDescription("Total chunks written to the vector index."),
	); err != nil {
		return nil, err
	}
	if met.Queries, err = m.Int64Counter("callanalyzer.queries",
		metric.WithDescription("Total answered queries by confidence tier."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("callanalyzer.provider.requests",
		metric.WithDescription("Total collaborator API requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("callanalyzer.provider.errors",
		metric.WithDescription("Total collaborator errors after retry exhaustion, by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.IndexSize, err = m.Int64UpDownCounter("callanalyzer.index.size",
		metric.WithDescription("Number of entries currently in the vector index."),
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

// RecordStage records one stage duration observation.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordQuery records one answered query in the given confidence tier.
func (m *Metrics) RecordQuery(ctx context.Context, tier string) {
	m.Queries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordProviderRequest records a collaborator request with its outcome.
func (m *Metrics) RecordProviderRequest(ctx context.Context, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a collaborator failure that survived retries.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
