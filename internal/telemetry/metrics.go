package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	ChunksIndexed      metric.Int64Counter
	TestCasesMinted    metric.Int64Counter
	ScriptsSynthesized metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("qa-agent-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"kb.chunks.indexed",
		metric.WithDescription("Chunks written to the vector store"),
	)
	if err != nil {
		return nil, err
	}

	testCasesMinted, err := meter.Int64Counter(
		"testcases.minted.total",
		metric.WithDescription("Test-case records generated"),
	)
	if err != nil {
		return nil, err
	}

	scriptsSynthesized, err := meter.Int64Counter(
		"scripts.synthesized.total",
		metric.WithDescription("Selenium scripts rendered"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		ChunksIndexed:      chunksIndexed,
		TestCasesMinted:    testCasesMinted,
		ScriptsSynthesized: scriptsSynthesized,
	}, nil
}

// RecordRequest records one completed HTTP request
func (m *Metrics) RecordRequest(ctx context.Context, method, path, status string, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration, attrs)
}

// RecordChunksIndexed records chunks committed by one build_kb call
func (m *Metrics) RecordChunksIndexed(ctx context.Context, collection string, n int) {
	m.ChunksIndexed.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("collection", collection),
	))
}

// RecordTestCases records records minted by one generate call
func (m *Metrics) RecordTestCases(ctx context.Context, n int) {
	m.TestCasesMinted.Add(ctx, int64(n))
}

// RecordScript records one synthesized script
func (m *Metrics) RecordScript(ctx context.Context) {
	m.ScriptsSynthesized.Add(ctx, 1)
}
