package session

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// sessionMetrics holds the metric instruments of the session. All methods
// are safe on a nil receiver, so an unconfigured session pays nothing.
type sessionMetrics struct {
	operations metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
}

func newSessionMetrics(provider metric.MeterProvider) (*sessionMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter("github.com/sigraph-ai/sigraph/session")

	m := &sessionMetrics{}
	var err error
	m.operations, err = meter.Int64Counter(
		"sigraph.operations",
		metric.WithDescription("Number of graph operations performed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}
	m.failures, err = meter.Int64Counter(
		"sigraph.failures",
		metric.WithDescription("Number of graph operations that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	m.duration, err = meter.Float64Histogram(
		"sigraph.duration",
		metric.WithDescription("Graph operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return m, nil
}

func (m *sessionMetrics) record(ctx context.Context, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m.operations.Add(ctx, 1, attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	m.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}
