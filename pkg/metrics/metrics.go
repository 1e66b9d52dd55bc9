// Package metrics holds the OpenTelemetry instruments shared by the HTTP layer.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const meterName = "scim"

// Operations records request counts and latencies per SCIM operation.
type Operations struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOperations creates the instruments on the given provider. A nil provider
// yields instruments that record nothing.
func NewOperations(mp metric.MeterProvider) (*Operations, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter("scim.requests",
		metric.WithDescription("Number of handled SCIM requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("could not create requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("scim.request.duration",
		metric.WithDescription("Duration of SCIM requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &Operations{requests: requests, duration: duration}, nil
}

// Record adds one observation for operation finished with the given HTTP status.
func (o *Operations) Record(ctx context.Context, operation string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
	)
	o.requests.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}
