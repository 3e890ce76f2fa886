// Package metrics records service counters through the OpenTelemetry
// metric API. Instruments resolve against the global meter provider, so
// without an installed exporter every call is a no-op.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/finprompt/refinery"

// Recorder holds the service's instruments.
type Recorder struct {
	requests      metric.Int64Counter
	rateLimited   metric.Int64Counter
	providerCalls metric.Int64Counter
	providerMS    metric.Float64Histogram
}

// New creates a Recorder against the global meter provider. Instrument
// creation only fails on malformed names, so errors are ignored.
func New() *Recorder {
	meter := otel.Meter(scope)

	r := &Recorder{}
	r.requests, _ = meter.Int64Counter("refinery.requests",
		metric.WithDescription("HTTP requests by route and status"))
	r.rateLimited, _ = meter.Int64Counter("refinery.ratelimit.rejected",
		metric.WithDescription("Requests rejected by the rate limiter"))
	r.providerCalls, _ = meter.Int64Counter("refinery.provider.calls",
		metric.WithDescription("Model provider calls by provider and outcome"))
	r.providerMS, _ = meter.Float64Histogram("refinery.provider.duration",
		metric.WithDescription("Model provider call duration"),
		metric.WithUnit("ms"))
	return r
}

// Request counts one handled HTTP request.
func (r *Recorder) Request(ctx context.Context, route string, status int) {
	r.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// RateLimited counts one rejected request.
func (r *Recorder) RateLimited(ctx context.Context, route string) {
	r.rateLimited.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
	))
}

// ProviderCall records one provider invocation with its duration.
func (r *Recorder) ProviderCall(ctx context.Context, provider string, ok bool, elapsedMS float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("ok", ok),
	)
	r.providerCalls.Add(ctx, 1, attrs)
	r.providerMS.Record(ctx, elapsedMS, attrs)
}
