package middleware

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/broady/surface"
)

// Instrument names recorded by MetricsInterceptor.
const (
	MetricCalls    = "surface.calls.total"
	MetricErrors   = "surface.errors.total"
	MetricDuration = "surface.call.duration"
	MetricActive   = "surface.calls.active"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// MetricsInterceptor records a call counter, an error counter, a duration
// histogram and an active-call gauge, each keyed by the method name.
// Errors additionally carry the envelope code.
func MetricsInterceptor(meter metric.Meter) (surface.UnaryInterceptor, error) {
	calls, err := meter.Int64Counter(MetricCalls,
		metric.WithDescription("Total number of calls dispatched"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, errors.Wrap(err, "create call counter")
	}
	failures, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Total number of failed calls"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, errors.Wrap(err, "create error counter")
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	if err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}
	active, err := meter.Int64UpDownCounter(MetricActive,
		metric.WithDescription("Number of calls in flight"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, errors.Wrap(err, "create active gauge")
	}

	return func(ctx *surface.Call, params any, next surface.HandlerFunc) (any, error) {
		method := metric.WithAttributes(attribute.String("method", ctx.Method()))

		calls.Add(ctx, 1, method)
		active.Add(ctx, 1, method)
		start := time.Now()

		res, err := next(ctx, params)

		duration.Record(ctx, time.Since(start).Seconds(), method)
		active.Add(ctx, -1, method)
		if err != nil {
			code := surface.DefaultErrorTransformer(err).Code
			failures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("method", ctx.Method()),
				attribute.Int("code", int(code))))
		}
		return res, err
	}, nil
}
