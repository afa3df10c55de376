// Package middleware provides interceptors and HTTP middleware for a
// surface.App.
package middleware

import (
	"log/slog"
	"time"

	"github.com/broady/surface"
)

// LoggingInterceptor creates an interceptor that logs each call using slog.
// It logs the start and end of each call, including duration and the
// envelope code of a failure.
func LoggingInterceptor(logger *slog.Logger) surface.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx *surface.Call, params any, next surface.HandlerFunc) (any, error) {
		start := time.Now()
		attrs := []any{slog.String("method", ctx.Method())}
		if ctx.Transport() != "" {
			attrs = append(attrs, slog.String("transport", ctx.Transport()))
		}
		if id := ctx.ConnID(); id != "" {
			attrs = append(attrs, slog.String("conn", id))
		}

		logger.DebugContext(ctx, "call started", attrs...)

		res, err := next(ctx, params)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if err != nil {
			envErr := surface.DefaultErrorTransformer(err)
			logger.WarnContext(ctx, "call failed",
				append(attrs,
					slog.Int("code", int(envErr.Code)),
					slog.Any("error", err))...)
		} else {
			logger.InfoContext(ctx, "call completed", attrs...)
		}

		return res, err
	}
}
