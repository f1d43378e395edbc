package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/smazurov/projectnode/internal/logging"
)

type contextKey string

// requestIDKey carries the generated request id through the handler chain.
const requestIDKey contextKey = "request_id"

// RequestIDMiddleware assigns each request a UUID, exposed via the
// X-Request-Id response header and the request context.
func RequestIDMiddleware(ctx huma.Context, next func(huma.Context)) {
	id := uuid.NewString()
	ctx.SetHeader("X-Request-Id", id)
	next(huma.WithValue(ctx, requestIDKey, id))
}

// RequestID returns the request id stored by RequestIDMiddleware, if any.
func RequestID(ctx huma.Context) string {
	if id, ok := ctx.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// HTTPLoggingMiddleware logs HTTP requests with appropriate log levels based on status codes.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	path := ctx.URL().Path
	query := ctx.URL().RawQuery
	userAgent := ctx.Header("User-Agent")
	remoteAddr := ctx.RemoteAddr()

	logAttrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", remoteAddr),
	}

	if query != "" {
		logAttrs = append(logAttrs, slog.String("query", query))
	}

	if userAgent != "" {
		logAttrs = append(logAttrs, slog.String("user_agent", userAgent))
	}

	if id := RequestID(ctx); id != "" {
		logAttrs = append(logAttrs, slog.String("request_id", id))
	}

	next(ctx)

	duration := time.Since(start)
	status := ctx.Status()

	logAttrs = append(logAttrs,
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)

	// Determine log level based on method and status code
	message := "HTTP request completed"
	switch {
	case method == "OPTIONS":
		// CORS preflight requests - DEBUG level
		logger.LogAttrs(ctx.Context(), slog.LevelDebug, message, logAttrs...)
	case status >= 500:
		logger.LogAttrs(ctx.Context(), slog.LevelError, message, logAttrs...)
	case status >= 400:
		logger.LogAttrs(ctx.Context(), slog.LevelWarn, message, logAttrs...)
	default:
		logger.LogAttrs(ctx.Context(), slog.LevelInfo, message, logAttrs...)
	}
}
