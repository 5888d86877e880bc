package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-ID"

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			// Route patterns are only known inside the mux, so spans are
			// renamed after the handler runs
			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
			defer span.End()

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("request.id", requestID),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			req := r.WithContext(ctx)
			start := time.Now()

			next.ServeHTTP(rw, req)

			route := req.Pattern
			if route == "" {
				route = "unmatched"
			} else {
				span.SetName(route)
			}
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			observability.SetSpanAttributes(span,
				attribute.String("http.route", route),
				attribute.Int("http.status_code", rw.statusCode),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
