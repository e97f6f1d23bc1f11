// Package middleware provides HTTP middleware components for request
// identification, logging, and other cross-cutting concerns.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/retailpulse/retailpulse-go/internal/logging"
)

// RequestIDHeader is the header used to propagate a request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an identifier, reusing one supplied by the
// caller when present. The identifier is echoed on the response and stored in
// the Gin context under "request_id".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger emits one structured log line per completed request. Health
// probes are skipped to keep the logs readable under frequent polling.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if requestID := c.GetString("request_id"); requestID != "" {
			fields["request_id"] = requestID
		}
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			fields["trace_id"] = span.SpanContext().TraceID().String()
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}
