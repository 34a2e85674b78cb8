// Package middleware provides Gin HTTP middleware for the portal gateway.
// All middleware in this package is registered in internal/api/router.go before
// any route handlers so that every request is covered regardless of handler.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → SecurityHeaders → RateLimit → SessionAuth → Handler
//
// Security headers run on all responses including errors. Rate limiting runs
// before session auth to bound brute-force attempts before any crypto work.
// SessionAuth populates the user identity and platform credentials; role
// checks read from that context.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/telemetry"
)

// MetricsMiddleware returns a Gin handler that records two Prometheus metrics for every
// request that passes through the router.
//
// Recorded metrics:
//   - http_requests_total{method, path, status}    (CounterVec)
//   - http_request_duration_seconds{method, path}  (HistogramVec)
//
// The path label is set from c.FullPath(), which returns the matched Gin route template
// (e.g. /portal/certificates/:id) rather than the raw URL, so certificate IDs never
// become label values. Requests that do not match any registered route (404/405) use
// the literal string "<no-route>" so unhandled paths do not inflate label cardinality.
//
// This middleware must be registered AFTER gin.Recovery() and RequestIDMiddleware so
// that the response status set by error handlers is captured correctly.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
