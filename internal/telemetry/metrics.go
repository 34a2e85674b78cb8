// Package telemetry provides application-level observability for the portal
// gateway.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by cmd/server:
//
//	GET http(s)://<host>:<CFP_TELEMETRY_METRICS_PORT>/metrics
//
// Default port: 9090. The endpoint is intentionally not part of the Gin
// router so the scrape path stays off the public ingress and outside the
// rate-limiting middleware.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route
//     template, not raw URL, to keep label cardinality bounded)
//   - Platform API call counters (labelled by operation name and status)
//   - Certificate verification attempt counters (labelled by outcome)
//   - Active portal session gauge
//
// # Usage
//
//	telemetry.VerificationAttemptsTotal.WithLabelValues("verified").Inc()
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// The path label holds the Gin route template (e.g.
// /portal/v1/certificates/:id), NOT the raw URL.
//
// Example PromQL:
//   - Request rate:  rate(http_requests_total[5m])
//   - p99 latency:   histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Domain metrics.
//
// PlatformRequestsTotal counts every call the portal makes to the CertifyPro
// platform API. The operation label is a fixed name such as
// "certificates.verify"; status is the HTTP status code or "unreachable" when
// the request never produced a response. A rising "unreachable" rate is the
// primary signal that the platform boundary is down.
//
// VerificationAttemptsTotal counts public verification attempts by outcome:
// "verified", "invalid" (record exists but is not ACTIVE), "not_found", or
// "error".
var (
	PlatformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Total number of CertifyPro platform API calls, by operation and response status.",
		},
		[]string{"operation", "status"},
	)

	VerificationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_attempts_total",
			Help: "Total number of certificate verification attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	PortalSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_sessions_active",
			Help: "Number of live browser sessions currently held by the session store.",
		},
	)
)
