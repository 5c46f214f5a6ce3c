// Package metrics provides Prometheus instrumentation for the rate engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SolvesTotal counts rate solves, partitioned by kind and outcome.
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratecore_solves_total",
		Help: "Total number of rate solves executed",
	}, []string{"kind", "outcome"})

	// SolverIterations tracks Newton iterations consumed per solve.
	SolverIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ratecore_solver_iterations",
		Help:    "Newton iterations per solve",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
	}, []string{"kind"})

	// SolveDuration tracks solve latency by kind.
	SolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ratecore_solve_duration_seconds",
		Help:    "Rate solve duration in seconds",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
	}, []string{"kind"})

	// SchedulesTotal counts amortization schedules generated.
	SchedulesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratecore_schedules_generated_total",
		Help: "Total amortization schedules generated",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratecore_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratecore_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ratecore_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// LimitRejections counts requests rejected by the size guards.
	LimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratecore_limit_rejections_total",
		Help: "Requests rejected by input size limits",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
