// Package metrics provides Prometheus instrumentation for the event ledger.
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
	// BetsTotal counts accepted bets, partitioned by choice.
	BetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bets_total",
		Help: "Total number of bets placed",
	}, []string{"choice"})

	// StakeVolume tracks cumulative staked amount per option name.
	// Approximate (float) — the store holds the exact decimals.
	StakeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_stake_volume_total",
		Help: "Cumulative stake volume in the tracked denomination",
	}, []string{"option"})

	// EventsCreated counts events added to the ledger.
	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_events_created_total",
		Help: "Total number of events created",
	})

	// EventsStarted counts events flipped to executed.
	EventsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_events_started_total",
		Help: "Total number of events started",
	})

	// EventsResolved counts events resolved with a result.
	EventsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_events_resolved_total",
		Help: "Total number of events resolved",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
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
