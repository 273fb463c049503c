// Package metrics exposes Prometheus counters, histograms, and gauges for
// the flight simulation server: HTTP traffic, simulator ticks and flight
// outcomes, score distributions, and session/stream capacity.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missioncore_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "missioncore_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "missioncore_ticks_total",
			Help: "Total number of simulator ticks processed across all sessions.",
		},
	)

	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missioncore_flight_outcomes_total",
			Help: "Total number of flights that terminated in each outcome.",
		},
		[]string{"outcome"},
	)

	scoreTotalHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "missioncore_score_total",
			Help:    "Distribution of total flight scores (0-100).",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "missioncore_sessions_active",
			Help: "Number of live flight sessions currently held in the registry.",
		},
	)

	sessionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "missioncore_sessions_evicted_total",
			Help: "Total number of sessions evicted from the registry under capacity pressure.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "missioncore_stream_messages_total",
			Help: "Total number of SSE messages sent to flight telemetry clients.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "missioncore_stream_bytes_total",
			Help: "Total number of bytes sent to SSE flight telemetry clients.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missioncore_stream_connections_total",
			Help: "Total number of SSE stream connect/disconnect events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "missioncore_streams_active",
			Help: "Number of currently open SSE flight telemetry streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missioncore_stream_errors_total",
			Help: "Total number of SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		ticksTotal,
		outcomesTotal,
		scoreTotalHistogram,
		sessionsActive,
		sessionsEvictedTotal,
		streamMessagesTotal,
		streamBytesTotal,
		streamConnectionsTotal,
		streamsActive,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request, labeled
// by a cardinality-safe route template rather than the raw path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// normalizeRoute collapses a request path to a route template so that
// per-session paths (which carry a high-cardinality session ID segment)
// don't each mint their own Prometheus label series.
func normalizeRoute(path string) string {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/", "/api/v1/sessions", "/api/v1/missions", "/api/v1/engines":
		return path
	}

	const prefix = "/api/v1/sessions/"
	if strings.HasPrefix(path, prefix) {
		rest := strings.TrimPrefix(path, prefix)
		segments := strings.SplitN(rest, "/", 2)
		if len(segments) == 1 {
			return prefix + "{session_id}"
		}
		return prefix + "{session_id}/" + segments[1]
	}

	return "other"
}

// IncTicks records one simulator tick having been processed.
func IncTicks() {
	ticksTotal.Inc()
}

// IncOutcome records a flight having terminated with the given outcome.
func IncOutcome(outcome string) {
	outcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveScore records a completed flight's total score.
func ObserveScore(total float64) {
	scoreTotalHistogram.Observe(total)
}

// SetSessionsActive sets the current number of live sessions.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// IncSessionsEvicted records one session evicted under capacity pressure.
func IncSessionsEvicted() {
	sessionsEvictedTotal.Inc()
}

// IncStreamMessages records one SSE message sent.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// AddStreamBytes adds n bytes to the SSE bytes-sent counter.
func AddStreamBytes(n int64) {
	streamBytesTotal.Add(float64(n))
}

// IncStreamConnections records an SSE connect or disconnect event.
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the count of open SSE streams.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the count of open SSE streams.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamErrors records an SSE stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}
