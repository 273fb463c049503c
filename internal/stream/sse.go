// Package stream implements Server-Sent Events (SSE) streaming of a single
// flight session's telemetry. Clients connect via
// GET /api/v1/sessions/{id}/stream and receive a continuous stream of
// FlightSnapshots as the wrapped simulator advances, ending with the
// terminal outcome message when the flight completes.
//
// SSE message format:
//
//	data: {"type":"snapshot","snapshot":{"Time":12.3,"Altitude":1500.2,...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","session_id":"..."}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. The stream ends, and the handler returns, once the session's
// outcome becomes terminal — the final message is the outcome itself.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/httputil"
	"github.com/inkorange/mission-control/internal/metrics"
	"github.com/inkorange/mission-control/internal/session"
)

// clientIP extracts the requester's address for rate limiting and logging.
// Proxy headers are not trusted here; the API server sits directly in
// front of clients in the deployments this ships to.
func clientIP(r *http.Request) string {
	return httputil.ClientIP(r, false)
}

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	PollInterval       time.Duration // How often to check for new snapshots (default: 200ms).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
}

// Handler manages SSE flight-telemetry streaming connections.
type Handler struct {
	registry *session.Registry
	config   Config
	limiter  *streamLimiter
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler backed by registry.
func NewHandler(registry *session.Registry, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP),
		logger:   logger,
	}
}

// HandleFlight serves the SSE flight-telemetry stream for one session.
// GET /api/v1/sessions/{id}/stream
func (h *Handler) HandleFlight(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	d, ok := h.registry.Get(sessionID)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		return
	}

	ip := clientIP(r)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded", "remote_ip", ip, "current_count", h.limiter.count(ip))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected", "remote_ip", ip, "session_id", sessionID)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected", "remote_ip", ip, "session_id", sessionID,
			"duration_seconds", int(time.Since(startTime).Seconds()))
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, ip: ip, logger: h.logger}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	sim := d.Simulator()
	if err := c.sendJSON(metadataMessage{Type: "metadata", SessionID: sessionID}); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	pollTicker := time.NewTicker(h.config.PollInterval)
	defer pollTicker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	sent := 0

	for {
		select {
		case <-ctx.Done():
			return

		case <-pollTicker.C:
			history := sim.History()
			for ; sent < len(history); sent++ {
				if err := c.sendJSON(snapshotMessage{Type: "snapshot", Snapshot: history[sent]}); err != nil {
					metrics.IncStreamErrors("send_error")
					h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
					return
				}
				keepaliveTicker.Reset(h.config.KeepaliveInterval)
			}

			if outcome := sim.CurrentOutcome(); outcome.Terminal() {
				if err := c.sendJSON(outcomeMessage{Type: "outcome", Outcome: outcome.String()}); err != nil {
					metrics.IncStreamErrors("send_error")
					h.logger.Warn("stream send error (outcome)", "remote_ip", ip, "error", err)
				}
				return
			}

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type snapshotMessage struct {
	Type     string                       `json:"type"`
	Snapshot flightresult.FlightSnapshot `json:"snapshot"`
}

type outcomeMessage struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}
