// Package api wires the HTTP surface for the flight simulation server:
// session lifecycle (create/control/state/result), catalog lookups, the
// SSE telemetry stream, and the ambient health/metrics/auth endpoints.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/inkorange/mission-control/internal/auth"
	"github.com/inkorange/mission-control/internal/driver"
	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/flightsim"
	"github.com/inkorange/mission-control/internal/health"
	"github.com/inkorange/mission-control/internal/metrics"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/progression"
	"github.com/inkorange/mission-control/internal/rocket"
	"github.com/inkorange/mission-control/internal/scoring"
	"github.com/inkorange/mission-control/internal/session"
	"github.com/inkorange/mission-control/internal/stream"
)

// sessionTickInterval is the real-time cadence at which a live session's
// simulator is driven once created, independent of any client polling.
const sessionTickInterval = 100 * time.Millisecond

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	registry *session.Registry
	engines  map[string]rocket.EngineDef
	missions map[string]*mission.Mission
	stream   *stream.Handler

	ctx    context.Context
	cancel context.CancelFunc
}

// Deps bundles the wiring a Server needs beyond its listen address.
type Deps struct {
	Registry     *session.Registry
	Engines      map[string]rocket.EngineDef
	Missions     []*mission.Mission
	StreamConfig stream.Config
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	missionsByID := make(map[string]*mission.Mission, len(deps.Missions))
	for _, m := range deps.Missions {
		missionsByID[m.ID] = m
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:   logger,
		registry: deps.Registry,
		engines:  deps.Engines,
		missions: missionsByID,
		stream:   stream.NewHandler(deps.Registry, deps.StreamConfig, logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/missions", s.handleListMissions)
	mux.HandleFunc("GET /api/v1/engines", s.handleListEngines)

	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/state", s.handleSessionState)
	mux.HandleFunc("POST /api/v1/sessions/{id}/control", s.handleSessionControl)
	mux.HandleFunc("GET /api/v1/sessions/{id}/result", s.handleSessionResult)
	mux.HandleFunc("GET /api/v1/sessions/{id}/stream", s.stream.HandleFlight)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      0, // SSE streams are long-lived; per-connection deadlines are set in internal/stream.
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Close stops driving any still-running sessions. Callers should invoke
// this alongside http.Server.Shutdown during graceful shutdown.
func (s *Server) Close() {
	s.cancel()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// engineCountRequest and stageRequest mirror rocket.EngineCount/StageConfig
// for JSON decoding; the domain types carry no wire tags of their own.
type stageRequest struct {
	Engines        []engineCountRequest `json:"engines"`
	FuelMass       float64              `json:"fuel_mass"`
	StructuralMass float64              `json:"structural_mass"`
}

type engineCountRequest struct {
	EngineID string `json:"engine_id"`
	Count    int    `json:"count"`
}

type payloadRequest struct {
	Name string  `json:"name"`
	Mass float64 `json:"mass"`
}

type createSessionRequest struct {
	MissionID string         `json:"mission_id"`
	Stages    []stageRequest `json:"stages"`
	Payload   payloadRequest `json:"payload"`
	TotalCost float64        `json:"total_cost"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, ok := s.missions[req.MissionID]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mission id %q", req.MissionID))
		return
	}

	stages := make([]rocket.StageConfig, len(req.Stages))
	for i, st := range req.Stages {
		engines := make([]rocket.EngineCount, len(st.Engines))
		for j, e := range st.Engines {
			engines[j] = rocket.EngineCount{EngineID: e.EngineID, Count: e.Count}
		}
		stages[i] = rocket.StageConfig{Engines: engines, FuelMass: st.FuelMass, StructuralMass: st.StructuralMass}
	}
	payload := rocket.Payload{Name: req.Payload.Name, Mass: req.Payload.Mass}

	cfg, err := rocket.NewRocketConfig(stages, payload, req.TotalCost, s.engines)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim, err := flightsim.New(cfg, m, s.engines, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim.Start()

	sessionID, err := newSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	d := driver.New(sim, m, cfg.TotalCost, sessionID, s.logger)
	s.registry.Put(sessionID, d)
	metrics.SetSessionsActive(s.registry.Len())

	go func() {
		d.Start(s.ctx, sessionTickInterval)
		metrics.SetSessionsActive(s.registry.Len())
		if result, ok := d.Result(); ok {
			metrics.IncOutcome(result.Outcome.String())
			if score, ok := d.Score(); ok {
				metrics.ObserveScore(float64(score.TotalScore))
			}
		}
	}()

	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sessionID})
}

type stateResponse struct {
	State   flightsim.SimState `json:"state"`
	Outcome string             `json:"outcome"`
	Running bool               `json:"running"`
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	d, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sim := d.Simulator()
	writeJSON(w, http.StatusOK, stateResponse{
		State:   sim.CurrentState(),
		Outcome: sim.CurrentOutcome().String(),
		Running: sim.Running(),
	})
}

type controlRequest struct {
	Action string  `json:"action"`
	Value  float64 `json:"value"`
}

func (s *Server) handleSessionControl(w http.ResponseWriter, r *http.Request) {
	d, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sim := d.Simulator()
	switch req.Action {
	case "throttle":
		sim.SetThrottle(req.Value)
	case "pitch":
		sim.SetPitch(req.Value)
	case "timescale":
		sim.SetTimeScale(req.Value)
	case "stage":
		sim.TriggerStageSeparation()
	case "abort":
		sim.Abort()
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bonusResultResponse mirrors scoring.BonusResult for JSON encoding. The
// underlying mission.BonusChallenge carries a func field (Predicate), which
// encoding/json cannot marshal, so only the wire-relevant fields are copied
// over here.
type bonusResultResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	StarValue   int    `json:"star_value"`
	Achieved    bool   `json:"achieved"`
}

type resultResponse struct {
	Result        flightresult.FlightResult `json:"result"`
	Score         scoring.ScoreBreakdown    `json:"score"`
	Bonuses       []bonusResultResponse     `json:"bonuses"`
	MissionResult progression.MissionResult `json:"mission_result"`
}

func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	d, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	result, ok := d.Result()
	if !ok {
		writeError(w, http.StatusConflict, "flight has not terminated yet")
		return
	}
	score, _ := d.Score()

	m := d.Mission()
	bonuses := scoring.ResolveBonuses(result, d.RocketCost(), m.BonusChallenges)
	bonusResponses := make([]bonusResultResponse, len(bonuses))
	completed := make([]string, 0, len(bonuses))
	for i, b := range bonuses {
		bonusResponses[i] = bonusResultResponse{
			ID:          b.Challenge.ID,
			Description: b.Challenge.Description,
			StarValue:   b.Challenge.StarValue,
			Achieved:    b.Achieved,
		}
		if b.Achieved {
			completed = append(completed, b.Challenge.ID)
		}
	}

	missionResult, err := progression.NewMissionResult(m.ID, score.Stars, score.TotalScore,
		*d.Simulator().RocketConfig(), completed, time.Now(), result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to assemble mission result")
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		Result:        result,
		Score:         score,
		Bonuses:       bonusResponses,
		MissionResult: missionResult,
	})
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	out := make([]*mission.Mission, 0, len(s.missions))
	for _, m := range s.missions {
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engines)
}

// newSessionID returns a random 16-byte hex-encoded identifier. No pack
// repo imports a UUID library directly (google/uuid appears only as an
// indirect transitive dependency in two go.mod files), so session IDs are
// generated with crypto/rand instead of adding an ungrounded dependency.
func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
