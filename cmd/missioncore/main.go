package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/inkorange/mission-control/internal/api"
	"github.com/inkorange/mission-control/internal/auth"
	"github.com/inkorange/mission-control/internal/catalog"
	"github.com/inkorange/mission-control/internal/session"
	"github.com/inkorange/mission-control/internal/stream"
	"github.com/inkorange/mission-control/internal/telemetry"
)

func main() {
	logger := newLogger()

	addr := os.Getenv("MISSIONCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	engines, err := catalog.LoadDefaultEngines(logger)
	if err != nil {
		logger.Error("failed to load default engine catalog", "error", err)
		os.Exit(1)
	}
	missions, err := catalog.LoadDefaultMissions(logger)
	if err != nil {
		logger.Error("failed to load default mission catalog", "error", err)
		os.Exit(1)
	}

	maxSessions := loadMaxSessions(logger)
	registry, err := session.NewRegistry(maxSessions, logger)
	if err != nil {
		logger.Error("failed to build session registry", "error", err)
		os.Exit(1)
	}

	telCfg := loadTelemetryConfig(logger)
	shutdownTracing, err := telemetry.Init(context.Background(), telCfg)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	streamCfg := loadStreamConfig(logger)

	srv := api.NewServer(addr, logger, authCfg, api.Deps{
		Registry:     registry,
		Engines:      engines,
		Missions:     missions,
		StreamConfig: streamCfg,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled,
			"engines", len(engines), "missions", len(missions), "max_sessions", maxSessions)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	if err := telemetry.ShutdownWithTimeout(context.Background(), shutdownTracing); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// newLogger builds a JSON slog logger to stdout, or to a rotated log file
// when MISSIONCORE_LOG_FILE is set.
func newLogger() *slog.Logger {
	if path := os.Getenv("MISSIONCORE_LOG_FILE"); path != "" {
		w := &lumberjack.Logger{
			Filename: path,
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("MISSIONCORE_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("MISSIONCORE_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("MISSIONCORE_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("MISSIONCORE_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadMaxSessions(logger *slog.Logger) int {
	capacity := 500

	if v := os.Getenv("MISSIONCORE_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MISSIONCORE_MAX_SESSIONS value, using default", "value", v, "default", capacity)
		} else {
			capacity = n
		}
	}

	return capacity
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		PollInterval:       200 * time.Millisecond,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("MISSIONCORE_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MISSIONCORE_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", cfg.MaxConcurrentPerIP)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("MISSIONCORE_STREAM_POLL_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MISSIONCORE_STREAM_POLL_INTERVAL_MS value, using default", "value", v, "default", cfg.PollInterval.Milliseconds())
		} else {
			cfg.PollInterval = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("MISSIONCORE_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MISSIONCORE_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"poll_interval_ms", cfg.PollInterval.Milliseconds(),
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}

func loadTelemetryConfig(logger *slog.Logger) telemetry.Config {
	cfg := telemetry.Config{
		Enabled:     false,
		ServiceName: "missioncore",
	}

	if v := os.Getenv("MISSIONCORE_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid MISSIONCORE_TRACING_ENABLED value, defaulting to false", "value", v)
		} else {
			cfg.Enabled = enabled
		}
	}

	logger.Info("telemetry config", "enabled", cfg.Enabled, "service_name", cfg.ServiceName)

	return cfg
}
