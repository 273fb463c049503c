// Package telemetry wires an OpenTelemetry tracer provider for the flight
// simulation server. Only a stdout exporter is supported: the simulation
// core never touches the network, and tracing here is purely an
// observability concern of the surrounding service.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config governs tracer provider initialization.
type Config struct {
	Enabled     bool
	ServiceName string
	Writer      io.Writer // defaults to os.Stdout when nil and Enabled
}

// Init wires a tracer provider and registers it as the global provider.
// It returns a shutdown function that must be called to flush spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint(), stdouttrace.WithoutTimestamps()}
	if cfg.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("creating trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// ShutdownWithTimeout invokes shutdown with a 5-second timeout, so a stuck
// exporter cannot block process exit, and returns shutdown's error.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error) error {
	if shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return shutdown(ctx)
}

// Tracer returns the named tracer from the globally registered provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TraceTickBatch wraps a batch of simulator ticks in a span.
func TraceTickBatch(ctx context.Context, sessionID string, fn func(context.Context)) {
	ctx, span := Tracer("missioncore/driver").Start(ctx, "tick_batch",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()
	fn(ctx)
}

// TraceScore wraps a scoring call in a span.
func TraceScore(ctx context.Context, sessionID string, fn func(context.Context)) {
	ctx, span := Tracer("missioncore/scoring").Start(ctx, "score",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()
	fn(ctx)
}
