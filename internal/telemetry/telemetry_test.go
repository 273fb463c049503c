package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInitDisabledUsesNoopProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned error: %v", err)
	}
}

func TestInitEnabledWritesSpansToWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		Enabled:     true,
		ServiceName: "missioncore-test",
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	TraceTickBatch(context.Background(), "session-1", func(ctx context.Context) {})

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	if !strings.Contains(buf.String(), "tick_batch") {
		t.Errorf("expected exported span output to mention tick_batch, got: %s", buf.String())
	}
}

func TestShutdownWithTimeoutHandlesNilShutdown(t *testing.T) {
	if err := ShutdownWithTimeout(context.Background(), nil); err != nil {
		t.Errorf("unexpected error for nil shutdown: %v", err)
	}
}
