package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if logger := New(level, "text"); logger == nil {
			t.Errorf("New(%q) returned nil", level)
		}
	}
	if logger := New("info", "json"); logger == nil {
		t.Error("New with json format returned nil")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("RequestID on empty context = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("RequestID = %q, want req-123", got)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("FromContext should return slog.Default for an empty context")
	}

	logger := New("info", "text")
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext should return the stored logger")
	}
}

func TestLAttachesRequestID(t *testing.T) {
	logger := New("info", "text")
	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-9")

	// L must not panic and must return a non-nil logger with request context.
	if got := L(ctx); got == nil {
		t.Error("L returned nil")
	}
}
