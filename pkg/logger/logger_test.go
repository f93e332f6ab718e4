package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestNewWithWriter(t *testing.T) {
	t.Run("json carries component", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter("cart", "info", "json", &buf).Info("line added")
		rec := lastRecord(t, &buf)
		assert.Equal(t, "cart", rec["component"])
		assert.Equal(t, "line added", rec["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter("cli", "info", "TEXT", &buf).Info("plain")
		assert.Contains(t, buf.String(), "component=cli")
	})

	t.Run("level filter", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter("wishlist", "warn", "json", &buf).Info("dropped")
		assert.Zero(t, buf.Len())
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	} {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextFieldsAdded(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("apiclient", "info", "json", &buf).With(slog.String("breaker", "api"))

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithUserID(WithRequestID(ctx, "req-9"), "+919876543210")

	l.WarnContext(ctx, "api request failed")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "req-9", rec["request_id"])
	assert.Equal(t, "+919876543210", rec["user_id"])
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", rec["trace_id"])
	assert.Equal(t, "b7ad6b7169203331", rec["span_id"])
	assert.Equal(t, "api", rec["breaker"])
}

func TestContextFieldsAbsent(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("apiclient", "info", "json", &buf).InfoContext(context.Background(), "quiet")

	rec := lastRecord(t, &buf)
	for _, key := range []string{"request_id", "user_id", "trace_id", "span_id"} {
		assert.NotContains(t, rec, key)
	}
}

func TestGroupKeepsContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("cli", "info", "json", &buf).WithGroup("cart")
	l.InfoContext(WithRequestID(context.Background(), "r1"), "loaded", slog.Int("items", 2))

	rec := lastRecord(t, &buf)
	group, ok := rec["cart"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", group["request_id"])
	assert.EqualValues(t, 2, group["items"])
}

func TestFromContext(t *testing.T) {
	l := Discard()
	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
