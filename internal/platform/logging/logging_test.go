package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(b, &entry))

	return entry
}

func TestFromContext_Defaults(t *testing.T) {
	assert.Equal(t, defaultLogger, FromContext(nil)) //nolint:staticcheck // nil guard
	assert.Equal(t, defaultLogger, FromContext(context.Background()))

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, custom, FromContext(WithContext(context.Background(), custom)))
}

func TestContextIDs(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithCorrelationID(ctx, "corr-789")
	ctx = WithTraceID(ctx, "trace-456")

	FromContext(ctx).InfoContext(ctx, "drawn")

	entry := decodeLine(t, buf.Bytes())
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "corr-789", entry["correlation_id"])
	assert.Equal(t, "trace-456", entry["trace_id"])

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Equal(t, "corr-789", CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil guard
}

func TestSetDefault(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() { SetDefault(original) })

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetDefault(custom)

	assert.Equal(t, custom, FromContext(context.Background()))
}

func TestNewWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out []byte)
	}{
		{
			format: "json",
			check: func(t *testing.T, out []byte) {
				entry := decodeLine(t, out)
				assert.Equal(t, "quote posted", entry["msg"])
				assert.Equal(t, "quotedeck", entry["service_name"])
				assert.Equal(t, "1.2.3", entry["service_version"])
			},
		},
		{
			format: "text",
			check: func(t *testing.T, out []byte) {
				assert.Contains(t, string(out), "msg=\"quote posted\"")
				assert.Contains(t, string(out), "service_name=quotedeck")
			},
		},
		{
			format: "pretty",
			check: func(t *testing.T, out []byte) {
				assert.Contains(t, string(out), "quote posted")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer

			logger, closer := NewWithWriter(&Config{
				Level:   "info",
				Format:  tt.format,
				Service: "quotedeck",
				Version: "1.2.3",
			}, &buf)
			t.Cleanup(func() { _ = closer.Close() })

			logger.Info("quote posted")
			tt.check(t, buf.Bytes())
		})
	}
}

func TestNewWithWriter_TraceLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, _ := NewWithWriter(&Config{Level: "trace", Format: "json"}, &buf)
	logger.Log(context.Background(), LevelTrace, "record validated")

	entry := decodeLine(t, buf.Bytes())
	assert.Equal(t, "TRACE", entry["level"])
}

func TestNewWithWriter_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "quotedeck.log")

	var buf bytes.Buffer

	logger, closer := NewWithWriter(&Config{
		Level:  "info",
		Format: "pretty",
		File: FileConfig{
			Enabled:    true,
			Path:       logFile,
			MaxSizeMB:  1,
			MaxBackups: 5,
		},
	}, &buf)

	logger.Info("sync complete", slog.Int("additions", 2))
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "sync complete")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := decodeLine(t, content)
	assert.Equal(t, "sync complete", entry["msg"])
	assert.InDelta(t, 2, entry["additions"], 0)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, slogToCharmLevel(LevelTrace))
	assert.Equal(t, log.DebugLevel, slogToCharmLevel(slog.LevelDebug))
	assert.Equal(t, log.InfoLevel, slogToCharmLevel(slog.LevelInfo))
	assert.Equal(t, log.WarnLevel, slogToCharmLevel(slog.LevelWarn))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.LevelError))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.Level(12)))
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, multi.Enabled(context.Background(), LevelTrace))

	logger := slog.New(multi).WithGroup("deck").With(slog.Int("size", 3))
	logger.Debug("only debug")
	logger.Info("both")

	assert.Contains(t, debugBuf.String(), "only debug")
	assert.NotContains(t, infoBuf.String(), "only debug")
	assert.Contains(t, infoBuf.String(), `"deck":{"size":3}`)
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		name   string
		attr   slog.Attr
		secret string
	}{
		{
			name:   "webhook_url field",
			attr:   slog.String("webhook_url", "https://chat.example.com/hooks/abcdef"),
			secret: "abcdef",
		},
		{
			name:   "webhook URL under any key",
			attr:   slog.String("target", "https://discord.com/api/webhooks/123/s3cr3t"),
			secret: "s3cr3t",
		},
		{
			name:   "token",
			attr:   slog.String("token", "hunter2"),
			secret: "hunter2",
		},
		{
			name:   "bearer value",
			attr:   slog.String("header", "Bearer abc123xyz"),
			secret: "abc123xyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, format := range []string{"json", "pretty"} {
				var buf bytes.Buffer

				logger, _ := NewWithWriter(&Config{Level: "info", Format: format}, &buf)
				logger.Info("publishing", tt.attr)

				assert.NotContains(t, buf.String(), tt.secret, format)
				assert.Contains(t, buf.String(), tt.attr.Key, format)
			}
		})
	}
}

func TestRedaction_LeavesOrdinaryValues(t *testing.T) {
	var buf bytes.Buffer

	logger, _ := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)
	logger.Info("fetching", slog.String("url", "https://raw.githubusercontent.com/o/r/main/quotes.toml"))

	assert.Contains(t, buf.String(), "quotes.toml")
}
