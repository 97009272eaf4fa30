package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedeck/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// logBuffer collects JSON log lines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *logBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}

	return out
}

func newJSONLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	type ids struct {
		gin, ctx string
	}

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		capture    func(*gin.Context) ids
	}{
		{
			name:       "request ID",
			middleware: RequestID(),
			header:     HeaderRequestID,
			capture: func(c *gin.Context) ids {
				return ids{GetRequestID(c), logging.RequestIDFromContext(c.Request.Context())}
			},
		},
		{
			name:       "correlation ID",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			capture: func(c *gin.Context) ids {
				return ids{GetCorrelationID(c), logging.CorrelationIDFromContext(c.Request.Context())}
			},
		},
	}

	incoming := []struct {
		name    string
		value   string
		keepsIt bool
	}{
		{name: "generated when absent", value: ""},
		{name: "propagated from upstream", value: "daily-post-2024", keepsIt: true},
		{name: "replaced when it has spaces", value: "two words"},
		{name: "replaced when oversized", value: strings.Repeat("x", maxIDLength+1)},
	}

	for _, tt := range tests {
		for _, in := range incoming {
			t.Run(tt.name+"/"+in.name, func(t *testing.T) {
				t.Parallel()

				var got ids

				router := gin.New()
				router.Use(tt.middleware)
				router.GET("/test", func(c *gin.Context) {
					got = tt.capture(c)
					c.Status(http.StatusOK)
				})

				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/test", nil)

				if in.value != "" {
					req.Header.Set(tt.header, in.value)
				}

				router.ServeHTTP(w, req)

				require.Equal(t, http.StatusOK, w.Code)

				echoed := w.Header().Get(tt.header)
				assert.Equal(t, echoed, got.gin)
				assert.Equal(t, echoed, got.ctx)

				if in.keepsIt {
					assert.Equal(t, in.value, echoed)
					return
				}

				_, err := uuid.Parse(echoed)
				assert.NoError(t, err, "a fresh UUID is generated")
			})
		}
	}
}

func TestGetIDsWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		skipPaths []string
		wantLogs  int
		wantLevel string
	}{
		{name: "successful request", path: "/api/v1/quotes/random?x=1", status: http.StatusOK, wantLogs: 2, wantLevel: "INFO"},
		{name: "client error", path: "/api/v1/quotes/random", status: http.StatusConflict, wantLogs: 2, wantLevel: "WARN"},
		{name: "server error", path: "/api/v1/quotes/random", status: http.StatusInternalServerError, wantLogs: 2, wantLevel: "ERROR"},
		{name: "probe endpoints are skipped", path: "/-/live", status: http.StatusOK},
		{name: "configured skip path", path: "/api/v1/deck", status: http.StatusOK, skipPaths: []string{"/api/v1/deck"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newJSONLogger()

			router := gin.New()
			router.Use(ContextLogger(logger), RequestID(), Logging(tt.skipPaths...))
			router.NoRoute(func(c *gin.Context) { c.Status(tt.status) })

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(HeaderRequestID, "req-1")
			router.ServeHTTP(httptest.NewRecorder(), req)

			entries := buf.entries(t)
			require.Len(t, entries, tt.wantLogs)

			if tt.wantLogs == 0 {
				return
			}

			assert.Equal(t, "request started", entries[0]["msg"])
			assert.Equal(t, tt.path, entries[0]["path"])
			assert.Equal(t, "req-1", entries[0]["request_id"])

			done := entries[1]
			assert.Equal(t, "request completed", done["msg"])
			assert.Equal(t, tt.wantLevel, done["level"])
			assert.InDelta(t, float64(tt.status), done["status"], 0)
		})
	}
}

func TestRecovery(t *testing.T) {
	logger, buf := newJSONLogger()

	var recovered any

	router := gin.New()
	router.Use(ContextLogger(logger), Recovery(func(err any, _ []byte) { recovered = err }))
	router.GET("/boom", func(*gin.Context) { panic("deck file vanished") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-boom")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "deck file vanished", recovered)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
	assert.Equal(t, "req-boom", resp.TraceID)

	entries := buf.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "panic recovered", entries[0]["msg"])
	assert.Contains(t, entries[0]["stack"], "runtime/debug.Stack")
}

func TestRecovery_AfterWrite(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(nil))
	router.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("too late")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}
