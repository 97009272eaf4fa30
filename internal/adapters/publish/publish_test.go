package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedeck/internal/adapters/clients"
	"github.com/jsamuelsen/quotedeck/internal/domain"
	"github.com/jsamuelsen/quotedeck/internal/platform/config"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

var quoteMessage = ports.Message{
	Title:  "Your Daily Swack",
	Body:   "hello.  world ~Someone",
	Footer: "Quote 3/10, Submitted by Tester",
	URL:    "https://example.com/source",
}

func newWebhook(t *testing.T, url string) *WebhookPublisher {
	t.Helper()

	c, err := clients.New(&clients.Config{
		BaseURL:     url,
		ServiceName: WebhookName,
		Timeout:     time.Second,
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Circuit:     config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Minute, HalfOpenLimit: 1},
	})
	require.NoError(t, err)

	return NewWebhookPublisher(c, nil)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer

	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, p.Publish(context.Background(), quoteMessage))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "message published", entry["msg"])
	assert.Equal(t, quoteMessage.Body, entry["body"])
	assert.Equal(t, quoteMessage.Title, entry["title"])
	assert.Equal(t, quoteMessage.Footer, entry["footer"])
	assert.Equal(t, quoteMessage.URL, entry["url"])
}

func TestWebhookPublisher_Payloads(t *testing.T) {
	tests := []struct {
		name string
		msg  ports.Message
		want string
	}{
		{
			name: "quote as embed",
			msg:  quoteMessage,
			want: `{"embeds":[{"title":"Your Daily Swack","description":"hello.  world ~Someone",
				"url":"https://example.com/source","footer":{"text":"Quote 3/10, Submitted by Tester"}}]}`,
		},
		{
			name: "plain content",
			msg:  ports.Message{Body: "https://example.com/source"},
			want: `{"content":"https://example.com/source"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies := make(chan string, 1)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				bodies <- string(b)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			require.NoError(t, newWebhook(t, server.URL).Publish(context.Background(), tt.msg))
			assert.JSONEq(t, tt.want, <-bodies)
		})
	}
}

func TestWebhookPublisher_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := newWebhook(t, server.URL).Publish(context.Background(), quoteMessage)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Contains(t, err.Error(), WebhookName)
}
