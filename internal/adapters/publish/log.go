// Package publish delivers rendered messages to the chat channel.
package publish

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

// LogPublisher writes messages to the log instead of a channel.
// It is the default when no webhook is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs each message at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogPublisher{logger: logger}
}

// Publish implements ports.Publisher.
func (p *LogPublisher) Publish(ctx context.Context, msg ports.Message) error {
	attrs := []any{slog.String("body", msg.Body)}

	if msg.Title != "" {
		attrs = append(attrs, slog.String("title", msg.Title))
	}

	if msg.Footer != "" {
		attrs = append(attrs, slog.String("footer", msg.Footer))
	}

	if msg.URL != "" {
		attrs = append(attrs, slog.String("url", msg.URL))
	}

	logger := p.logger
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		logger = logger.With(slog.String("correlation_id", id))
	}

	logger.InfoContext(ctx, "message published", attrs...)

	return nil
}
