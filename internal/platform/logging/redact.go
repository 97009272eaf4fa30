package logging

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// ReplaceFunc matches slog.HandlerOptions.ReplaceAttr.
type ReplaceFunc = func(groups []string, a slog.Attr) slog.Attr

// Patterns for sensitive values.
var (
	// Chat webhook URLs embed their token in the path.
	webhookPattern = regexp.MustCompile(`(?i)^https?://[^\s]+/(api/)?webhooks?/[^\s]+$`)

	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)
)

// DefaultRedactOptions returns the masq options applied to every handler.
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("api_key"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("webhook_url"),
		masq.WithFieldName("WebhookURL"),

		masq.WithFieldPrefix("secret"),

		masq.WithRegex(webhookPattern),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
	}
}

// NewReplaceAttr creates a ReplaceAttr function that redacts sensitive data.
// Extra options extend DefaultRedactOptions.
func NewReplaceAttr(opts ...masq.Option) ReplaceFunc {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

// redactingHandler applies a ReplaceFunc for handlers that take no
// HandlerOptions, such as the charm terminal logger.
type redactingHandler struct {
	next    slog.Handler
	replace ReplaceFunc
	groups  []string
}

func newRedactingHandler(next slog.Handler, replace ReplaceFunc) *redactingHandler {
	return &redactingHandler{next: next, replace: replace}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.replace(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.replace(h.groups, a)
	}

	return &redactingHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	groups := append(append([]string(nil), h.groups...), name)

	return &redactingHandler{next: h.next.WithGroup(name), replace: h.replace, groups: groups}
}
