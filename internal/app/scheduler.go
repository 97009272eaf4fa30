package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jsamuelsen/quotedeck/internal/domain"
	"github.com/jsamuelsen/quotedeck/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

const (
	// DefaultPostHour is the UTC hour of the daily post.
	DefaultPostHour = 12

	// DefaultCheckInterval is how often the scheduler looks at the clock.
	DefaultCheckInterval = time.Minute

	// MaxQuarantineReport bounds the quarantine text placed in one message.
	MaxQuarantineReport = 3900

	quarantineTitle = "These quotes need fixing"
	testTitle       = "Testing the Swack"
)

// SchedulerConfig contains configuration for the daily post scheduler.
type SchedulerConfig struct {
	Service   *QuoteService
	Publisher ports.Publisher

	// PostHour is the UTC hour at which a quote is posted.
	PostHour int

	// CheckInterval is the tick cadence.
	CheckInterval time.Duration

	// Now returns the wall clock; nil means time.Now.
	Now func() time.Time

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Scheduler posts one random quote a day.
type Scheduler struct {
	service   *QuoteService
	publisher ports.Publisher
	postHour  int
	interval  time.Duration
	now       func() time.Time
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// NewScheduler creates a scheduler.
// Panics if Service or Publisher is nil.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	switch {
	case cfg.Service == nil:
		panic("Scheduler: Service is required")
	case cfg.Publisher == nil:
		panic("Scheduler: Publisher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		service:   cfg.Service,
		publisher: cfg.Publisher,
		postHour:  cfg.PostHour,
		interval:  interval,
		now:       now,
		metrics:   cfg.Metrics,
		logger:    logger.With(slog.String("component", "app.Scheduler")),
	}
}

// Run ticks until ctx is canceled, posting whenever the UTC hour rolls
// over into the post hour.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler started",
		slog.Int("post_hour", s.postHour),
		slog.Duration("check_interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	previous := s.now()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-ticker.C:
			current := s.now()

			if s.Due(previous, current) {
				if err := s.PostQuote(ctx); err != nil {
					s.logger.ErrorContext(ctx, "scheduled post failed", slog.Any("error", err))
				}
			}

			previous = current
		}
	}
}

// Due reports whether the hour changed between two ticks and the new hour
// is the post hour.
func (s *Scheduler) Due(previous, current time.Time) bool {
	previous, current = previous.UTC(), current.UTC()

	return previous.Hour() != current.Hour() && current.Hour() == s.postHour
}

// PostQuote draws a random quote and publishes it, preceded by the
// quarantine report when there is one. An exhausted pool posts nothing
// but the report and is not an error.
func (s *Scheduler) PostQuote(ctx context.Context) error {
	sel, err := s.service.GetRandomQuote(ctx)

	if reportErr := s.publishQuarantine(ctx); reportErr != nil {
		s.logger.ErrorContext(ctx, "failed to publish quarantine report", slog.Any("error", reportErr))
	}

	if err != nil {
		if errors.Is(err, domain.ErrExhaustedPool) {
			s.metrics.ObservePost(telemetry.PostExhausted)
			s.logger.WarnContext(ctx, "no eligible quote", slog.Any("reason", err))

			return nil
		}

		s.metrics.ObservePost(telemetry.PostFailed)

		return err
	}

	return s.publish(ctx, DailyQuoteMessage(sel, s.now()), sel)
}

// PostTestQuote publishes the quote stored under key, or the fallback
// quote, marked as a test. The deck is not touched.
func (s *Scheduler) PostTestQuote(ctx context.Context, key string) error {
	sel, err := s.service.GetQuoteByKey(ctx, key)
	if err != nil {
		s.metrics.ObservePost(telemetry.PostFailed)
		return err
	}

	return s.publish(ctx, TestQuoteMessage(sel, s.now()), sel)
}

func (s *Scheduler) publish(ctx context.Context, msg ports.Message, sel *Selection) error {
	s.logger.InfoContext(ctx, "sending quote",
		slog.String("key", sel.Key),
		slog.String("position", sel.Position.String()),
		slog.String("submitter", sel.Quote.Submitter),
	)

	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.metrics.ObservePost(telemetry.PostFailed)
		return err
	}

	if src := sel.Quote.SourceOr(""); sel.Quote.Embed && domain.IsURL(src) {
		if err := s.publisher.Publish(ctx, ports.Message{Body: src}); err != nil {
			s.metrics.ObservePost(telemetry.PostFailed)
			return err
		}
	}

	s.metrics.ObservePost(telemetry.PostSent)
	s.logger.InfoContext(ctx, "quote sent")

	return nil
}

func (s *Scheduler) publishQuarantine(ctx context.Context) error {
	text, err := s.service.Quarantine(ctx)
	if err != nil {
		return err
	}

	msg, ok := QuarantineMessage(text)
	if !ok {
		s.logger.InfoContext(ctx, "no quarantined quotes today")
		return nil
	}

	return s.publisher.Publish(ctx, msg)
}

// QuoteMessage renders a selection as a chat message. The title links to
// the source when it is a URL.
func QuoteMessage(pre, title string, sel *Selection, at time.Time) ports.Message {
	msg := ports.Message{
		Title: title,
		Body:  domain.FormatQuoteText(sel.Quote),
		Footer: pre + " for " + domain.FormatDate(at.UTC()) + "\n" +
			domain.FormatFooter(sel.Position, sel.Total, sel.Quote.Submitter),
	}

	if src := sel.Quote.SourceOr(""); domain.IsURL(src) {
		msg.URL = src
		msg.Title += domain.LinkMarker
	}

	return msg
}

// DailyQuoteMessage is the message for the daily post.
func DailyQuoteMessage(sel *Selection, at time.Time) ports.Message {
	return QuoteMessage("Quote", domain.SwackLevel(), sel, at)
}

// TestQuoteMessage is the message for a quote drawn by key.
func TestQuoteMessage(sel *Selection, at time.Time) ports.Message {
	return QuoteMessage("Testing", testTitle, sel, at)
}

// QuarantineMessage renders the quarantine report, truncated to
// MaxQuarantineReport bytes on a rune boundary. It reports false when
// there is nothing to send.
func QuarantineMessage(text string) (ports.Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ports.Message{}, false
	}

	if len(text) > MaxQuarantineReport {
		cut := MaxQuarantineReport
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}

		text = text[:cut]
	}

	return ports.Message{
		Title: quarantineTitle,
		Body:  "```toml\n" + text + "\n```",
	}, true
}
