package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/jsamuelsen/quotedeck/internal/domain"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
	"github.com/jsamuelsen/quotedeck/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

// DefaultRepeatDelay is how many recent draws are excluded from selection.
const DefaultRepeatDelay = 200

// DeckState summarizes the persisted deck and history.
type DeckState struct {
	Size        int `json:"deck_size"`
	RecentSize  int `json:"recent_size"`
	HistorySize int `json:"history_size"`
}

// DeckManagerConfig contains configuration for the deck manager.
type DeckManagerConfig struct {
	Store ports.StateStore

	// RepeatDelay is how many of the latest history entries count as recent.
	RepeatDelay int

	// HistoryLimit trims stored history to its newest entries; 0 keeps all.
	// Values below RepeatDelay are raised to it.
	HistoryLimit int

	// Rand picks among candidates. Nil means a randomly seeded source.
	Rand *rand.Rand

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// DeckManager owns the deck and history. It is the only writer of either.
// Calls must not overlap; QuoteService serializes them.
type DeckManager struct {
	store        ports.StateStore
	repeatDelay  int
	historyLimit int
	rand         *rand.Rand
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

// NewDeckManager creates a deck manager.
// Panics if Store is nil.
func NewDeckManager(cfg DeckManagerConfig) *DeckManager {
	if cfg.Store == nil {
		panic("DeckManager: Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // selection fairness, not secrecy
	}

	repeatDelay := max(cfg.RepeatDelay, 0)

	historyLimit := cfg.HistoryLimit
	if historyLimit > 0 {
		historyLimit = max(historyLimit, repeatDelay)
	}

	return &DeckManager{
		store:        cfg.Store,
		repeatDelay:  repeatDelay,
		historyLimit: historyLimit,
		rand:         r,
		metrics:      cfg.Metrics,
		logger:       logger.With(slog.String("component", "app.DeckManager")),
	}
}

type candidate struct {
	key      string
	position int
}

// DrawRandom picks a quote that is in the deck and not among the recent
// draws, removes it from the deck, and records it in the history.
// The returned position is 1-based in collection order.
//
// An empty candidate set is reported as domain.ErrExhaustedPool with
// nothing mutated; the deck is never refilled here.
func (d *DeckManager) DrawRandom(ctx context.Context, c *domain.Collection) (*domain.Quote, int, error) {
	deck, history, err := d.load(ctx)
	if err != nil {
		return nil, 0, err
	}

	recent := recentSet(history, d.repeatDelay)

	inDeck := make(map[string]bool, len(deck))
	for _, key := range deck {
		inDeck[key] = true
	}

	var candidates []candidate

	for i, key := range c.Keys() {
		if inDeck[key] && !recent[key] {
			candidates = append(candidates, candidate{key: key, position: i + 1})
		}
	}

	if len(candidates) == 0 {
		d.metrics.ObserveDraw("random", telemetry.DrawExhausted)
		d.logger.WarnContext(ctx, "no eligible quote",
			slog.Int("deck_size", len(deck)),
			slog.Int("recent_size", len(recent)),
		)

		return nil, 0, domain.NewExhaustedPoolError(len(deck), len(recent))
	}

	pick := candidates[d.rand.IntN(len(candidates))]

	deck = slices.DeleteFunc(deck, func(k string) bool { return k == pick.key })
	history = d.trim(append(history, pick.key))

	if err := d.store.WriteHistory(ctx, history); err != nil {
		return nil, 0, fmt.Errorf("writing history: %w", err)
	}

	if err := d.store.WriteDeck(ctx, deck); err != nil {
		return nil, 0, fmt.Errorf("writing deck: %w", err)
	}

	d.metrics.ObserveDraw("random", telemetry.DrawOK)
	d.metrics.SetDeck(len(deck), len(history))

	d.logger.Log(ctx, logging.LevelTrace, "drew quote",
		slog.String("key", pick.key),
		slog.Int("position", pick.position),
		slog.Int("candidates", len(candidates)),
	)

	q, _ := c.Get(pick.key)

	return q, pick.position, nil
}

// DrawSpecific looks a quote up by key without touching deck or history.
// A missing key yields the fallback quote at the "Test" position.
func (d *DeckManager) DrawSpecific(key string, c *domain.Collection) (*domain.Quote, domain.Position) {
	if q, ok := c.Get(key); ok {
		d.metrics.ObserveDraw("specific", telemetry.DrawOK)
		return q, domain.NumberedPosition(c.Position(key))
	}

	d.metrics.ObserveDraw("specific", telemetry.DrawFallback)

	return domain.FallbackQuote(), domain.Position{IsTest: true}
}

// Reconcile applies a collection change to the deck: removed keys leave,
// added keys join, and keys missing from all are pruned. An empty deck is
// refilled with all instead; this is the only place a cycle restarts.
// The deck is written only when it changes.
func (d *DeckManager) Reconcile(ctx context.Context, added, removed, all []string) error {
	deck, err := d.store.ReadDeck(ctx)
	if err != nil {
		return fmt.Errorf("reading deck: %w", err)
	}

	var next []string

	if len(deck) == 0 {
		next = slices.Clone(all)

		if len(next) > 0 {
			d.logger.InfoContext(ctx, "deck refilled", slog.Int("deck_size", len(next)))
		}
	} else {
		next = mergeDeck(deck, added, removed, all)
	}

	if slices.Equal(deck, next) {
		return nil
	}

	if err := d.store.WriteDeck(ctx, next); err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}

	d.logger.DebugContext(ctx, "deck reconciled",
		slog.Int("before", len(deck)),
		slog.Int("after", len(next)),
	)

	return nil
}

// Refill fills an empty deck with all and leaves a non-empty deck alone.
// It is used when the collection did not change, so nothing is pruned.
func (d *DeckManager) Refill(ctx context.Context, all []string) error {
	deck, err := d.store.ReadDeck(ctx)
	if err != nil {
		return fmt.Errorf("reading deck: %w", err)
	}

	if len(deck) > 0 || len(all) == 0 {
		return nil
	}

	if err := d.store.WriteDeck(ctx, all); err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}

	d.logger.InfoContext(ctx, "deck refilled", slog.Int("deck_size", len(all)))

	return nil
}

// Reset starts a fresh cycle: the deck becomes keys and the history is cleared.
func (d *DeckManager) Reset(ctx context.Context, keys []string) error {
	if err := d.store.WriteHistory(ctx, nil); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	if err := d.store.WriteDeck(ctx, keys); err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}

	d.metrics.SetDeck(len(keys), 0)
	d.logger.WarnContext(ctx, "deck reset", slog.Int("deck_size", len(keys)))

	return nil
}

// State reports the persisted deck and history sizes.
func (d *DeckManager) State(ctx context.Context) (DeckState, error) {
	deck, history, err := d.load(ctx)
	if err != nil {
		return DeckState{}, err
	}

	d.metrics.SetDeck(len(deck), len(history))

	return DeckState{
		Size:        len(deck),
		RecentSize:  len(recentSet(history, d.repeatDelay)),
		HistorySize: len(history),
	}, nil
}

func (d *DeckManager) load(ctx context.Context) (deck, history []string, err error) {
	deck, err = d.store.ReadDeck(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading deck: %w", err)
	}

	history, err = d.store.ReadHistory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading history: %w", err)
	}

	return deck, history, nil
}

func (d *DeckManager) trim(history []string) []string {
	if d.historyLimit > 0 && len(history) > d.historyLimit {
		return history[len(history)-d.historyLimit:]
	}

	return history
}

// recentSet returns the last n history entries as a set.
func recentSet(history []string, n int) map[string]bool {
	n = min(n, len(history))

	recent := make(map[string]bool, n)
	for _, key := range history[len(history)-n:] {
		recent[key] = true
	}

	return recent
}

// mergeDeck computes (deck \ removed) ∪ added, restricted to all.
// Surviving keys keep their order; new ones are appended.
func mergeDeck(deck, added, removed, all []string) []string {
	valid := make(map[string]bool, len(all))
	for _, key := range all {
		valid[key] = true
	}

	gone := make(map[string]bool, len(removed))
	for _, key := range removed {
		gone[key] = true
	}

	next := make([]string, 0, len(deck)+len(added))
	seen := make(map[string]bool, len(deck)+len(added))

	for _, key := range slices.Concat(deck, added) {
		if seen[key] || !valid[key] {
			continue
		}

		// an added key overrides a removal of the same key
		if gone[key] && !slices.Contains(added, key) {
			continue
		}

		seen[key] = true
		next = append(next, key)
	}

	return next
}
