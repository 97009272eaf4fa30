// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/quotedeck/internal/domain"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

// Selection is a drawn quote together with where it sits in the collection.
type Selection struct {
	Key      string
	Quote    *domain.Quote
	Position domain.Position
	Total    int
}

// DeckStatus is the deck state plus the most recent sync outcome.
type DeckStatus struct {
	Deck     DeckState   `json:"deck"`
	LastSync *SyncReport `json:"last_sync,omitempty"`
}

// QuoteService orchestrates the selection use cases.
// Every operation syncs first so draws see the latest collection, and all
// operations are serialized: the deck files have a single writer.
type QuoteService struct {
	mu     sync.Mutex
	store  ports.StateStore
	engine *SyncEngine
	deck   *DeckManager
	logger *slog.Logger
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Store  ports.StateStore
	Sync   *SyncEngine
	Deck   *DeckManager
	Logger *slog.Logger
}

// NewQuoteService creates a new quote service with the provided dependencies.
// Panics if Store, Sync, or Deck is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	switch {
	case cfg.Store == nil:
		panic("QuoteService: Store is required")
	case cfg.Sync == nil:
		panic("QuoteService: Sync is required")
	case cfg.Deck == nil:
		panic("QuoteService: Deck is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteService{
		store:  cfg.Store,
		engine: cfg.Sync,
		deck:   cfg.Deck,
		logger: logger.With(slog.String("component", "app.QuoteService")),
	}
}

// GetRandomQuote syncs and draws a quote that has not been shown recently.
// Returns domain.ErrExhaustedPool when every deck entry is recent.
func (s *QuoteService) GetRandomQuote(ctx context.Context) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.engine.Sync(ctx)

	q, pos, err := s.deck.DrawRandom(ctx, c)
	if err != nil {
		if domain.IsExhaustedPool(err) {
			return nil, err
		}

		s.logger.ErrorContext(ctx, "failed to draw quote", slog.Any("error", err))

		return nil, err
	}

	key := c.Keys()[pos-1]

	s.logger.InfoContext(ctx, "drew random quote",
		slog.String("key", key),
		slog.Int("position", pos),
		slog.Int("total", c.Len()),
	)

	return &Selection{
		Key:      key,
		Quote:    q,
		Position: domain.NumberedPosition(pos),
		Total:    c.Len(),
	}, nil
}

// GetQuoteByKey syncs and returns the quote stored under key. A missing
// key yields the fallback quote at the "Test" position. The deck and
// history are left alone.
func (s *QuoteService) GetQuoteByKey(ctx context.Context, key string) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.engine.Sync(ctx)
	q, pos := s.deck.DrawSpecific(key, c)

	s.logger.InfoContext(ctx, "fetched quote by key",
		slog.String("key", key),
		slog.String("position", pos.String()),
	)

	return &Selection{Key: key, Quote: q, Position: pos, Total: c.Len()}, nil
}

// Sync runs one sync cycle and returns its report.
func (s *QuoteService) Sync(ctx context.Context) *SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Sync(ctx)

	return s.engine.LastReport()
}

// Quarantine returns the quarantine report exactly as stored.
func (s *QuoteService) Quarantine(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.store.ReadQuarantine(ctx)
	if err != nil {
		return "", fmt.Errorf("reading quarantine: %w", err)
	}

	return text, nil
}

// SubmitterCounts syncs and tallies quotes per submitter.
func (s *QuoteService) SubmitterCounts(ctx context.Context) []domain.SubmitterCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.CountSubmitters(s.engine.Sync(ctx))
}

// ResetDeck syncs and starts a fresh cycle over the whole collection.
func (s *QuoteService) ResetDeck(ctx context.Context) (DeckState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.engine.Sync(ctx)

	if err := s.deck.Reset(ctx, c.Keys()); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset deck", slog.Any("error", err))
		return DeckState{}, err
	}

	return s.deck.State(ctx)
}

// DeckStatus reports the deck state without syncing.
func (s *QuoteService) DeckStatus(ctx context.Context) (*DeckStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.deck.State(ctx)
	if err != nil {
		return nil, err
	}

	return &DeckStatus{Deck: state, LastSync: s.engine.LastReport()}, nil
}
