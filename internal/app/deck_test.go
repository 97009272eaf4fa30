package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedeck/internal/adapters/filestore"
	"github.com/jsamuelsen/quotedeck/internal/domain"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2)) //nolint:gosec // deterministic tests
}

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()

	store, err := filestore.New(filestore.Config{Dir: t.TempDir(), Logger: discardLogger()})
	require.NoError(t, err)

	return store
}

func testCollection(keys ...string) *domain.Collection {
	c := domain.NewCollection()
	for _, key := range keys {
		c.Set(key, &domain.Quote{Submitter: "Alice", Text: "Quote " + key})
	}

	return c
}

func newTestDeck(store *filestore.Store, repeatDelay int) *DeckManager {
	return NewDeckManager(DeckManagerConfig{
		Store:       store,
		RepeatDelay: repeatDelay,
		Rand:        seededRand(),
		Logger:      discardLogger(),
	})
}

func lastN(s []string, n int) []string {
	return s[len(s)-min(n, len(s)):]
}

func TestNewDeckManager_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() {
		NewDeckManager(DeckManagerConfig{})
	})
}

func TestNewDeckManager_HistoryLimitCoversRepeatDelay(t *testing.T) {
	d := NewDeckManager(DeckManagerConfig{Store: newTestStore(t), RepeatDelay: 10, HistoryLimit: 4})
	assert.Equal(t, 10, d.historyLimit)

	d = NewDeckManager(DeckManagerConfig{Store: newTestStore(t), RepeatDelay: 10})
	assert.Zero(t, d.historyLimit, "zero keeps all history")
}

func TestDrawRandom_NoRepeatAcrossCycles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := testCollection("a", "b", "c", "d", "e", "f")
	deck := newTestDeck(store, 3)

	var history []string

	drawn := map[string]bool{}
	refills := 0

	for range 60 {
		q, pos, err := deck.DrawRandom(ctx, c)
		if errors.Is(err, domain.ErrExhaustedPool) {
			remaining, readErr := store.ReadDeck(ctx)
			require.NoError(t, readErr)
			require.Empty(t, remaining, "only an empty deck can run dry here")

			require.NoError(t, deck.Reconcile(ctx, nil, nil, c.Keys()))

			drawn = map[string]bool{}
			refills++

			continue
		}

		require.NoError(t, err)

		key := c.Keys()[pos-1]
		assert.Equal(t, "Quote "+key, q.Text)
		assert.NotContains(t, lastN(history, 3), key, "drawn within the repeat delay")
		assert.False(t, drawn[key], "drawn twice in one cycle")

		drawn[key] = true
		history = append(history, key)

		// every key is either still in the deck or drawn this cycle
		remaining, err := store.ReadDeck(ctx)
		require.NoError(t, err)

		for _, k := range c.Keys() {
			assert.NotEqual(t, drawn[k], slices.Contains(remaining, k), "key %s", k)
		}
	}

	assert.Greater(t, refills, 1)

	stored, err := store.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, history, stored)
}

func TestDrawRandom_ExhaustedLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteDeck(ctx, []string{"a"}))
	require.NoError(t, store.WriteHistory(ctx, []string{"b", "a"}))

	_, _, err := newTestDeck(store, 1).DrawRandom(ctx, testCollection("a", "b"))

	var exhausted *domain.ExhaustedPoolError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.DeckSize)
	assert.Equal(t, 1, exhausted.RecentSize)

	deck, err := store.ReadDeck(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deck)

	history, err := store.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, history)
}

func TestDrawRandom_IgnoresDeckKeysMissingFromCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteDeck(ctx, []string{"gone", "b"}))

	q, pos, err := newTestDeck(store, 0).DrawRandom(ctx, testCollection("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "Quote b", q.Text)
	assert.Equal(t, 2, pos)
}

func TestDrawRandom_TrimsHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteDeck(ctx, []string{"a", "b", "c"}))
	require.NoError(t, store.WriteHistory(ctx, []string{"x", "y"}))

	deck := NewDeckManager(DeckManagerConfig{Store: store, RepeatDelay: 1, HistoryLimit: 2, Rand: seededRand()})

	_, pos, err := deck.DrawRandom(ctx, testCollection("a", "b", "c"))
	require.NoError(t, err)

	history, err := store.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", []string{"a", "b", "c"}[pos-1]}, history)
}

func TestDrawSpecific(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := testCollection("a", "b")
	deck := newTestDeck(store, 3)

	require.NoError(t, store.WriteDeck(ctx, []string{"a", "b"}))

	q, pos := deck.DrawSpecific("b", c)
	assert.Equal(t, "Quote b", q.Text)
	assert.Equal(t, "2", pos.String())

	q, pos = deck.DrawSpecific("<testing>", c)
	assert.Equal(t, domain.FallbackQuote(), q)
	assert.Equal(t, domain.TestPosition, pos.String())

	remaining, err := store.ReadDeck(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, remaining)

	history, err := store.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		deck    []string
		added   []string
		removed []string
		all     []string
		want    []string
	}{
		{name: "empty deck is refilled", all: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "empty deck and empty collection", want: nil},
		{
			name:    "added and removed keys",
			deck:    []string{"a", "b"},
			added:   []string{"d"},
			removed: []string{"a"},
			all:     []string{"b", "c", "d"},
			want:    []string{"b", "d"},
		},
		{
			name: "keys missing from the collection are pruned",
			deck: []string{"a", "gone"},
			all:  []string{"a", "b"},
			want: []string{"a"},
		},
		{
			name:    "re-added key survives its removal",
			deck:    []string{"a", "b"},
			added:   []string{"a"},
			removed: []string{"a"},
			all:     []string{"a", "b"},
			want:    []string{"a", "b"},
		},
		{
			name: "unchanged collection leaves the deck alone",
			deck: []string{"b"},
			all:  []string{"a", "b"},
			want: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)

			require.NoError(t, store.WriteDeck(ctx, tt.deck))
			require.NoError(t, newTestDeck(store, 3).Reconcile(ctx, tt.added, tt.removed, tt.all))

			got, err := store.ReadDeck(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefill(t *testing.T) {
	tests := []struct {
		name string
		deck []string
		all  []string
		want []string
	}{
		{name: "empty deck is refilled", all: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "stale keys are kept", deck: []string{"a", "gone"}, all: []string{"a", "b"}, want: []string{"a", "gone"}},
		{name: "empty collection prunes nothing", deck: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "nothing to refill with", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)

			require.NoError(t, store.WriteDeck(ctx, tt.deck))
			require.NoError(t, newTestDeck(store, 3).Refill(ctx, tt.all))

			got, err := store.ReadDeck(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	deck := newTestDeck(store, 3)

	require.NoError(t, store.WriteDeck(ctx, []string{"a"}))
	require.NoError(t, store.WriteHistory(ctx, []string{"b", "c", "a"}))

	require.NoError(t, deck.Reset(ctx, []string{"a", "b", "c"}))

	state, err := deck.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, DeckState{Size: 3}, state)

	_, _, err = deck.DrawRandom(ctx, testCollection("a", "b", "c"))
	require.NoError(t, err)
}

func TestDeckState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteDeck(ctx, []string{"a", "b"}))
	require.NoError(t, store.WriteHistory(ctx, []string{"c", "d", "c", "c"}))

	state, err := newTestDeck(store, 3).State(ctx)
	require.NoError(t, err)
	assert.Equal(t, DeckState{Size: 2, RecentSize: 2, HistorySize: 4}, state)
}
