package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jsamuelsen/quotedeck/internal/adapters/filestore"
	"github.com/jsamuelsen/quotedeck/internal/domain"
)

func benchCollection(n int) *domain.Collection {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("quote_%04d", i)
	}

	return testCollection(keys...)
}

// BenchmarkDeckManager_DrawRandom measures a draw including both state file writes.
// The deck is reset whenever the pool runs dry.
func BenchmarkDeckManager_DrawRandom(b *testing.B) {
	ctx := context.Background()

	store, err := filestore.New(filestore.Config{Dir: b.TempDir(), Logger: discardLogger()})
	if err != nil {
		b.Fatal(err)
	}

	c := benchCollection(500)
	deck := newTestDeck(store, 200)

	if err := deck.Reset(ctx, c.Keys()); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _, err := deck.DrawRandom(ctx, c)
		if errors.Is(err, domain.ErrExhaustedPool) {
			b.StopTimer()

			if err := deck.Reset(ctx, c.Keys()); err != nil {
				b.Fatal(err)
			}

			b.StartTimer()

			continue
		}

		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMergeDeck measures reconciling a large deck after a sync.
func BenchmarkMergeDeck(b *testing.B) {
	all := benchCollection(2000).Keys()
	deck := all[:1500]
	added := all[1900:]
	removed := all[:100]

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = mergeDeck(deck, added, removed, all)
	}
}
