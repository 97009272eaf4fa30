package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(Config{Dir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)

	return s
}

func TestNew_CreatesStateFiles(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{CollectionFile, QuarantineFile, DeckFile, HistoryFile} {
		info, err := os.Stat(filepath.Join(s.Dir(), name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size(), name)
	}
}

func TestNew_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeckFile), []byte("q1\nq2"), 0o644))

	s, err := New(Config{Dir: dir})
	require.NoError(t, err)

	deck, err := s.ReadDeck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, deck)
}

func TestStore_TextRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WriteCollection(ctx, "[q1]\nsubmitter = \"A\"\n"))
	require.NoError(t, s.WriteQuarantine(ctx, "# bad\n"))

	text, err := s.ReadCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[q1]\nsubmitter = \"A\"\n", text)

	report, err := s.ReadQuarantine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "# bad\n", report)

	require.NoError(t, s.WriteQuarantine(ctx, ""))

	report, err = s.ReadQuarantine(ctx)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestStore_Lines(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WriteHistory(ctx, []string{"a", "b", "a"}))
	require.NoError(t, s.WriteDeck(ctx, nil))

	history, err := s.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, history)

	deck, err := s.ReadDeck(ctx)
	require.NoError(t, err)
	assert.Empty(t, deck)
}

func TestStore_ReadLinesSkipsBlankLines(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), HistoryFile), []byte("a\r\n\n b \n"), 0o644))

	history, err := s.ReadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, history)
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WriteDeck(ctx, []string{"q1"}))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.WriteDeck(ctx, []string{"q1"}), context.Canceled)

	_, err := s.ReadDeck(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStore_Check(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, "state-store", s.Name())
	require.NoError(t, s.Check(context.Background()))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 4, "health probe cleans up")
}
