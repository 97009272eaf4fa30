// Package filestore keeps the collection and deck state as flat files in one directory.
//
// Layout under the data directory:
//
//	quotes.toml         local copy of the collection
//	quote_duds.toml     quarantine report
//	quote_deck.txt      keys still eligible this cycle, one per line
//	quote_history.txt   every drawn key, oldest first, one per line
//
// Every write goes to a temporary file that is then renamed over the target.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File names under the data directory.
const (
	CollectionFile = "quotes.toml"
	QuarantineFile = "quote_duds.toml"
	DeckFile       = "quote_deck.txt"
	HistoryFile    = "quote_history.txt"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store implements ports.StateStore on the local filesystem.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Config holds store configuration.
type Config struct {
	// Dir is the data directory. It is created if missing.
	Dir string

	// Logger is used for store diagnostics.
	Logger *slog.Logger
}

// New creates the data directory and any missing state files.
func New(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{dir: cfg.Dir, logger: logger}

	if err := os.MkdirAll(cfg.Dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", cfg.Dir, err)
	}

	for _, name := range []string{CollectionFile, QuarantineFile, DeckFile, HistoryFile} {
		if err := s.touch(name); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "state-store"
}

// Check verifies the data directory is still writable.
func (s *Store) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, ".health-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}

	name := f.Name()
	_ = f.Close()

	return os.Remove(name)
}

// ReadCollection returns the local collection document.
func (s *Store) ReadCollection(ctx context.Context) (string, error) {
	return s.readText(ctx, CollectionFile)
}

// WriteCollection replaces the local collection document.
func (s *Store) WriteCollection(ctx context.Context, text string) error {
	return s.writeText(ctx, CollectionFile, text)
}

// ReadQuarantine returns the quarantine report.
func (s *Store) ReadQuarantine(ctx context.Context) (string, error) {
	return s.readText(ctx, QuarantineFile)
}

// WriteQuarantine replaces the quarantine report.
func (s *Store) WriteQuarantine(ctx context.Context, text string) error {
	return s.writeText(ctx, QuarantineFile, text)
}

// ReadDeck returns the deck keys.
func (s *Store) ReadDeck(ctx context.Context) ([]string, error) {
	return s.readLines(ctx, DeckFile)
}

// WriteDeck replaces the deck keys.
func (s *Store) WriteDeck(ctx context.Context, keys []string) error {
	return s.writeText(ctx, DeckFile, strings.Join(keys, "\n"))
}

// ReadHistory returns the draw history, oldest first.
func (s *Store) ReadHistory(ctx context.Context) ([]string, error) {
	return s.readLines(ctx, HistoryFile)
}

// WriteHistory replaces the draw history.
func (s *Store) WriteHistory(ctx context.Context, keys []string) error {
	return s.writeText(ctx, HistoryFile, strings.Join(keys, "\n"))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) touch(name string) error {
	p := s.path(name)

	_, err := os.Stat(p)
	if err == nil {
		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", p, err)
	}

	s.logger.Info("creating missing state file", slog.String("path", p))

	if err := os.WriteFile(p, nil, filePerm); err != nil {
		return fmt.Errorf("creating %s: %w", p, err)
	}

	return nil
}

func (s *Store) readText(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	return string(data), nil
}

func (s *Store) readLines(ctx context.Context, name string) ([]string, error) {
	text, err := s.readText(ctx, name)
	if err != nil {
		return nil, err
	}

	var lines []string

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// writeText replaces name atomically: write a sibling temp file, then rename.
func (s *Store) writeText(ctx context.Context, name, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.path(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	return nil
}
