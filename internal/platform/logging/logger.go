// Package logging provides structured logging using Go's slog package.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace is below debug; it logs every collection record as it is validated.
const LevelTrace = slog.Level(-8)

// Config holds logging configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error
	Format  string // json, text, pretty
	Service string // service name for default attrs
	Version string // service version for default attrs
	File    FileConfig
}

// FileConfig enables a rolling JSON log file alongside terminal output.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a logger writing to stdout (and the log file, if enabled).
// The returned closer flushes and closes the log file; it is a no-op otherwise.
func New(cfg *Config) (*slog.Logger, io.Closer) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing terminal output to w.
// Secrets are redacted in every output.
func NewWithWriter(cfg *Config, w io.Writer) (*slog.Logger, io.Closer) {
	level := parseLevel(cfg.Level)
	replace := NewReplaceAttr()

	handler := terminalHandler(cfg.Format, w, level, replace)

	var closer io.Closer = nopCloser{}

	if cfg.File.Enabled {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}

		fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames(replace),
		})

		handler = NewMultiHandler(handler, fileHandler)
		closer = rotator
	}

	logger := slog.New(handler).With(
		slog.String("service_name", cfg.Service),
		slog.String("service_version", cfg.Version),
	)

	return logger, closer
}

func terminalHandler(format string, w io.Writer, level slog.Level, replace ReplaceFunc) slog.Handler {
	switch strings.ToLower(format) {
	case "pretty":
		charm := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			Level:           slogToCharmLevel(level),
		})

		return newRedactingHandler(charm, replace)
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames(replace),
		})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames(replace),
		})
	}
}

// replaceLevelNames prints LevelTrace as "TRACE" instead of "DEBUG-4".
func replaceLevelNames(next ReplaceFunc) ReplaceFunc {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && len(groups) == 0 {
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}

		return next(groups, a)
	}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogToCharmLevel maps slog levels onto the coarser charm levels.
func slogToCharmLevel(level slog.Level) log.Level {
	switch {
	case level < slog.LevelInfo:
		return log.DebugLevel
	case level < slog.LevelWarn:
		return log.InfoLevel
	case level < slog.LevelError:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
