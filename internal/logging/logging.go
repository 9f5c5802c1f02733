// Package logging holds the harness-wide structured logger. DUT console
// transcripts never go through it; they go to per-session log files.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the handler used by the default logger.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	// Logger is the logger used by every harness package.
	Logger *slog.Logger

	level = new(slog.LevelVar)
	mu    sync.RWMutex
)

func init() {
	level.Set(slog.LevelInfo)
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// L returns the current logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// SetLevel sets the minimum level for harness logging.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Setup replaces the default logger with one writing to w in format f.
func Setup(w io.Writer, f Format) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: level}
	switch f {
	case FormatJSON:
		Logger = slog.New(slog.NewJSONHandler(w, opts))
	default:
		Logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown names
// map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps "json" to FormatJSON and everything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}
