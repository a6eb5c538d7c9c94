// Package logger configures the slog loggers shared by the click simulation
// components.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default is the logger components start with until SetLogger is called.
// It writes JSON to stderr so command output on stdout stays clean.
var Default = New("info", os.Stderr)

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New creates a JSON logger
func New(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewText creates a text logger for terminals
func NewText(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// SetDefault replaces Default and the slog package default
func SetDefault(l *slog.Logger) {
	Default = l
	slog.SetDefault(l)
}

// ForEpisode returns l scoped to one interaction episode. A nil l uses
// Default.
func ForEpisode(l *slog.Logger, sampleID, episodeID string) *slog.Logger {
	if l == nil {
		l = Default
	}
	return l.With("sample_id", sampleID, "episode_id", episodeID)
}
