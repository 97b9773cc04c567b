// Package logger provides structured logging setup for TilHub Core.
// All components log through log/slog; this package builds the root
// logger from configuration and provides shared attribute helpers.
// No external dependencies - uses only standard library.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options configures the root logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer

	// Level is one of debug, info, warn, error (case-insensitive).
	Level string

	// Format is "json" or "text".
	Format string

	// AddSource includes file:line in each record.
	AddSource bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  "info",
		Format: "json",
	}
}

// ParseLevel parses a level string, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New builds a *slog.Logger from the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(opts.Format) == "text" {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}

	return slog.New(handler)
}

// Setup builds the root logger and installs it as the slog default,
// so components falling back to slog.Default() share the same handler.
func Setup(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// Shared attribute helpers. Keeping the keys in one place keeps log
// queries stable across components.

func UserID(id string) slog.Attr            { return slog.String("user_id", id) }
func NodeID(id string) slog.Attr            { return slog.String("node_id", id) }
func SkillID(id string) slog.Attr           { return slog.String("skill_id", id) }
func QuestID(id string) slog.Attr           { return slog.String("quest_id", id) }
func SessionID(id string) slog.Attr         { return slog.String("session_id", id) }
func XPAmount(xp int) slog.Attr             { return slog.Int("xp_amount", xp) }
func Component(name string) slog.Attr       { return slog.String("component", name) }
func Operation(name string) slog.Attr       { return slog.String("operation", name) }
func Latency(d time.Duration) slog.Attr     { return slog.String("latency", d.String()) }
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
