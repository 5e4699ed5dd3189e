package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// New creates a console logger at info level.
func New() zerolog.Logger {
	return NewWithOptions(os.Stdout, Options{Level: "info", Format: "console"})
}

// NewWithOptions creates a logger writing to w.
func NewWithOptions(w io.Writer, opts Options) zerolog.Logger {
	if strings.EqualFold(opts.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
}

// NewWithWriter creates a JSON logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context, or a disabled logger when none is set.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
			return logger
		}
	}
	return zerolog.Nop()
}

// WithComponent tags a logger the way service logs are prefixed, e.g. "Recurring".
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// Component returns the context logger tagged with component.
func Component(ctx context.Context, component string) zerolog.Logger {
	return WithComponent(FromContext(ctx), component)
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
