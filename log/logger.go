// Package log provides the runtime's structured logger: a thin wrapper over
// log/slog with the Trace and Crit levels the core expects, key/value context
// pairs, and a terminal handler that colorizes when attached to a TTY.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-stack/stack"
)

const errorKey = "LOG_ERROR"

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = slog.Level(12)
)

// LevelString returns the five-letter tag used by the terminal handler.
func LevelString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO "
	case LevelWarn:
		return "WARN "
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT "
	default:
		return l.String()
	}
}

type Logger interface {
	With(ctx ...any) Logger
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	// Crit logs and then terminates the process.
	Crit(msg string, ctx ...any)
	Enabled(level slog.Level) bool
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a Logger over the given slog.Handler.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) Enabled(level slog.Level) bool {
	return l.inner.Enabled(context.Background(), level)
}

func (l *logger) write(level slog.Level, msg string, attrs []any) {
	if !l.Enabled(level) {
		return
	}
	if level >= LevelError {
		// Call site of the logging statement, two frames above write.
		attrs = append(attrs, "caller", fmt.Sprintf("%+v", stack.Caller(2)))
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.Add(attrs...)
	l.inner.Handler().Handle(context.Background(), r)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx) }

func (l *logger) Crit(msg string, ctx ...any) {
	l.write(LevelCrit, msg, ctx)
	os.Exit(1)
}
