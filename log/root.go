package log

import (
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

var root atomic.Value

func init() {
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	root.Store(NewLogger(NewTerminalHandler(os.Stderr, useColor)))
}

// Root returns the process-wide default logger.
func Root() Logger {
	return root.Load().(Logger)
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l Logger) {
	root.Store(l)
}

// New returns a child of the root logger with the given context attached.
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }
