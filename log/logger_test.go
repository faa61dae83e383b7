package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalHandlerFormat(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelTrace, false))
	logger.Info("a message", "foo", "bar")

	have := out.String()
	if !strings.HasPrefix(have, "INFO ") {
		t.Errorf("missing level tag: %q", have)
	}
	// The timestamp is locale-dependent; check around it.
	if !strings.Contains(have, "] a message") {
		t.Errorf("missing message: %q", have)
	}
	if !strings.Contains(have, "foo=bar") {
		t.Errorf("missing attrs: %q", have)
	}
}

func TestLevelFiltering(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelWarn, false))
	logger.Debug("should not be seen")
	logger.Trace("nor this")
	if out.Len() != 0 {
		t.Errorf("low-level records leaked: %q", out.String())
	}
	logger.Warn("visible")
	if !strings.Contains(out.String(), "visible") {
		t.Errorf("warn record missing: %q", out.String())
	}
}

func TestWithAttachesContext(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelTrace, false)).With("sub", "gc")
	logger.Info("cycle done", "swept", 3)
	have := out.String()
	if !strings.Contains(have, "sub=gc") || !strings.Contains(have, "swept=3") {
		t.Errorf("context attrs missing: %q", have)
	}
}

func TestErrorRecordsCaller(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelTrace, false))
	logger.Error("boom")
	if !strings.Contains(out.String(), "caller=") {
		t.Errorf("caller missing on error records: %q", out.String())
	}
	out.Reset()
	logger.Info("fine")
	if strings.Contains(out.String(), "caller=") {
		t.Errorf("caller attached below error: %q", out.String())
	}
}
