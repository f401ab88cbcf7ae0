package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != log.Default() {
		t.Error("expected log.Default() when no logger is attached")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, log.DebugLevel)
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).Debug("frame submitted", "batch", 3)
	if !strings.Contains(buf.String(), "frame submitted") {
		t.Errorf("log output %q missing message", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel(""); err != nil || lvl != log.InfoLevel {
		t.Errorf("ParseLevel(\"\") = %v, %v; want info, nil", lvl, err)
	}
	if lvl, err := ParseLevel("DEBUG"); err != nil || lvl != log.DebugLevel {
		t.Errorf("ParseLevel(DEBUG) = %v, %v; want debug, nil", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) expected error")
	}
}
