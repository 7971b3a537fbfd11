package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/clipdeck/pkg/ports"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewConsoleTo(ports.LevelInfo, &out, &errOut)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Warn("warned %d", 3)

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug line should be filtered, got %q", out.String())
	}
	if !strings.Contains(out.String(), "shown 2") {
		t.Errorf("expected info line on stdout, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "warned 3") {
		t.Errorf("expected warning on stderr, got %q", errOut.String())
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleTo(ports.LevelDebug, &out, &out)

	l.WithComponent("render").Debug("frame %d", 7)

	if got := out.String(); got != "[render] frame 7\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleTo(ports.LevelQuiet, &out, &out)

	l.Error("nothing")
	if out.Len() != 0 {
		t.Errorf("quiet logger wrote %q", out.String())
	}
}
