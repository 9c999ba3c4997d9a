package cadence

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSeverityLevel(t *testing.T) {
	cases := []struct {
		sev  Severity
		want slog.Level
	}{
		{SeverityVerbose, slog.LevelDebug},
		{SeverityInfo, slog.LevelInfo},
		{SeverityWarning, slog.LevelWarn},
		{SeverityError, slog.LevelError},
		// Combined masks report at the most severe bit.
		{SeverityInfo | SeverityError, slog.LevelError},
		{SeverityVerbose | SeverityWarning, slog.LevelWarn},
	}
	for _, c := range cases {
		if got := c.sev.Level(); got != c.want {
			t.Errorf("Severity(%b).Level() = %v, want %v", c.sev, got, c.want)
		}
	}
}

func TestMessengerFanOut(t *testing.T) {
	var a, b bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	m := NewDebugMessenger(SeverityAll,
		slog.NewTextHandler(&a, opts),
		slog.NewJSONHandler(&b, opts),
	)

	m.Message(SeverityWarning, "WaitFrame", "display period unstable")

	for name, buf := range map[string]*bytes.Buffer{"text": &a, "json": &b} {
		out := buf.String()
		if !strings.Contains(out, "display period unstable") {
			t.Errorf("%s handler missing message: %q", name, out)
		}
		if !strings.Contains(out, "WaitFrame") {
			t.Errorf("%s handler missing function attr: %q", name, out)
		}
	}
}

func TestMessengerMaskFilters(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	m := NewDebugMessenger(SeverityError, slog.NewTextHandler(&buf, opts))

	m.Message(SeverityVerbose, "CreateSession", "noise")
	m.Message(SeverityInfo, "PollEvent", "more noise")
	if buf.Len() != 0 {
		t.Fatalf("filtered severities were delivered: %q", buf.String())
	}

	m.Message(SeverityError, "EndFrame", "frame dropped")
	if !strings.Contains(buf.String(), "frame dropped") {
		t.Fatalf("error severity not delivered: %q", buf.String())
	}
}

func TestNilMessengerDropsEverything(t *testing.T) {
	var m *DebugMessenger
	// Must not panic.
	m.Message(SeverityError, "Anything", "ignored")
}

func TestSimEmitsThroughMessenger(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	m := NewDebugMessenger(SeverityAll, slog.NewTextHandler(&buf, opts))

	withBackend(t, NewSimBackend(SimConfig{}))
	inst, err := NewInstance(InstanceConfig{
		Extensions: []string{ExtHeadless, ExtDebugUtils},
		Messenger:  m,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()

	if !strings.Contains(buf.String(), "CreateInstance") {
		t.Errorf("no instance-creation message delivered: %q", buf.String())
	}
}

func TestSimMessengerRequiresExtension(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	m := NewDebugMessenger(SeverityAll, slog.NewTextHandler(&buf, opts))

	withBackend(t, NewSimBackend(SimConfig{}))
	inst, err := NewInstance(InstanceConfig{
		Extensions: []string{ExtHeadless}, // no debug_utils
		Messenger:  m,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()

	if buf.Len() != 0 {
		t.Errorf("messages delivered without the extension: %q", buf.String())
	}
}
