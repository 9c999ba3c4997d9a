package cadence

import (
	"context"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Severity is a bitmask of runtime debug message severities.
type Severity uint8

const (
	SeverityVerbose Severity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// SeverityAll enables every severity bit.
const SeverityAll = SeverityVerbose | SeverityInfo | SeverityWarning | SeverityError

// Level maps a severity to its slog level. For combined masks the most
// severe bit wins.
func (s Severity) Level() slog.Level {
	switch {
	case s&SeverityError != 0:
		return slog.LevelError
	case s&SeverityWarning != 0:
		return slog.LevelWarn
	case s&SeverityInfo != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// DebugMessenger receives debug messages from the runtime and fans them out
// to any number of slog handlers. Requires ExtDebugUtils on the instance.
//
// A nil messenger is valid and drops everything, so backends can call
// Message unconditionally.
type DebugMessenger struct {
	logger *slog.Logger
	mask   Severity
}

// NewDebugMessenger creates a messenger delivering messages whose severity
// intersects mask. With multiple handlers every record goes to all of them.
func NewDebugMessenger(mask Severity, handlers ...slog.Handler) *DebugMessenger {
	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.DiscardHandler
	case 1:
		h = handlers[0]
	default:
		h = slogmulti.Fanout(handlers...)
	}
	return &DebugMessenger{logger: slog.New(h), mask: mask}
}

// Message delivers one runtime debug message. function names the runtime
// entry point that produced it.
func (m *DebugMessenger) Message(sev Severity, function, message string) {
	if m == nil || sev&m.mask == 0 {
		return
	}
	m.logger.Log(context.Background(), sev.Level(), message, "function", function)
}
