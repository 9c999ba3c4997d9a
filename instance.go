package cadence

import (
	"fmt"
	"log/slog"
)

// InstanceConfig configures runtime bootstrap.
type InstanceConfig struct {
	// ApplicationName labels the connection for the runtime. Optional.
	ApplicationName string

	// Extensions lists required extension names (ExtGraphics and friends).
	// Bootstrap fails with ErrRuntimeUnavailable when no registered backend
	// supports all of them.
	Extensions []string

	// Logger receives lifecycle log lines. nil discards them.
	Logger *slog.Logger

	// Messenger receives runtime debug messages. Only delivered when
	// ExtDebugUtils is among Extensions.
	Messenger *DebugMessenger
}

// Instance is an open connection to a runtime. It owns at most one live
// Session at a time and must be destroyed after use; Destroy also tears down
// a still-live session.
type Instance struct {
	cfg       InstanceConfig
	backend   Backend
	rt        RuntimeInstance
	logger    *slog.Logger
	session   *Session
	destroyed bool
}

// NewInstance selects a compatible registered backend and connects to it.
func NewInstance(cfg InstanceConfig) (*Instance, error) {
	backend, err := selectBackend(cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rt, err := backend.CreateInstance(cfg)
	if err != nil {
		return nil, fmt.Errorf("create instance on %q: %w", backend.Name(), err)
	}
	props := rt.Properties()
	logger.Info("instance created",
		"backend", backend.Name(),
		"runtime", props.RuntimeName,
		"version", props.RuntimeVersion)
	return &Instance{
		cfg:     cfg,
		backend: backend,
		rt:      rt,
		logger:  logger,
	}, nil
}

// Properties returns the runtime identification behind this instance.
func (i *Instance) Properties() InstanceProperties {
	return i.rt.Properties()
}

// Now returns the runtime clock. Headless sessions use this in place of
// predicted display times.
func (i *Instance) Now() Time {
	return i.rt.Now()
}

// Enabled reports whether the named extension was requested at bootstrap.
func (i *Instance) Enabled(extension string) bool {
	for _, ext := range i.cfg.Extensions {
		if ext == extension {
			return true
		}
	}
	return false
}

// CreateSession opens the instance's session. At most one session may be
// live per instance; destroy the previous one first.
func (i *Instance) CreateSession(cfg SessionConfig) (*Session, error) {
	if i.destroyed {
		return nil, fmt.Errorf("create session: instance destroyed")
	}
	if i.session != nil {
		return nil, fmt.Errorf("create session: instance already has a live session")
	}
	rt, err := i.rt.CreateSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s := &Session{inst: i, rt: rt, state: StateIdle}
	i.session = s
	i.logger.Info("session created")
	return s, nil
}

// Destroy releases the instance and any session still owned by it.
// Idempotent: the first call tears down, later calls are no-ops.
func (i *Instance) Destroy() error {
	if i.destroyed {
		return nil
	}
	i.destroyed = true
	var firstErr error
	if i.session != nil {
		if err := i.session.Destroy(); err != nil {
			firstErr = err
		}
	}
	if err := i.rt.Destroy(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("destroy instance: %w", err)
	}
	i.logger.Info("instance destroyed")
	return firstErr
}
