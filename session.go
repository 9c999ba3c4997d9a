package cadence

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// SessionConfig configures session creation. The zero value asks for the
// backend's defaults (stereo views for graphics backends).
type SessionConfig struct {
	// ViewCount overrides the number of views the backend reports per frame.
	// 0 keeps the backend default.
	ViewCount int
}

// Session is an active connection between the application and the device
// stack. It owns every reference space, action space, and swapchain created
// through it and releases them all, exactly once, when destroyed — however
// the frame loop exited.
type Session struct {
	inst  *Instance
	rt    RuntimeSession
	state SessionState

	begun       bool
	destroyed   bool
	focusedSeen bool

	refSpaces  []*ReferenceSpace
	actSpaces  []*ActionSpace
	swapchains []*Swapchain

	// openLeases counts swapchain images currently acquired. The frame loop
	// requires it back at zero before each EndFrame.
	openLeases int

	// presented holds the most recently rendered per-view images, for the
	// desktop mirror. Indexed by view.
	presented []*ebiten.Image
}

// Instance returns the owning instance.
func (s *Session) Instance() *Instance {
	return s.inst
}

// State returns the last runtime-reported session state.
func (s *Session) State() SessionState {
	return s.state
}

// WasFocused reports whether the session ever reached StateFocused. Demos
// use it to hint that the headset was never worn.
func (s *Session) WasFocused() bool {
	return s.focusedSeen
}

// CreateReferenceSpace requests a named spatial coordinate frame. The space
// is owned by the session and released by Destroy.
func (s *Session) CreateReferenceSpace(t ReferenceSpaceType) (*ReferenceSpace, error) {
	if s.destroyed {
		return nil, fmt.Errorf("create reference space: session destroyed")
	}
	rt, err := s.rt.CreateReferenceSpace(t)
	if err != nil {
		return nil, fmt.Errorf("create %s reference space: %w", t, err)
	}
	space := &ReferenceSpace{session: s, rt: rt, spaceType: t}
	s.refSpaces = append(s.refSpaces, space)
	return space, nil
}

// CreateActionSpace binds a pose action and subaction path to a locatable
// space. Returns ErrPathUnsupported (wrapped) for device paths the backend
// does not serve; callers binding optional devices skip those.
func (s *Session) CreateActionSpace(action *PoseAction, subaction Path) (*ActionSpace, error) {
	if s.destroyed {
		return nil, fmt.Errorf("create action space: session destroyed")
	}
	rt, err := s.rt.CreateActionSpace(action.Name, subaction)
	if err != nil {
		return nil, fmt.Errorf("create action space %s/%s: %w", action.Name, subaction, err)
	}
	space := &ActionSpace{session: s, rt: rt, action: action, subaction: subaction}
	s.actSpaces = append(s.actSpaces, space)
	return space, nil
}

// CreateSwapchain allocates a ring of render targets. Headless backends
// refuse it.
func (s *Session) CreateSwapchain(extent Extent2Di) (*Swapchain, error) {
	if s.destroyed {
		return nil, fmt.Errorf("create swapchain: session destroyed")
	}
	rt, err := s.rt.CreateSwapchain(extent)
	if err != nil {
		return nil, fmt.Errorf("create swapchain: %w", err)
	}
	sc := &Swapchain{session: s, rt: rt}
	s.swapchains = append(s.swapchains, sc)
	return sc, nil
}

// AttachActionSets attaches action sets to the session. Each set may be
// attached once, ever; a second attach is a misuse error.
func (s *Session) AttachActionSets(sets ...*ActionSet) error {
	names := make([]string, 0, len(sets))
	for _, set := range sets {
		if set.attached {
			return fmt.Errorf("attach action sets: %q already attached", set.Name)
		}
		names = append(names, set.Name)
	}
	if err := s.rt.AttachActionSets(names); err != nil {
		return fmt.Errorf("attach action sets: %w", err)
	}
	for _, set := range sets {
		set.attached = true
	}
	return nil
}

// SyncActions refreshes action state for this frame. Input data only flows
// while the session is focused.
func (s *Session) SyncActions() error {
	if err := s.rt.SyncActions(); err != nil {
		return fmt.Errorf("sync actions: %w", err)
	}
	return nil
}

// Destroy releases every space and swapchain owned by the session, then the
// session itself. Idempotent: the first call tears down, later calls are
// no-ops. Also detaches the session from its instance so a new one can be
// created.
func (s *Session) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Release in reverse creation order: swapchains, action spaces,
	// reference spaces, then the session handle.
	for i := len(s.swapchains) - 1; i >= 0; i-- {
		keep(s.swapchains[i].destroy())
	}
	for i := len(s.actSpaces) - 1; i >= 0; i-- {
		keep(s.actSpaces[i].destroy())
	}
	for i := len(s.refSpaces) - 1; i >= 0; i-- {
		keep(s.refSpaces[i].destroy())
	}
	if s.begun {
		keep(s.rt.End())
		s.begun = false
	}
	keep(s.rt.Destroy())

	if s.inst != nil && s.inst.session == s {
		s.inst.session = nil
	}
	s.inst.logger.Info("session destroyed")
	return firstErr
}
