package cadence

import (
	"errors"
	"time"
)

// Extension names a backend may support. Extensions are negotiated at
// instance creation; requesting one a backend lacks fails the bootstrap.
const (
	// ExtGraphics enables swapchain creation and frame rendering.
	ExtGraphics = "graphics"
	// ExtHeadless allows running a session with no swapchain at all.
	ExtHeadless = "headless"
	// ExtDebugUtils routes runtime debug messages to a DebugMessenger.
	ExtDebugUtils = "debug_utils"
	// ExtTrackerRoles enables role-addressed generic tracker devices.
	ExtTrackerRoles = "tracker_roles"
)

// Sentinel errors surfaced by the lifecycle layer. Compare with errors.Is.
var (
	// ErrRuntimeUnavailable means no registered backend can satisfy the
	// requested extensions. Fatal at bootstrap.
	ErrRuntimeUnavailable = errors.New("cadence: no compatible runtime backend")

	// ErrSessionLost means the runtime reported the session gone. The frame
	// loop treats it as normal termination, not a failure.
	ErrSessionLost = errors.New("cadence: session lost")

	// ErrSwapchainExhausted means an acquire found no free swapchain image.
	// There is no retry policy; it terminates the frame loop.
	ErrSwapchainExhausted = errors.New("cadence: no swapchain image available")

	// ErrPathUnsupported means the backend does not serve the requested
	// device path. Callers binding optional devices skip the path.
	ErrPathUnsupported = errors.New("cadence: device path unsupported")
)

// Termination is the sentinel a frame callback returns to stop the loop
// cleanly. RunFrames requests a session exit and returns nil once the
// runtime acknowledges it.
var Termination = errors.New("cadence: frame loop terminated")

// SessionState is the runtime-reported session state.
type SessionState uint8

const (
	StateIdle         SessionState = iota // created, not yet ready to begin
	StateReady                            // runtime is ready for Begin
	StateSynchronized                     // frame timing established
	StateVisible                          // content shown, input not routed here
	StateFocused                          // content shown, input routed here
	StateStopping                         // runtime wants the session ended
	StateExiting                          // session is going away for good
	StateLossPending                      // runtime itself is about to vanish
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateSynchronized:
		return "synchronized"
	case StateVisible:
		return "visible"
	case StateFocused:
		return "focused"
	case StateStopping:
		return "stopping"
	case StateExiting:
		return "exiting"
	case StateLossPending:
		return "loss_pending"
	default:
		return "unknown"
	}
}

// EventKind identifies a polled runtime event.
type EventKind uint8

const (
	EventNone         EventKind = iota // no event pending
	EventStateChanged                  // session state transition; Event.State holds the new state
	EventInstanceLoss                  // the runtime connection is gone
)

// Event is a tagged runtime event. Fields beyond Kind are valid only for the
// kinds that document them.
type Event struct {
	Kind  EventKind
	State SessionState
}

// FrameState is the runtime's timing snapshot for one frame slot.
type FrameState struct {
	PredictedDisplayTime   Time
	PredictedDisplayPeriod time.Duration
	ShouldRender           bool
}

// ViewPose is one eye's pose and frustum for a frame.
type ViewPose struct {
	Pose Posef
	Fov  Fov
}

// InstanceProperties describes the runtime behind an instance.
type InstanceProperties struct {
	RuntimeName    string
	RuntimeVersion string
}

// Backend is a discoverable runtime implementation. Register one with
// RegisterBackend before calling NewInstance.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Supports reports whether the backend implements the named extension.
	Supports(extension string) bool
	// CreateInstance connects to the runtime.
	CreateInstance(cfg InstanceConfig) (RuntimeInstance, error)
}

// RuntimeInstance is the backend-side handle behind an Instance.
type RuntimeInstance interface {
	Properties() InstanceProperties
	// Now returns the runtime clock. Used instead of predicted display times
	// in headless sessions.
	Now() Time
	CreateSession(cfg SessionConfig) (RuntimeSession, error)
	Destroy() error
}

// RuntimeSession is the backend-side handle behind a Session. The frame loop
// is its only caller for the frame-cadence methods; ordering is WaitFrame,
// BeginFrame, EndFrame, strictly once each per iteration.
type RuntimeSession interface {
	// PollEvent pops one pending event. ok is false when the queue is empty.
	PollEvent() (ev Event, ok bool)
	Begin() error
	End() error
	// RequestExit asks the runtime to walk the session to StateStopping.
	RequestExit() error

	WaitFrame() (FrameState, error)
	BeginFrame() error
	EndFrame(displayTime Time) error

	LocateViews(space RuntimeSpace, at Time) ([]ViewPose, error)
	CreateReferenceSpace(t ReferenceSpaceType) (RuntimeSpace, error)
	// CreateActionSpace binds an action/subaction pair to a locatable space.
	// Returns ErrPathUnsupported for paths the backend does not serve.
	CreateActionSpace(action string, subaction Path) (RuntimeSpace, error)
	AttachActionSets(names []string) error
	SyncActions() error

	CreateSwapchain(extent Extent2Di) (RuntimeSwapchain, error)
	Destroy() error
}

// RuntimeSpace is the backend-side handle behind a reference or action space.
type RuntimeSpace interface {
	// Locate samples the space's pose relative to base at the given time.
	// Untracked devices report a sample with State TrackingUntracked; the
	// error return is reserved for runtime failures.
	Locate(base RuntimeSpace, at Time) (PoseSample, error)
	Destroy() error
}

// RuntimeSwapchain is the backend-side image ring behind a Swapchain.
type RuntimeSwapchain interface {
	Extent() Extent2Di
	Acquire() (*SwapchainImage, error)
	Release(img *SwapchainImage) error
	Destroy() error
}

// --- Backend registry ---

var backendRegistry []Backend

// RegisterBackend makes a backend available to NewInstance. Backends are
// tried in registration order.
func RegisterBackend(b Backend) {
	backendRegistry = append(backendRegistry, b)
}

// selectBackend returns the first registered backend supporting every
// requested extension.
func selectBackend(extensions []string) (Backend, error) {
	for _, b := range backendRegistry {
		ok := true
		for _, ext := range extensions {
			if !b.Supports(ext) {
				ok = false
				break
			}
		}
		if ok {
			return b, nil
		}
	}
	return nil, ErrRuntimeUnavailable
}
