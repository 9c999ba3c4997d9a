package cadence

import (
	"context"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// loopPhase is the frame loop's own state machine. running is the only
// looping phase; the others are visited once.
type loopPhase uint8

const (
	phaseSessionReady loopPhase = iota // waiting for the runtime's ready signal
	phaseRunning                       // frames in flight
	phaseExiting                       // loop finished normally
	phaseFaulted                       // loop terminated on a runtime failure
)

// FrameFunc is the per-frame callback. Returning Termination stops the loop
// cleanly; any other error faults it.
type FrameFunc func(*Frame) error

// Frame is one iteration's snapshot: timing from the runtime plus the
// session state the iteration runs under. Valid only for the duration of the
// callback it is passed to.
type Frame struct {
	Index        int
	State        FrameState
	SessionState SessionState

	session *Session
}

// Session returns the session driving this frame.
func (f *Frame) Session() *Session {
	return f.session
}

// Views locates the per-eye view poses for this frame's predicted display
// time, relative to the given reference space.
func (f *Frame) Views(space *ReferenceSpace) ([]ViewPose, error) {
	views, err := f.session.rt.LocateViews(space.rt, f.State.PredictedDisplayTime)
	if err != nil {
		return nil, fmt.Errorf("locate views: %w", err)
	}
	return views, nil
}

// RenderView is one eye's render pass: its pose, frustum, and the swapchain
// image leased for it. Target is only valid inside the render callback.
type RenderView struct {
	Index  int
	Pose   Posef
	Fov    Fov
	Target *ebiten.Image
}

// Clear fills the view's render target with a solid color. No-op when the
// backend exposes no pixels.
func (v *RenderView) Clear(c Color) {
	if v.Target == nil {
		return
	}
	v.Target.Fill(c.toRGBA())
}

// RenderViews acquires one swapchain image per view, invokes render for
// each, and releases every image before returning. Acquire and release are
// paired exactly once per view regardless of render errors.
func (f *Frame) RenderViews(sc *Swapchain, space *ReferenceSpace, render func(*RenderView) error) error {
	views, err := f.Views(space)
	if err != nil {
		return err
	}
	for i, view := range views {
		img, err := sc.Acquire()
		if err != nil {
			return err
		}
		renderErr := render(&RenderView{
			Index:  i,
			Pose:   view.Pose,
			Fov:    view.Fov,
			Target: img.Target,
		})
		if img.Target != nil {
			f.session.setPresented(i, img.Target)
		}
		if relErr := sc.Release(img); relErr != nil && renderErr == nil {
			renderErr = relErr
		}
		if renderErr != nil {
			return renderErr
		}
	}
	return nil
}

// setPresented records the most recent per-view image for the mirror window.
func (s *Session) setPresented(view int, img *ebiten.Image) {
	for len(s.presented) <= view {
		s.presented = append(s.presented, nil)
	}
	s.presented[view] = img
}

// Presented returns the most recently rendered per-view images. Entries may
// be nil before the first rendered frame. The returned slice MUST NOT be
// mutated.
func (s *Session) Presented() []*ebiten.Image {
	return s.presented
}

// --- The loop ---

// frameLoop steps a session through the per-frame cadence. Used directly by
// RunFrames and ticked externally by the desktop mirror.
type frameLoop struct {
	session       *Session
	phase         loopPhase
	frameIndex    int
	exitRequested bool
	err           error
}

func newFrameLoop(s *Session) *frameLoop {
	return &frameLoop{session: s, phase: phaseSessionReady}
}

// RunFrames drives the frame loop until the runtime ends the session, the
// callback returns Termination, a runtime failure surfaces, or ctx is
// canceled. Cancellation requests a session exit and drains the runtime's
// shutdown events before returning, so teardown still sees an ended session.
//
// RunFrames does not destroy the session; pair it with a deferred
// Session.Destroy.
func (s *Session) RunFrames(ctx context.Context, fn FrameFunc) error {
	loop := newFrameLoop(s)
	for {
		done, err := loop.Step(ctx, fn)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step runs at most one frame-loop iteration: drain events, then (when
// running) wait/begin/callback/end one frame. Returns done=true when the
// loop reached a terminal phase.
func (l *frameLoop) Step(ctx context.Context, fn FrameFunc) (done bool, err error) {
	s := l.session
	if l.phase == phaseExiting || l.phase == phaseFaulted {
		return true, l.err
	}

	select {
	case <-ctx.Done():
		l.requestExit()
	default:
	}

	// Drain pending runtime events before touching the frame.
	for {
		ev, ok := s.rt.PollEvent()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventStateChanged:
			s.state = ev.State
			switch ev.State {
			case StateReady:
				if !s.begun {
					if err := s.rt.Begin(); err != nil {
						return true, l.fault(fmt.Errorf("begin session: %w", err))
					}
					s.begun = true
					l.phase = phaseRunning
				}
			case StateFocused:
				s.focusedSeen = true
			case StateStopping:
				if s.begun {
					if err := s.rt.End(); err != nil {
						return true, l.fault(fmt.Errorf("end session: %w", err))
					}
					s.begun = false
				}
				l.phase = phaseExiting
				return true, nil
			case StateExiting, StateLossPending:
				l.phase = phaseExiting
				return true, nil
			}
		case EventInstanceLoss:
			// Runtime connection gone: graceful teardown, not a failure.
			l.phase = phaseExiting
			return true, nil
		}
	}

	if l.phase != phaseRunning {
		// Still waiting on the ready event.
		return false, nil
	}

	state, err := s.rt.WaitFrame()
	if err != nil {
		return l.frameError(fmt.Errorf("wait frame: %w", err))
	}
	if err := s.rt.BeginFrame(); err != nil {
		return l.frameError(fmt.Errorf("begin frame: %w", err))
	}

	frame := &Frame{
		Index:        l.frameIndex,
		State:        state,
		SessionState: s.state,
		session:      s,
	}
	cbErr := fn(frame)
	if s.openLeases > 0 && cbErr == nil {
		cbErr = fmt.Errorf("frame %d ended with %d swapchain image(s) still leased", l.frameIndex, s.openLeases)
	}

	endErr := s.rt.EndFrame(state.PredictedDisplayTime)
	l.frameIndex++

	switch {
	case cbErr == nil:
	case errors.Is(cbErr, Termination):
		l.requestExit()
		return false, nil
	default:
		return true, l.fault(cbErr)
	}
	if endErr != nil {
		return l.frameError(fmt.Errorf("end frame: %w", endErr))
	}
	return false, nil
}

// FrameIndex returns the number of completed frame iterations.
func (l *frameLoop) FrameIndex() int {
	return l.frameIndex
}

// requestExit asks the runtime to walk the session to StateStopping. The
// loop keeps polling so the shutdown events are observed and the session is
// ended properly.
func (l *frameLoop) requestExit() {
	if l.exitRequested {
		return
	}
	l.exitRequested = true
	_ = l.session.rt.RequestExit()
}

// frameError routes a runtime failure: session loss exits gracefully,
// anything else faults the loop.
func (l *frameLoop) frameError(err error) (bool, error) {
	if errors.Is(err, ErrSessionLost) {
		l.phase = phaseExiting
		return true, nil
	}
	return true, l.fault(err)
}

func (l *frameLoop) fault(err error) error {
	l.phase = phaseFaulted
	l.err = err
	return err
}
