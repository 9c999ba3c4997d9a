package cadence

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// newTestSession builds an instance and session over a scripted fake backend.
// The fake session has the bootstrap events queued so the loop starts running.
func newTestSession(t *testing.T) (*fakeSession, *Session) {
	t.Helper()
	b := newFakeBackend()
	withBackend(t, b)
	inst, err := NewInstance(InstanceConfig{ApplicationName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { inst.Destroy() })
	s, err := inst.CreateSession(SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	b.inst.sess.pushReady()
	return b.inst.sess, s
}

func TestRunFramesTermination(t *testing.T) {
	fs, s := newTestSession(t)

	frames := 0
	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		frames++
		if frame.Index >= 2 {
			return Termination
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunFrames: %v", err)
	}

	if frames != 3 {
		t.Errorf("frames = %d, want 3", frames)
	}
	if fs.beginFrameCount != fs.endFrameCount {
		t.Errorf("beginFrameCount %d != endFrameCount %d", fs.beginFrameCount, fs.endFrameCount)
	}
	if fs.beginCount != 1 || fs.endCount != 1 {
		t.Errorf("session begin/end = %d/%d, want 1/1", fs.beginCount, fs.endCount)
	}
	if fs.begun {
		t.Error("session still begun after loop exit")
	}
	if got := s.State(); got != StateStopping {
		t.Errorf("final state = %v, want StateStopping", got)
	}
}

func TestRunFramesFrameIndicesSequential(t *testing.T) {
	_, s := newTestSession(t)

	var seen []int
	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		seen = append(seen, frame.Index)
		if frame.Index >= 3 {
			return Termination
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, idx := range seen {
		if idx != i {
			t.Fatalf("frame indices = %v, want 0..%d in order", seen, len(seen)-1)
		}
	}
}

func TestRunFramesSessionLostIsGraceful(t *testing.T) {
	fs, s := newTestSession(t)
	fs.waitErrs = map[int]error{1: ErrSessionLost}

	frames := 0
	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		frames++
		return nil
	})
	if err != nil {
		t.Fatalf("RunFrames after session loss: %v, want nil", err)
	}
	if frames != 1 {
		t.Errorf("frames = %d, want 1", frames)
	}
	if fs.beginFrameCount != fs.endFrameCount {
		t.Errorf("beginFrameCount %d != endFrameCount %d", fs.beginFrameCount, fs.endFrameCount)
	}
}

func TestRunFramesRuntimeFaultSurfaces(t *testing.T) {
	boom := errors.New("compositor went away")
	fs, s := newTestSession(t)
	fs.waitErrs = map[int]error{0: boom}

	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		t.Fatal("callback ran after a wait failure")
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if fs.beginFrameCount != 0 {
		t.Errorf("beginFrameCount = %d, want 0", fs.beginFrameCount)
	}
}

func TestRunFramesCallbackErrorFaults(t *testing.T) {
	boom := errors.New("renderer failed")
	fs, s := newTestSession(t)

	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	// The failing frame is still closed out with the runtime.
	if fs.endFrameCount != 1 {
		t.Errorf("endFrameCount = %d, want 1", fs.endFrameCount)
	}
}

func TestRunFramesContextCancellation(t *testing.T) {
	fs, s := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunFrames(ctx, func(frame *Frame) error {
		t.Fatal("callback ran after cancellation")
		return nil
	})
	if err != nil {
		t.Fatalf("RunFrames: %v, want nil", err)
	}
	if fs.requestExitCount != 1 {
		t.Errorf("requestExitCount = %d, want 1", fs.requestExitCount)
	}
	// The runtime still walked ready -> stopping, so begin and end pair up.
	if fs.beginCount != 1 || fs.endCount != 1 {
		t.Errorf("session begin/end = %d/%d, want 1/1", fs.beginCount, fs.endCount)
	}
	if fs.beginFrameCount != 0 {
		t.Errorf("beginFrameCount = %d, want 0", fs.beginFrameCount)
	}
}

func TestRunFramesLeakedLeaseFaults(t *testing.T) {
	fs, s := newTestSession(t)

	sc, err := s.CreateSwapchain(Extent2Di{Width: 64, Height: 64})
	if err != nil {
		t.Fatal(err)
	}

	err = s.RunFrames(context.Background(), func(frame *Frame) error {
		_, err := sc.Acquire()
		return err // never released
	})
	if err == nil || !strings.Contains(err.Error(), "still leased") {
		t.Fatalf("err = %v, want leaked-lease error", err)
	}
	if fs.endFrameCount != 1 {
		t.Errorf("endFrameCount = %d, want 1", fs.endFrameCount)
	}
}

func TestRunFramesInstanceLossIsGraceful(t *testing.T) {
	fs, s := newTestSession(t)
	fs.events = append(fs.events, Event{Kind: EventInstanceLoss})

	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		t.Fatal("callback ran after instance loss")
		return nil
	})
	if err != nil {
		t.Fatalf("RunFrames: %v, want nil", err)
	}
}

func TestStepWaitsForReady(t *testing.T) {
	b := newFakeBackend()
	withBackend(t, b)
	inst, err := NewInstance(InstanceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()
	s, err := inst.CreateSession(SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	fs := b.inst.sess

	loop := newFrameLoop(s)
	fn := func(frame *Frame) error { return nil }

	// No events yet: the loop idles without touching the frame protocol.
	for i := 0; i < 3; i++ {
		done, err := loop.Step(context.Background(), fn)
		if done || err != nil {
			t.Fatalf("Step before ready: done=%v err=%v", done, err)
		}
	}
	if fs.beginFrameCount != 0 {
		t.Fatalf("beginFrameCount = %d before ready, want 0", fs.beginFrameCount)
	}

	fs.pushReady()
	if _, err := loop.Step(context.Background(), fn); err != nil {
		t.Fatal(err)
	}
	if fs.beginCount != 1 {
		t.Errorf("beginCount = %d, want 1", fs.beginCount)
	}
	if fs.beginFrameCount != 1 {
		t.Errorf("beginFrameCount = %d after ready, want 1", fs.beginFrameCount)
	}
	if loop.FrameIndex() != 1 {
		t.Errorf("FrameIndex = %d, want 1", loop.FrameIndex())
	}
}

func TestSessionStateTracksEvents(t *testing.T) {
	fs, s := newTestSession(t)
	fs.events = append(fs.events,
		Event{Kind: EventStateChanged, State: StateSynchronized},
		Event{Kind: EventStateChanged, State: StateVisible},
		Event{Kind: EventStateChanged, State: StateFocused},
	)

	var states []SessionState
	err := s.RunFrames(context.Background(), func(frame *Frame) error {
		states = append(states, frame.SessionState)
		return Termination
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0] != StateFocused {
		t.Errorf("states = %v, want [StateFocused]", states)
	}
	if !s.WasFocused() {
		t.Error("WasFocused = false, want true")
	}
}

func TestSessionDestroyOnceAfterLoop(t *testing.T) {
	fs, s := newTestSession(t)

	space, err := s.CreateReferenceSpace(ReferenceSpaceStage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSwapchain(Extent2Di{Width: 32, Height: 32}); err != nil {
		t.Fatal(err)
	}

	err = s.RunFrames(context.Background(), func(frame *Frame) error {
		return Termination
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}

	if fs.destroyCount != 1 {
		t.Errorf("session destroyCount = %d, want 1", fs.destroyCount)
	}
	if got := space.rt.(*fakeSpace).destroyCount; got != 1 {
		t.Errorf("space destroyCount = %d, want 1", got)
	}
	if fs.swapchain.destroyCount != 1 {
		t.Errorf("swapchain destroyCount = %d, want 1", fs.swapchain.destroyCount)
	}
}
