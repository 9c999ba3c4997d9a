package cadence

import (
	"errors"
	"testing"
)

// --- Scripted fake runtime ---
//
// The fakes record every lifecycle call so tests can assert ordering,
// pairing, and teardown counts without a real backend.

type fakeBackend struct {
	exts      map[string]bool // nil supports everything
	inst      *fakeInstance
	createErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{inst: newFakeInstance()}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Supports(ext string) bool {
	if b.exts == nil {
		return true
	}
	return b.exts[ext]
}

func (b *fakeBackend) CreateInstance(cfg InstanceConfig) (RuntimeInstance, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.inst, nil
}

type fakeInstance struct {
	sess         *fakeSession
	now          Time
	destroyCount int
}

func newFakeInstance() *fakeInstance {
	return &fakeInstance{sess: newFakeSession()}
}

func (i *fakeInstance) Properties() InstanceProperties {
	return InstanceProperties{RuntimeName: "fake runtime", RuntimeVersion: "0.0.1"}
}

func (i *fakeInstance) Now() Time { return i.now }

func (i *fakeInstance) CreateSession(cfg SessionConfig) (RuntimeSession, error) {
	return i.sess, nil
}

func (i *fakeInstance) Destroy() error {
	i.destroyCount++
	return nil
}

type fakeSession struct {
	events []Event
	begun  bool

	beginCount       int
	endCount         int
	requestExitCount int
	destroyCount     int

	waitCount       int
	waitErrs        map[int]error // frame index -> error from WaitFrame
	beginFrameCount int
	endFrameCount   int

	viewCount       int
	pathUnsupported map[Path]bool
	locateSample    PoseSample

	attachCount int
	syncCount   int

	swapchain *fakeSwapchain
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		viewCount: 2,
		locateSample: PoseSample{
			State: TrackingValid,
			Pose:  IdentityPose(),
		},
		swapchain: &fakeSwapchain{ring: 3, leased: map[int]bool{}},
	}
}

// pushReady queues the bootstrap state events a real runtime delivers.
func (s *fakeSession) pushReady() {
	s.events = append(s.events,
		Event{Kind: EventStateChanged, State: StateIdle},
		Event{Kind: EventStateChanged, State: StateReady},
	)
}

func (s *fakeSession) PollEvent() (Event, bool) {
	if len(s.events) == 0 {
		return Event{}, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

func (s *fakeSession) Begin() error {
	s.beginCount++
	s.begun = true
	return nil
}

func (s *fakeSession) End() error {
	s.endCount++
	s.begun = false
	return nil
}

func (s *fakeSession) RequestExit() error {
	s.requestExitCount++
	s.events = append(s.events, Event{Kind: EventStateChanged, State: StateStopping})
	return nil
}

func (s *fakeSession) WaitFrame() (FrameState, error) {
	idx := s.waitCount
	s.waitCount++
	if err := s.waitErrs[idx]; err != nil {
		return FrameState{}, err
	}
	return FrameState{
		PredictedDisplayTime: Time(idx+1) * 1_000_000,
		ShouldRender:         true,
	}, nil
}

func (s *fakeSession) BeginFrame() error {
	s.beginFrameCount++
	return nil
}

func (s *fakeSession) EndFrame(displayTime Time) error {
	s.endFrameCount++
	return nil
}

func (s *fakeSession) LocateViews(space RuntimeSpace, at Time) ([]ViewPose, error) {
	views := make([]ViewPose, s.viewCount)
	for i := range views {
		views[i] = ViewPose{Pose: IdentityPose()}
	}
	return views, nil
}

func (s *fakeSession) CreateReferenceSpace(t ReferenceSpaceType) (RuntimeSpace, error) {
	return &fakeSpace{sess: s}, nil
}

func (s *fakeSession) CreateActionSpace(action string, subaction Path) (RuntimeSpace, error) {
	if s.pathUnsupported[subaction] {
		return nil, ErrPathUnsupported
	}
	return &fakeSpace{sess: s}, nil
}

func (s *fakeSession) AttachActionSets(names []string) error {
	s.attachCount++
	return nil
}

func (s *fakeSession) SyncActions() error {
	s.syncCount++
	return nil
}

func (s *fakeSession) CreateSwapchain(extent Extent2Di) (RuntimeSwapchain, error) {
	s.swapchain.extent = extent
	return s.swapchain, nil
}

func (s *fakeSession) Destroy() error {
	s.destroyCount++
	return nil
}

type fakeSpace struct {
	sess         *fakeSession
	destroyCount int
}

func (sp *fakeSpace) Locate(base RuntimeSpace, at Time) (PoseSample, error) {
	return sp.sess.locateSample, nil
}

func (sp *fakeSpace) Destroy() error {
	sp.destroyCount++
	return nil
}

type fakeSwapchain struct {
	extent       Extent2Di
	ring         int
	leased       map[int]bool
	acquireCount int
	releaseCount int
	destroyCount int
}

func (sc *fakeSwapchain) Extent() Extent2Di { return sc.extent }

func (sc *fakeSwapchain) Acquire() (*SwapchainImage, error) {
	for i := 0; i < sc.ring; i++ {
		if sc.leased[i] {
			continue
		}
		sc.leased[i] = true
		sc.acquireCount++
		return &SwapchainImage{Index: i}, nil
	}
	return nil, ErrSwapchainExhausted
}

func (sc *fakeSwapchain) Release(img *SwapchainImage) error {
	if img == nil || !sc.leased[img.Index] {
		return errors.New("fake: release of image that is not leased")
	}
	delete(sc.leased, img.Index)
	sc.releaseCount++
	return nil
}

func (sc *fakeSwapchain) Destroy() error {
	sc.destroyCount++
	return nil
}

// withBackend swaps the registry for the test's backend and restores it.
func withBackend(t *testing.T, b Backend) {
	t.Helper()
	saved := backendRegistry
	backendRegistry = nil
	if b != nil {
		RegisterBackend(b)
	}
	t.Cleanup(func() { backendRegistry = saved })
}

// --- Bootstrap ---

func TestNewInstanceNoBackend(t *testing.T) {
	withBackend(t, nil)
	_, err := NewInstance(InstanceConfig{ApplicationName: "test"})
	if !errors.Is(err, ErrRuntimeUnavailable) {
		t.Fatalf("err = %v, want ErrRuntimeUnavailable", err)
	}
}

func TestNewInstanceExtensionNegotiation(t *testing.T) {
	b := newFakeBackend()
	b.exts = map[string]bool{ExtGraphics: true}
	withBackend(t, b)

	if _, err := NewInstance(InstanceConfig{Extensions: []string{ExtHeadless}}); !errors.Is(err, ErrRuntimeUnavailable) {
		t.Fatalf("headless request: err = %v, want ErrRuntimeUnavailable", err)
	}

	inst, err := NewInstance(InstanceConfig{Extensions: []string{ExtGraphics}})
	if err != nil {
		t.Fatalf("graphics request: %v", err)
	}
	defer inst.Destroy()

	if got := inst.Properties().RuntimeName; got != "fake runtime" {
		t.Errorf("RuntimeName = %q, want %q", got, "fake runtime")
	}
	if !inst.Enabled(ExtGraphics) {
		t.Error("Enabled(ExtGraphics) = false, want true")
	}
	if inst.Enabled(ExtHeadless) {
		t.Error("Enabled(ExtHeadless) = true, want false")
	}
}

func TestInstanceSingleLiveSession(t *testing.T) {
	b := newFakeBackend()
	withBackend(t, b)

	inst, err := NewInstance(InstanceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()

	s1, err := inst.CreateSession(SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inst.CreateSession(SessionConfig{}); err == nil {
		t.Fatal("second CreateSession succeeded, want error")
	}
	if err := s1.Destroy(); err != nil {
		t.Fatal(err)
	}
	if _, err := inst.CreateSession(SessionConfig{}); err != nil {
		t.Fatalf("CreateSession after destroy: %v", err)
	}
}

func TestInstanceDestroyTearsDownLiveSession(t *testing.T) {
	b := newFakeBackend()
	withBackend(t, b)

	inst, err := NewInstance(InstanceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inst.CreateSession(SessionConfig{}); err != nil {
		t.Fatal(err)
	}

	if err := inst.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := inst.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}

	if b.inst.sess.destroyCount != 1 {
		t.Errorf("session destroyCount = %d, want 1", b.inst.sess.destroyCount)
	}
	if b.inst.destroyCount != 1 {
		t.Errorf("instance destroyCount = %d, want 1", b.inst.destroyCount)
	}
}
