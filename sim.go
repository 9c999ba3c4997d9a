package cadence

import (
	"fmt"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// SimConfig configures the simulated runtime backend. The zero value gives a
// 90 Hz stereo headset at standing height with two tracked controllers.
type SimConfig struct {
	// RuntimeName overrides the reported runtime name.
	RuntimeName string

	// ViewCount is the number of views per frame (default 2).
	ViewCount int

	// FramePeriod is the simulated display period (default 1/90 s).
	FramePeriod time.Duration

	// Throttle makes WaitFrame sleep one FramePeriod, pacing console demos
	// the way a real compositor would. Off, frames complete immediately.
	Throttle bool

	// HeadHeight is the headset height above the stage floor in meters
	// (default 1.6).
	HeadHeight float32

	// Controllers is how many hand controllers are connected, 0–2
	// (default 2).
	Controllers int

	// ControllerDropout makes controllers report untracked on every Nth
	// frame, simulating a controller out of view. 0 disables dropout.
	ControllerDropout int

	// Trackers lists the connected generic tracker roles. Roles not listed
	// report ErrPathUnsupported at action-space creation.
	Trackers []TrackerRole

	// SwapchainRing is the image count per swapchain (default 3).
	SwapchainRing int

	// VisibleAfter and FocusedAfter are the frame indices at which the
	// session is promoted to visible and focused (defaults 1 and 2).
	VisibleAfter int
	FocusedAfter int
}

// SimBackend is a runtime backend with no hardware behind it: session states
// progress on a fixed schedule and device poses are synthesized. It supports
// every extension, including headless.
type SimBackend struct {
	cfg SimConfig
}

// NewSimBackend creates a simulated backend. Zero config fields take the
// defaults documented on SimConfig.
func NewSimBackend(cfg SimConfig) *SimBackend {
	if cfg.RuntimeName == "" {
		cfg.RuntimeName = "Cadence Simulator"
	}
	if cfg.ViewCount == 0 {
		cfg.ViewCount = 2
	}
	if cfg.FramePeriod == 0 {
		cfg.FramePeriod = time.Second / 90
	}
	if cfg.HeadHeight == 0 {
		cfg.HeadHeight = 1.6
	}
	if cfg.Controllers == 0 {
		cfg.Controllers = 2
	}
	if cfg.SwapchainRing == 0 {
		cfg.SwapchainRing = 3
	}
	if cfg.VisibleAfter == 0 {
		cfg.VisibleAfter = 1
	}
	if cfg.FocusedAfter == 0 {
		cfg.FocusedAfter = 2
	}
	return &SimBackend{cfg: cfg}
}

// Name returns "sim".
func (b *SimBackend) Name() string { return "sim" }

// Supports reports true for every extension cadence defines.
func (b *SimBackend) Supports(extension string) bool {
	switch extension {
	case ExtGraphics, ExtHeadless, ExtDebugUtils, ExtTrackerRoles:
		return true
	}
	return false
}

// CreateInstance connects to the simulator.
func (b *SimBackend) CreateInstance(cfg InstanceConfig) (RuntimeInstance, error) {
	inst := &simInstance{cfg: b.cfg, app: cfg}
	if hasExtension(cfg.Extensions, ExtDebugUtils) {
		inst.messenger = cfg.Messenger
	}
	inst.emit(SeverityVerbose, "CreateInstance", "simulated runtime instance created")
	return inst, nil
}

func hasExtension(exts []string, name string) bool {
	for _, e := range exts {
		if e == name {
			return true
		}
	}
	return false
}

// --- Instance ---

type simInstance struct {
	cfg       SimConfig
	app       InstanceConfig
	messenger *DebugMessenger
	now       Time
	session   *simSession
	destroyed bool
}

func (i *simInstance) Properties() InstanceProperties {
	return InstanceProperties{RuntimeName: i.cfg.RuntimeName, RuntimeVersion: "1.0.0"}
}

// Now returns the simulator's synthetic clock. It advances by one frame
// period per WaitFrame, keeping pose queries deterministic.
func (i *simInstance) Now() Time { return i.now }

func (i *simInstance) CreateSession(cfg SessionConfig) (RuntimeSession, error) {
	if i.destroyed {
		return nil, fmt.Errorf("sim: instance destroyed")
	}
	if i.session != nil && !i.session.destroyed {
		return nil, fmt.Errorf("sim: session already exists")
	}
	viewCount := i.cfg.ViewCount
	if cfg.ViewCount > 0 {
		viewCount = cfg.ViewCount
	}
	s := &simSession{
		inst:      i,
		viewCount: viewCount,
		headless:  hasExtension(i.app.Extensions, ExtHeadless),
		anim:      newSimAnimator(),
	}
	s.push(Event{Kind: EventStateChanged, State: StateIdle})
	s.push(Event{Kind: EventStateChanged, State: StateReady})
	i.session = s
	i.emit(SeverityVerbose, "CreateSession", "session created")
	return s, nil
}

func (i *simInstance) Destroy() error {
	if i.destroyed {
		return nil
	}
	i.destroyed = true
	i.emit(SeverityVerbose, "DestroyInstance", "simulated runtime instance destroyed")
	return nil
}

func (i *simInstance) emit(sev Severity, function, msg string) {
	i.messenger.Message(sev, function, msg)
}

// --- Session ---

type simSession struct {
	inst      *simInstance
	viewCount int
	headless  bool

	pending  []Event
	state    SessionState
	begun    bool
	inFrame  bool
	attached bool
	frame    int

	anim      *simAnimator
	destroyed bool
}

func (s *simSession) push(ev Event) {
	s.pending = append(s.pending, ev)
}

func (s *simSession) pushState(state SessionState) {
	s.state = state
	s.push(Event{Kind: EventStateChanged, State: state})
	s.inst.emit(SeverityInfo, "PollEvent", "session state changed to "+state.String())
}

func (s *simSession) PollEvent() (Event, bool) {
	if len(s.pending) == 0 {
		return Event{}, false
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

func (s *simSession) Begin() error {
	if s.begun {
		return fmt.Errorf("sim: session already begun")
	}
	s.begun = true
	s.pushState(StateSynchronized)
	return nil
}

func (s *simSession) End() error {
	if !s.begun {
		return fmt.Errorf("sim: session not begun")
	}
	s.begun = false
	s.pushState(StateExiting)
	return nil
}

func (s *simSession) RequestExit() error {
	s.inst.emit(SeverityInfo, "RequestExit", "session exit requested")
	s.pushState(StateStopping)
	return nil
}

func (s *simSession) WaitFrame() (FrameState, error) {
	if !s.begun {
		return FrameState{}, fmt.Errorf("sim: wait frame on session that has not begun")
	}
	if s.inst.cfg.Throttle {
		time.Sleep(s.inst.cfg.FramePeriod)
	}
	period := s.inst.cfg.FramePeriod
	s.inst.now = s.inst.now.Add(period)
	s.anim.update(float32(period.Seconds()))

	s.frame++
	if s.frame == s.inst.cfg.VisibleAfter {
		s.pushState(StateVisible)
	}
	if s.frame == s.inst.cfg.FocusedAfter {
		s.pushState(StateFocused)
	}

	return FrameState{
		PredictedDisplayTime:   s.inst.now.Add(period),
		PredictedDisplayPeriod: period,
		ShouldRender:           !s.headless,
	}, nil
}

func (s *simSession) BeginFrame() error {
	if s.inFrame {
		return fmt.Errorf("sim: begin frame while a frame is open")
	}
	s.inFrame = true
	return nil
}

func (s *simSession) EndFrame(displayTime Time) error {
	if !s.inFrame {
		return fmt.Errorf("sim: end frame without begin frame")
	}
	s.inFrame = false
	return nil
}

func (s *simSession) LocateViews(space RuntimeSpace, at Time) ([]ViewPose, error) {
	base, ok := space.(*simSpace)
	if !ok {
		return nil, fmt.Errorf("sim: foreign space handle")
	}
	head := s.anim.headPose(s.inst.cfg.HeadHeight)
	baseInv := base.stagePose().Inverse()

	const ipd = 0.064
	fov := Fov{
		AngleLeft:  -math.Pi / 4,
		AngleRight: math.Pi / 4,
		AngleUp:    math.Pi / 4 * 0.85,
		AngleDown:  -math.Pi / 4 * 0.85,
	}
	views := make([]ViewPose, s.viewCount)
	for i := range views {
		// Eye offset along the head's local X axis. Mono stays centered.
		offset := float32(0)
		if s.viewCount > 1 {
			offset = ipd*float32(i)/float32(s.viewCount-1) - ipd/2
		}
		eye := head.Mul(Posef{
			Orientation: IdentityQuaternion(),
			Position:    Vector3f{X: offset},
		})
		views[i] = ViewPose{Pose: baseInv.Mul(eye), Fov: fov}
	}
	return views, nil
}

func (s *simSession) CreateReferenceSpace(t ReferenceSpaceType) (RuntimeSpace, error) {
	return &simSpace{sess: s, kind: spaceReference, refType: t}, nil
}

func (s *simSession) CreateActionSpace(action string, subaction Path) (RuntimeSpace, error) {
	switch subaction {
	case PathLeftHand:
		if s.inst.cfg.Controllers < 1 {
			return nil, ErrPathUnsupported
		}
		return &simSpace{sess: s, kind: spaceHand, hand: 0}, nil
	case PathRightHand:
		if s.inst.cfg.Controllers < 2 {
			return nil, ErrPathUnsupported
		}
		return &simSpace{sess: s, kind: spaceHand, hand: 1}, nil
	}
	for _, role := range AllTrackerRoles {
		if subaction != role.DevicePath() {
			continue
		}
		if !hasExtension(s.inst.app.Extensions, ExtTrackerRoles) {
			return nil, ErrPathUnsupported
		}
		if !s.trackerConnected(role) {
			return nil, ErrPathUnsupported
		}
		return &simSpace{sess: s, kind: spaceTracker, role: role}, nil
	}
	return nil, ErrPathUnsupported
}

func (s *simSession) trackerConnected(role TrackerRole) bool {
	for _, r := range s.inst.cfg.Trackers {
		if r == role {
			return true
		}
	}
	return false
}

func (s *simSession) AttachActionSets(names []string) error {
	if s.attached {
		return fmt.Errorf("sim: action sets already attached")
	}
	s.attached = true
	return nil
}

func (s *simSession) SyncActions() error {
	if !s.attached {
		return fmt.Errorf("sim: sync actions before attach")
	}
	return nil
}

func (s *simSession) CreateSwapchain(extent Extent2Di) (RuntimeSwapchain, error) {
	if s.headless {
		return nil, fmt.Errorf("sim: headless session has no swapchain")
	}
	if extent.Width <= 0 || extent.Height <= 0 {
		return nil, fmt.Errorf("sim: invalid swapchain extent %dx%d", extent.Width, extent.Height)
	}
	s.inst.emit(SeverityVerbose, "CreateSwapchain",
		fmt.Sprintf("swapchain created %dx%d", extent.Width, extent.Height))
	return &simSwapchain{
		extent: extent,
		slots:  make([]simSlot, s.inst.cfg.SwapchainRing),
	}, nil
}

func (s *simSession) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	s.inst.emit(SeverityVerbose, "DestroySession", "session destroyed")
	return nil
}

// --- Spaces ---

type spaceKind uint8

const (
	spaceReference spaceKind = iota
	spaceHand
	spaceTracker
)

type simSpace struct {
	sess      *simSession
	kind      spaceKind
	refType   ReferenceSpaceType
	hand      int
	role      TrackerRole
	destroyed bool
}

// stagePose returns the space's origin expressed in stage coordinates.
func (sp *simSpace) stagePose() Posef {
	cfg := sp.sess.inst.cfg
	switch sp.kind {
	case spaceReference:
		switch sp.refType {
		case ReferenceSpaceLocal:
			return Posef{
				Orientation: IdentityQuaternion(),
				Position:    Vector3f{Y: cfg.HeadHeight},
			}
		case ReferenceSpaceView:
			return sp.sess.anim.headPose(cfg.HeadHeight)
		}
		return IdentityPose()
	case spaceHand:
		return sp.sess.anim.controllerPose(sp.hand, cfg.HeadHeight)
	case spaceTracker:
		return trackerRolePose(sp.role)
	}
	return IdentityPose()
}

func (sp *simSpace) Locate(base RuntimeSpace, at Time) (PoseSample, error) {
	baseSim, ok := base.(*simSpace)
	if !ok {
		return PoseSample{}, fmt.Errorf("sim: foreign base space handle")
	}
	sess := sp.sess
	switch sp.kind {
	case spaceHand:
		drop := sess.inst.cfg.ControllerDropout
		if drop > 0 && sess.frame%drop == 0 {
			return PoseSample{State: TrackingUntracked}, nil
		}
	case spaceTracker:
		if !sess.trackerConnected(sp.role) {
			return PoseSample{State: TrackingUntracked}, nil
		}
	}
	rel := baseSim.stagePose().Inverse().Mul(sp.stagePose())
	return PoseSample{State: TrackingValid, Pose: rel}, nil
}

func (sp *simSpace) Destroy() error {
	sp.destroyed = true
	return nil
}

// trackerRolePose places each tracker role at a plausible body position on a
// standing figure at the stage origin.
func trackerRolePose(role TrackerRole) Posef {
	p := Posef{Orientation: IdentityQuaternion()}
	switch role {
	case RoleHandheldObject:
		p.Position = Vector3f{0.3, 0.9, -0.3}
	case RoleLeftFoot:
		p.Position = Vector3f{-0.15, 0.08, 0}
	case RoleRightFoot:
		p.Position = Vector3f{0.15, 0.08, 0}
	case RoleLeftShoulder:
		p.Position = Vector3f{-0.2, 1.45, 0}
	case RoleRightShoulder:
		p.Position = Vector3f{0.2, 1.45, 0}
	case RoleLeftElbow:
		p.Position = Vector3f{-0.4, 1.1, -0.1}
	case RoleRightElbow:
		p.Position = Vector3f{0.4, 1.1, -0.1}
	case RoleLeftKnee:
		p.Position = Vector3f{-0.12, 0.45, 0}
	case RoleRightKnee:
		p.Position = Vector3f{0.12, 0.45, 0}
	case RoleWaist:
		p.Position = Vector3f{0, 0.95, 0}
	case RoleChest:
		p.Position = Vector3f{0, 1.25, 0}
	case RoleCamera:
		p.Position = Vector3f{0, 1.8, -0.5}
	case RoleKeyboard:
		p.Position = Vector3f{0, 0.75, -0.4}
	default:
		p.Position = Vector3f{0, 1, 0}
	}
	return p
}

// --- Swapchain ---

type simSlot struct {
	img    *ebiten.Image
	leased bool
}

type simSwapchain struct {
	extent    Extent2Di
	slots     []simSlot
	destroyed bool
}

func (sc *simSwapchain) Extent() Extent2Di { return sc.extent }

// Acquire leases the first free slot. Images are allocated on first lease so
// headless-adjacent code paths never touch the GPU.
func (sc *simSwapchain) Acquire() (*SwapchainImage, error) {
	for i := range sc.slots {
		if sc.slots[i].leased {
			continue
		}
		if sc.slots[i].img == nil {
			sc.slots[i].img = ebiten.NewImage(sc.extent.Width, sc.extent.Height)
		}
		sc.slots[i].leased = true
		return &SwapchainImage{Index: i, Target: sc.slots[i].img}, nil
	}
	return nil, ErrSwapchainExhausted
}

func (sc *simSwapchain) Release(img *SwapchainImage) error {
	if img == nil || img.Index < 0 || img.Index >= len(sc.slots) {
		return fmt.Errorf("sim: release of unknown swapchain image")
	}
	if !sc.slots[img.Index].leased {
		return fmt.Errorf("sim: swapchain image %d is not leased", img.Index)
	}
	sc.slots[img.Index].leased = false
	return nil
}

func (sc *simSwapchain) Destroy() error {
	sc.destroyed = true
	return nil
}

// --- Pose animation ---

const (
	bobAmplitude  = 0.05
	bobHalfPeriod = 1.5
	yawRange      = 0.35
	yawHalfPeriod = 3.0
	orbitPeriod   = 6.0
)

// simAnimator synthesizes gentle head sway and controller motion. The bob
// and yaw tweens ping-pong by rebuilding with swapped endpoints; the orbit
// tween wraps around.
type simAnimator struct {
	bob            *gween.Tween
	bobFrom, bobTo float32
	bobValue       float32
	yaw            *gween.Tween
	yawFrom, yawTo float32
	yawValue       float32
	orbit          *gween.Tween
	orbitValue     float32
}

func newSimAnimator() *simAnimator {
	a := &simAnimator{
		bobFrom: -bobAmplitude, bobTo: bobAmplitude,
		yawFrom: -yawRange, yawTo: yawRange,
	}
	a.bob = gween.New(a.bobFrom, a.bobTo, bobHalfPeriod, ease.InOutSine)
	a.yaw = gween.New(a.yawFrom, a.yawTo, yawHalfPeriod, ease.InOutQuad)
	a.orbit = gween.New(0, 2*math.Pi, orbitPeriod, ease.Linear)
	return a
}

func (a *simAnimator) update(dt float32) {
	v, done := a.bob.Update(dt)
	a.bobValue = v
	if done {
		a.bobFrom, a.bobTo = a.bobTo, a.bobFrom
		a.bob = gween.New(a.bobFrom, a.bobTo, bobHalfPeriod, ease.InOutSine)
	}

	v, done = a.yaw.Update(dt)
	a.yawValue = v
	if done {
		a.yawFrom, a.yawTo = a.yawTo, a.yawFrom
		a.yaw = gween.New(a.yawFrom, a.yawTo, yawHalfPeriod, ease.InOutQuad)
	}

	v, done = a.orbit.Update(dt)
	a.orbitValue = v
	if done {
		a.orbit.Reset()
	}
}

// headPose returns the headset pose in stage coordinates.
func (a *simAnimator) headPose(headHeight float32) Posef {
	return Posef{
		Orientation: QuaternionFromAxisAngle(Vector3f{Y: 1}, a.yawValue),
		Position:    Vector3f{Y: headHeight + a.bobValue},
	}
}

// controllerPose returns a hand controller pose in stage coordinates. Hands
// trace a slow circle in front of the body, mirrored left/right.
func (a *simAnimator) controllerPose(hand int, headHeight float32) Posef {
	side := float32(-1)
	phase := a.orbitValue
	if hand == 1 {
		side = 1
		phase += math.Pi
	}
	return Posef{
		Orientation: QuaternionFromAxisAngle(Vector3f{X: 1}, -0.5),
		Position: Vector3f{
			X: side*0.25 + 0.1*float32(math.Cos(float64(phase))),
			Y: headHeight - 0.4 + 0.05*float32(math.Sin(float64(phase))),
			Z: -0.35,
		},
	}
}
