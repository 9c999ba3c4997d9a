package cadence

import "fmt"

// ReferenceSpaceType names a runtime-defined coordinate frame.
type ReferenceSpaceType uint8

const (
	ReferenceSpaceView  ReferenceSpaceType = iota // head-locked
	ReferenceSpaceLocal                           // seated origin, gravity-aligned
	ReferenceSpaceStage                           // floor-level play area
)

// String returns the lowercase space name.
func (t ReferenceSpaceType) String() string {
	switch t {
	case ReferenceSpaceView:
		return "view"
	case ReferenceSpaceLocal:
		return "local"
	case ReferenceSpaceStage:
		return "stage"
	default:
		return "unknown"
	}
}

// TrackingState tags a PoseSample. The zero value is TrackingUntracked, so a
// zero PoseSample is safely "no data" rather than a bogus pose at the origin.
type TrackingState uint8

const (
	TrackingUntracked TrackingState = iota // device not currently tracked
	TrackingValid                          // Pose holds a live sample
)

// PoseSample is a per-frame pose snapshot for one tracked device. Pose is
// meaningful only when State is TrackingValid; consumers skip untracked
// samples rather than treating them as errors.
type PoseSample struct {
	State TrackingState
	Pose  Posef
}

// Valid reports whether the sample carries a usable pose.
func (s PoseSample) Valid() bool {
	return s.State == TrackingValid
}

// ReferenceSpace is a named spatial coordinate frame owned by a Session. It
// is created once, read every frame, and released by Session.Destroy.
type ReferenceSpace struct {
	session   *Session
	rt        RuntimeSpace
	spaceType ReferenceSpaceType
	destroyed bool
}

// Type returns the space's reference frame kind.
func (r *ReferenceSpace) Type() ReferenceSpaceType {
	return r.spaceType
}

func (r *ReferenceSpace) destroy() error {
	if r.destroyed {
		return nil
	}
	r.destroyed = true
	if err := r.rt.Destroy(); err != nil {
		return fmt.Errorf("destroy %s reference space: %w", r.spaceType, err)
	}
	return nil
}

// ActionSpace is a locatable space bound to a pose action and subaction path
// (one hand, one tracker role). Owned by the Session that created it.
type ActionSpace struct {
	session   *Session
	rt        RuntimeSpace
	action    *PoseAction
	subaction Path
	destroyed bool
}

// Subaction returns the device path this space is bound to.
func (a *ActionSpace) Subaction() Path {
	return a.subaction
}

// Locate samples the device pose relative to base at the given time.
func (a *ActionSpace) Locate(base *ReferenceSpace, at Time) (PoseSample, error) {
	sample, err := a.rt.Locate(base.rt, at)
	if err != nil {
		return PoseSample{}, fmt.Errorf("locate %s: %w", a.subaction, err)
	}
	return sample, nil
}

func (a *ActionSpace) destroy() error {
	if a.destroyed {
		return nil
	}
	a.destroyed = true
	if err := a.rt.Destroy(); err != nil {
		return fmt.Errorf("destroy action space %s: %w", a.subaction, err)
	}
	return nil
}
