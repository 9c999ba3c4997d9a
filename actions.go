package cadence

import (
	"errors"
	"fmt"
)

// Path is a device path string, e.g. "/user/hand/left". The empty Path is
// the null path.
type Path string

// NullPath is the absent subaction path.
const NullPath Path = ""

// Well-known device paths.
const (
	PathLeftHand  Path = "/user/hand/left"
	PathRightHand Path = "/user/hand/right"
)

// ActionSet groups related actions. A set must be attached to a session
// (once, ever) before its actions produce data.
type ActionSet struct {
	Name     string
	actions  []*PoseAction
	attached bool
}

// NewActionSet creates an empty action set.
func NewActionSet(name string) *ActionSet {
	return &ActionSet{Name: name}
}

// Attached reports whether the set has been attached to a session.
func (as *ActionSet) Attached() bool {
	return as.attached
}

// PoseAction is a pose-typed input action with optional subaction paths
// (one per addressable device).
type PoseAction struct {
	Name       string
	set        *ActionSet
	subactions []Path
}

// NewPoseAction adds a pose action to the set. Subaction paths name the
// devices the action may later be filtered by.
func (as *ActionSet) NewPoseAction(name string, subactions ...Path) *PoseAction {
	a := &PoseAction{Name: name, set: as, subactions: subactions}
	as.actions = append(as.actions, a)
	return a
}

// Subactions returns the action's device paths.
func (a *PoseAction) Subactions() []Path {
	return a.subactions
}

// --- Two-controller convenience helper ---

// TwoControllers wires up the common case of one pose action over the left
// and right hand paths, with an action space per hand. Attach the Set to the
// session before enumerating.
type TwoControllers struct {
	Set    *ActionSet
	action *PoseAction
	spaces []*ActionSpace
}

// NewTwoControllers creates the action set, pose action, and per-hand action
// spaces on the given session. Hands the backend does not serve are skipped.
func NewTwoControllers(s *Session) (*TwoControllers, error) {
	set := NewActionSet("default")
	action := set.NewPoseAction("hand_pose", PathLeftHand, PathRightHand)

	tc := &TwoControllers{Set: set, action: action}
	for _, hand := range action.Subactions() {
		space, err := s.CreateActionSpace(action, hand)
		if err != nil {
			if isPathUnsupported(err) {
				continue
			}
			return nil, fmt.Errorf("two controllers: %w", err)
		}
		tc.spaces = append(tc.spaces, space)
	}
	return tc, nil
}

// ControllerSample pairs a controller index with its pose sample for one
// frame. Index is 0 for the left hand, 1 for the right.
type ControllerSample struct {
	Index  int
	Sample PoseSample
}

// EnumerateControllers samples every bound controller at the given time.
// Untracked controllers are included with an untracked sample so callers can
// count active devices; check Sample.Valid before using the pose.
func (tc *TwoControllers) EnumerateControllers(ref *ReferenceSpace, at Time) ([]ControllerSample, error) {
	samples := make([]ControllerSample, 0, len(tc.spaces))
	for i, space := range tc.spaces {
		sample, err := space.Locate(ref, at)
		if err != nil {
			return nil, fmt.Errorf("two controllers: %w", err)
		}
		samples = append(samples, ControllerSample{Index: i, Sample: sample})
	}
	return samples, nil
}

func isPathUnsupported(err error) bool {
	return errors.Is(err, ErrPathUnsupported)
}
