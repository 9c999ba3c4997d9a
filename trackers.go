package cadence

import "fmt"

// TrackerRole names the body or prop position a generic tracker is assigned
// to. Roles mirror the runtime's tracker interaction profile.
type TrackerRole string

const (
	RoleHandheldObject TrackerRole = "handheld_object"
	RoleLeftFoot       TrackerRole = "left_foot"
	RoleRightFoot      TrackerRole = "right_foot"
	RoleLeftShoulder   TrackerRole = "left_shoulder"
	RoleRightShoulder  TrackerRole = "right_shoulder"
	RoleLeftElbow      TrackerRole = "left_elbow"
	RoleRightElbow     TrackerRole = "right_elbow"
	RoleLeftKnee       TrackerRole = "left_knee"
	RoleRightKnee      TrackerRole = "right_knee"
	RoleWaist          TrackerRole = "waist"
	RoleChest          TrackerRole = "chest"
	RoleCamera         TrackerRole = "camera"
	RoleKeyboard       TrackerRole = "keyboard"
)

// AllTrackerRoles lists every role, in profile order.
var AllTrackerRoles = []TrackerRole{
	RoleHandheldObject,
	RoleLeftFoot,
	RoleRightFoot,
	RoleLeftShoulder,
	RoleRightShoulder,
	RoleLeftElbow,
	RoleRightElbow,
	RoleLeftKnee,
	RoleRightKnee,
	RoleWaist,
	RoleChest,
	RoleCamera,
	RoleKeyboard,
}

// DevicePath returns the subaction path addressing trackers in this role.
func (r TrackerRole) DevicePath() Path {
	return Path("/user/tracker/role/" + string(r))
}

// IsExcludedRole is the filter predicate applied during tracker enumeration.
// Trackers carrying the handheld_object role are excluded from output.
func IsExcludedRole(r TrackerRole) bool {
	return r == RoleHandheldObject
}

// TrackerSet binds a pose action across tracker roles, one action space per
// role the backend serves. Requires ExtTrackerRoles on the instance. Attach
// the Set to the session before enumerating.
type TrackerSet struct {
	Set    *ActionSet
	action *PoseAction
	roles  []TrackerRole
	spaces []*ActionSpace
}

// NewTrackerSet creates per-role action spaces on the session. Roles the
// backend reports as unsupported paths are skipped, matching how trackers
// come and go between runs. With no explicit roles, all roles are tried.
func NewTrackerSet(s *Session, roles ...TrackerRole) (*TrackerSet, error) {
	if len(roles) == 0 {
		roles = AllTrackerRoles
	}
	paths := make([]Path, len(roles))
	for i, role := range roles {
		paths[i] = role.DevicePath()
	}

	set := NewActionSet("trackers")
	action := set.NewPoseAction("tracker_pose", paths...)

	ts := &TrackerSet{Set: set, action: action}
	for i, role := range roles {
		space, err := s.CreateActionSpace(action, paths[i])
		if err != nil {
			if isPathUnsupported(err) {
				continue
			}
			return nil, fmt.Errorf("tracker set: %w", err)
		}
		ts.roles = append(ts.roles, role)
		ts.spaces = append(ts.spaces, space)
	}
	return ts, nil
}

// Roles returns the roles that got an action space, in profile order.
func (ts *TrackerSet) Roles() []TrackerRole {
	return ts.roles
}

// TrackerSample pairs a tracker role with its pose for one frame.
type TrackerSample struct {
	Role TrackerRole
	Pose Posef
}

// EnumerateActive samples every bound tracker and returns the ones that are
// currently tracked. Roles matching IsExcludedRole are left out of the
// result even when tracked.
func (ts *TrackerSet) EnumerateActive(ref *ReferenceSpace, at Time) ([]TrackerSample, error) {
	var active []TrackerSample
	for i, space := range ts.spaces {
		role := ts.roles[i]
		if IsExcludedRole(role) {
			continue
		}
		sample, err := space.Locate(ref, at)
		if err != nil {
			return nil, fmt.Errorf("tracker set: %w", err)
		}
		if !sample.Valid() {
			continue
		}
		active = append(active, TrackerSample{Role: role, Pose: sample.Pose})
	}
	return active, nil
}
