package cadence

import (
	"fmt"
	"image/color"
	"math"
	"time"
)

// Vector3f is a 3D vector in meters. The coordinate system is right-handed:
// X right, Y up, Z toward the viewer (out of the screen).
type Vector3f struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vector3f) Add(o Vector3f) Vector3f {
	return Vector3f{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3f) Sub(o Vector3f) Vector3f {
	return Vector3f{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vector3f) Scale(s float32) Vector3f {
	return Vector3f{v.X * s, v.Y * s, v.Z * s}
}

// IsFinite reports whether all components are finite (not NaN, not Inf).
func (v Vector3f) IsFinite() bool {
	return finite32(v.X) && finite32(v.Y) && finite32(v.Z)
}

// Quaternionf is a rotation quaternion (X, Y, Z, W). The zero value is NOT a
// valid rotation; use IdentityQuaternion or QuaternionFromAxisAngle.
type Quaternionf struct {
	X, Y, Z, W float32
}

// IdentityQuaternion returns the no-rotation quaternion.
func IdentityQuaternion() Quaternionf {
	return Quaternionf{W: 1}
}

// QuaternionFromAxisAngle builds a quaternion rotating angle radians around
// axis. The axis does not need to be normalized.
func QuaternionFromAxisAngle(axis Vector3f, angle float32) Quaternionf {
	length := float32(math.Sqrt(float64(axis.X*axis.X + axis.Y*axis.Y + axis.Z*axis.Z)))
	if length == 0 {
		return IdentityQuaternion()
	}
	half := float64(angle) / 2
	s := float32(math.Sin(half)) / length
	return Quaternionf{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(half)),
	}
}

// Mul returns the composition q * o (apply o first, then q).
func (q Quaternionf) Mul(o Quaternionf) Quaternionf {
	return Quaternionf{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Conjugate returns the inverse rotation for a unit quaternion.
func (q Quaternionf) Conjugate() Quaternionf {
	return Quaternionf{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Rotate applies the rotation to v.
func (q Quaternionf) Rotate(v Vector3f) Vector3f {
	// t = 2 * cross(q.xyz, v); result = v + q.w*t + cross(q.xyz, t)
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Vector3f{
		X: v.X + q.W*tx + q.Y*tz - q.Z*ty,
		Y: v.Y + q.W*ty + q.Z*tx - q.X*tz,
		Z: v.Z + q.W*tz + q.X*ty - q.Y*tx,
	}
}

// IsFinite reports whether all components are finite.
func (q Quaternionf) IsFinite() bool {
	return finite32(q.X) && finite32(q.Y) && finite32(q.Z) && finite32(q.W)
}

// Posef is a rigid transform: a rotation followed by a translation. It is the
// unit in which all device poses are reported.
type Posef struct {
	Orientation Quaternionf
	Position    Vector3f
}

// IdentityPose returns the identity transform.
func IdentityPose() Posef {
	return Posef{Orientation: IdentityQuaternion()}
}

// Mul returns the composition p * o: o expressed in p's frame.
func (p Posef) Mul(o Posef) Posef {
	return Posef{
		Orientation: p.Orientation.Mul(o.Orientation),
		Position:    p.Position.Add(p.Orientation.Rotate(o.Position)),
	}
}

// Inverse returns the inverse transform, assuming a unit orientation.
func (p Posef) Inverse() Posef {
	inv := p.Orientation.Conjugate()
	return Posef{
		Orientation: inv,
		Position:    inv.Rotate(p.Position).Scale(-1),
	}
}

// Transform applies the pose to a point.
func (p Posef) Transform(v Vector3f) Vector3f {
	return p.Orientation.Rotate(v).Add(p.Position)
}

// IsFinite reports whether position and orientation are both finite.
func (p Posef) IsFinite() bool {
	return p.Position.IsFinite() && p.Orientation.IsFinite()
}

// String formats the pose as one line, suitable for per-frame console output.
func (p Posef) String() string {
	return fmt.Sprintf("p(%.3f %.3f %.3f) q(%.3f %.3f %.3f %.3f)",
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W)
}

// Fov holds the four half-angles of a view frustum, in radians. Left and down
// are typically negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// Extent2Di is a pixel extent.
type Extent2Di struct {
	Width, Height int
}

// Time is a runtime timestamp in nanoseconds. Timestamps are only meaningful
// relative to other timestamps from the same instance.
type Time int64

// Add returns the timestamp offset by d.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d)
}

// Color is an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is opaque white.
var ColorWhite = Color{1, 1, 1, 1}

// toRGBA converts to the 8-bit premultiplied form ebiten's Fill expects.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A)*255 + 0.5),
		G: uint8(clamp01(c.G*c.A)*255 + 0.5),
		B: uint8(clamp01(c.B*c.A)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func finite32(f float32) bool {
	f64 := float64(f)
	return !math.IsNaN(f64) && !math.IsInf(f64, 0)
}
