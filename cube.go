package cadence

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// ColorCubeRenderer paints an axis-aligned cube with a distinct color per
// face, software-projected through each view's pose and frustum. It is the
// classic "is my head tracking?" test object: the cube sits still in stage
// space while the projected image moves against head motion.
type ColorCubeRenderer struct {
	// Side is the cube edge length in meters.
	Side float32
	// Center is the cube center in the reference space used for rendering.
	Center Vector3f
	// Background fills the target before the cube is drawn.
	Background Color

	verts []ebiten.Vertex
	inds  []uint16
}

// NewColorCubeRenderer creates a cube of the given side length centered at
// center, on a dark background.
func NewColorCubeRenderer(side float32, center Vector3f) *ColorCubeRenderer {
	return &ColorCubeRenderer{
		Side:       side,
		Center:     center,
		Background: Color{R: 0.1, G: 0.07, B: 0.07, A: 1},
	}
}

// cubeFaces lists each face's corner offsets (unit cube, ±0.5) in an order
// that keeps consistent winding, with the face color.
var cubeFaces = [6]struct {
	corners [4]Vector3f
	tint    Color
}{
	{[4]Vector3f{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}}, Color{1, 0, 0, 1}},    // +X red
	{[4]Vector3f{{-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {-0.5, -0.5, -0.5}}, Color{0, 1, 1, 1}}, // -X cyan
	{[4]Vector3f{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}}, Color{0, 1, 0, 1}},     // +Y green
	{[4]Vector3f{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}}, Color{1, 0, 1, 1}}, // -Y magenta
	{[4]Vector3f{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}, Color{0, 0, 1, 1}},     // +Z blue
	{[4]Vector3f{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, Color{1, 1, 0, 1}}, // -Z yellow
}

// nearClip is the minimum eye-space depth a face corner must clear.
const nearClip = 0.05

// Draw renders the cube for one view into the view's target image.
func (r *ColorCubeRenderer) Draw(v *RenderView) {
	if v.Target == nil {
		return
	}
	v.Target.Fill(r.Background.toRGBA())

	b := v.Target.Bounds()
	width := float32(b.Dx())
	height := float32(b.Dy())

	tanL := float32(math.Tan(float64(v.Fov.AngleLeft)))
	tanR := float32(math.Tan(float64(v.Fov.AngleRight)))
	tanU := float32(math.Tan(float64(v.Fov.AngleUp)))
	tanD := float32(math.Tan(float64(v.Fov.AngleDown)))

	eye := v.Pose.Inverse()

	// Project all face corners into eye space first, then paint back to
	// front. Six faces: insertion sort on mean depth.
	type projectedFace struct {
		pts   [4][2]float32
		depth float32
		tint  Color
		ok    bool
	}
	var faces [6]projectedFace
	for fi, face := range cubeFaces {
		pf := projectedFace{tint: face.tint, ok: true}
		var depthSum float32
		for ci, corner := range face.corners {
			world := r.Center.Add(corner.Scale(r.Side))
			e := eye.Transform(world)
			if e.Z > -nearClip {
				pf.ok = false
				break
			}
			depthSum += e.Z
			nx := e.X / -e.Z
			ny := e.Y / -e.Z
			pf.pts[ci][0] = (nx - tanL) / (tanR - tanL) * width
			pf.pts[ci][1] = (tanU - ny) / (tanU - tanD) * height
		}
		pf.depth = depthSum / 4
		faces[fi] = pf
	}

	order := [6]int{0, 1, 2, 3, 4, 5}
	for i := 1; i < len(order); i++ {
		key := order[i]
		j := i - 1
		for j >= 0 && faces[order[j]].depth > faces[key].depth {
			order[j+1] = order[j]
			j--
		}
		order[j+1] = key
	}

	r.verts = r.verts[:0]
	r.inds = r.inds[:0]
	for _, fi := range order {
		pf := &faces[fi]
		if !pf.ok {
			continue
		}
		base := uint16(len(r.verts))
		cr := float32(pf.tint.R)
		cg := float32(pf.tint.G)
		cb := float32(pf.tint.B)
		for _, pt := range pf.pts {
			r.verts = append(r.verts, ebiten.Vertex{
				DstX:   pt[0],
				DstY:   pt[1],
				SrcX:   0,
				SrcY:   0,
				ColorR: cr,
				ColorG: cg,
				ColorB: cb,
				ColorA: 1,
			})
		}
		r.inds = append(r.inds, base, base+1, base+2, base, base+2, base+3)
	}
	if len(r.inds) == 0 {
		return
	}
	v.Target.DrawTriangles(r.verts, r.inds, ensureWhitePixel(), &ebiten.DrawTrianglesOptions{})
}

// --- White pixel singleton (cadence is single-threaded, no sync.Once) ---

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a lazily-initialized 1x1 white pixel image used
// as the texture for untextured triangles.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}
