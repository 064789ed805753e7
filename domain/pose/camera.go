package pose

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Intrinsics holds the pinhole camera parameters. There are no distortion
// coefficients.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// NewIntrinsics derives focal lengths for a w×h frame from the diagonal field
// of view in degrees. The principal point is the integer frame centre.
func NewIntrinsics(w, h int, diagFOV float64) Intrinsics {
	if w <= 0 || h <= 0 {
		return Intrinsics{}
	}
	fw, fh := float64(w), float64(h)
	diag := diagFOV * math.Pi / 180
	t := math.Tan(diag / 2)
	fovW := 2 * math.Atan(t/math.Sqrt(1+(fh/fw)*(fh/fw)))
	fovH := 2 * math.Atan(t/math.Sqrt(1+(fw/fh)*(fw/fh)))
	return Intrinsics{
		Fx: 0.5 * fw / math.Tan(0.5*fovW),
		Fy: 0.5 * fh / math.Tan(0.5*fovH),
		Cx: float64(w / 2),
		Cy: float64(h / 2),
	}
}

// Project maps a camera-space point to image coordinates.
func (k Intrinsics) Project(p r3.Vector) r2.Point {
	return r2.Point{X: k.Fx*p.X/p.Z + k.Cx, Y: k.Fy*p.Y/p.Z + k.Cy}
}

// ProjectPoints transforms model points by (r, t) and projects them.
func ProjectPoints(pts []r3.Vector, r Mat3, t r3.Vector, k Intrinsics) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = k.Project(r.MulVec(p).Add(t))
	}
	return out
}

// Model holds the four marker corners in marker space, ordered top-left,
// top-right, bottom-right, bottom-left as seen by a camera facing the marker
// (x right, y down).
type Model [4]r3.Vector

// NewModel builds the corner model for a marker of the given half size,
// translated by the head-centre offset.
func NewModel(half float64, offset r3.Vector) Model {
	return Model{
		{X: -half + offset.X, Y: -half + offset.Y, Z: offset.Z},
		{X: half + offset.X, Y: -half + offset.Y, Z: offset.Z},
		{X: half + offset.X, Y: half + offset.Y, Z: offset.Z},
		{X: -half + offset.X, Y: half + offset.Y, Z: offset.Z},
	}
}

// Centroid returns the mean of the model points.
func (m Model) Centroid() r3.Vector {
	var c r3.Vector
	for _, p := range m {
		c = c.Add(p)
	}
	return c.Mul(0.25)
}

// SearchWindow scales the corners outward by factor around the model
// centroid. Projected with the solved pose these points bound the region the
// marker is expected in on the next frame.
func (m Model) SearchWindow(factor float64) []r3.Vector {
	c := m.Centroid()
	out := make([]r3.Vector, len(m))
	for i, p := range m {
		out[i] = c.Add(p.Sub(c).Mul(factor))
	}
	return out
}

// Points returns the model as a slice.
func (m Model) Points() []r3.Vector {
	return m[:]
}
