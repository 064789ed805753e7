// Package marker finds square fiducial markers in grayscale frames.
//
// A marker is a GridCells×GridCells grid: a ring of black cells around a
// 5×5 interior pattern. Exactly one inner corner cell of the interior is
// white; it marks the marker's top-left corner so the reported corner order
// follows the marker, not the image.
package marker

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
)

const (
	// GridCells is the number of cells along each side of a marker.
	GridCells = 7
	// DefaultThreshold separates dark marker cells from light background.
	DefaultThreshold = 100

	maxBorderMisses = 2
	// Douglas-Peucker tolerance as a fraction of the contour length.
	approxFraction = 0.04
	minSidePixels  = 8
)

// Detector returns the marker candidates in img. Size bounds are fractions of
// the image width and limit the candidate perimeter to [4·min·W, 4·max·W].
// Each candidate lists its corners top-left, top-right, bottom-right,
// bottom-left in img's coordinate space.
type Detector interface {
	Detect(img *image.Gray, minSize, maxSize float64) [][]r2.Point
}

// BorderDetector is a fixed-threshold contour detector. It keeps scratch
// buffers between calls and is not safe for concurrent use.
type BorderDetector struct {
	Threshold uint8

	bin    []uint8
	labels []int32
	stack  []int
}

// NewBorderDetector returns a detector using threshold thr; zero selects
// DefaultThreshold.
func NewBorderDetector(thr uint8) *BorderDetector {
	if thr == 0 {
		thr = DefaultThreshold
	}
	return &BorderDetector{Threshold: thr}
}

type candidate struct {
	corners [4]point
	area    float64
}

// Detect implements Detector.
func (d *BorderDetector) Detect(img *image.Gray, minSize, maxSize float64) [][]r2.Point {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return nil
	}
	thr := d.Threshold
	if thr == 0 {
		thr = DefaultThreshold
	}
	padded := (w + 2) * (h + 2)
	if cap(d.bin) < padded {
		d.bin = make([]uint8, padded)
		d.labels = make([]int32, padded)
	}
	d.bin = d.bin[:padded]
	d.labels = d.labels[:padded]

	binarize(img, thr, d.bin)
	var comps []component
	comps, d.stack = label(d.bin, w, h, d.labels, d.stack)

	minPerim := 4 * minSize * float64(w)
	maxPerim := 4 * maxSize * float64(w)
	minSide := max(minPerim/4, minSidePixels)

	var found []candidate
	for _, c := range comps {
		// A marker's dark pixels cover far more than a thin outline.
		if float64(c.area) < minSide*2 {
			continue
		}
		contour := traceOuter(d.bin, w, c.start, 4*c.area+8)
		if float64(len(contour)) < minPerim*0.5 {
			continue
		}
		cand, ok := d.quad(img, contour, thr, minPerim, maxPerim, minSide)
		if ok {
			found = append(found, cand)
		}
	}
	found = outermost(found)

	out := make([][]r2.Point, 0, len(found))
	for _, c := range found {
		pts := make([]r2.Point, 4)
		for i, p := range c.corners {
			pts[i] = r2.Point{X: p.X + float64(b.Min.X), Y: p.Y + float64(b.Min.Y)}
		}
		out = append(out, pts)
	}
	return out
}

// quad turns a contour into a verified, oriented marker candidate.
func (d *BorderDetector) quad(img *image.Gray, contour []point, thr uint8, minPerim, maxPerim, minSide float64) (candidate, bool) {
	idx := simplify(contour, approxFraction*float64(len(contour)))
	if len(idx) != 4 {
		return candidate{}, false
	}
	var q [4]point
	var qi [4]int
	for i, j := range idx {
		q[i], qi[i] = contour[j], j
	}
	ok, clockwise := convex(q[:])
	if !ok || !clockwise {
		return candidate{}, false
	}
	per := perimeter(q[:])
	if per < minPerim || per > maxPerim {
		return candidate{}, false
	}
	for i := range q {
		if dist(q[i], q[(i+1)%4]) < minSide*0.5 {
			return candidate{}, false
		}
	}

	// Start from the geometric top-left corner.
	first := 0
	for i := 1; i < 4; i++ {
		if q[i].X+q[i].Y < q[first].X+q[first].Y {
			first = i
		}
	}
	q, qi = rotate(q, first), rotateIdx(qi, first)
	q = refineCorners(contour, qi, q)

	grid, ok := readGrid(img, q, thr)
	if !ok || !validGrid(grid) {
		return candidate{}, false
	}
	if o := orientation(grid); o > 0 {
		q = rotate(q, o)
	}
	return candidate{corners: q, area: area(q)}, true
}

func rotate(q [4]point, by int) [4]point {
	var out [4]point
	for i := range out {
		out[i] = q[(i+by)%4]
	}
	return out
}

func rotateIdx(q [4]int, by int) [4]int {
	var out [4]int
	for i := range out {
		out[i] = q[(i+by)%4]
	}
	return out
}

func area(q [4]point) float64 {
	var s float64
	for i := range q {
		s += cross(q[i], q[(i+1)%4])
	}
	if s < 0 {
		s = -s
	}
	return s / 2
}

// outermost drops candidates nested inside a larger candidate.
func outermost(c []candidate) []candidate {
	if len(c) < 2 {
		return c
	}
	sort.Slice(c, func(i, j int) bool { return c[i].area > c[j].area })
	out := c[:0:0]
	for _, cand := range c {
		nested := false
		for _, outer := range out {
			if inside(outer.corners, cand.corners[0]) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, cand)
		}
	}
	return out
}

// inside reports whether p is inside the clockwise convex quad q.
func inside(q [4]point, p point) bool {
	for i := range q {
		if cross(q[(i+1)%4].sub(q[i]), p.sub(q[i])) < 0 {
			return false
		}
	}
	return true
}
