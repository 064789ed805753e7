package marker

import (
	"image"
	"math"
)

// Clockwise neighbour offsets in image coordinates (y down), starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// binarize writes 1 into bin for every pixel darker than thr. bin is padded
// by one background pixel on each side, so its stride is w+2.
func binarize(img *image.Gray, thr uint8, bin []uint8) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 2
	clear(bin)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		out := bin[(y+1)*stride+1:]
		for x := 0; x < w; x++ {
			if row[x] < thr {
				out[x] = 1
			}
		}
	}
}

// component is a connected foreground region with its raster-first pixel,
// which is always on its outer boundary.
type component struct {
	start image.Point // padded coordinates
	area  int
}

// label finds 8-connected foreground components of the padded binary image.
// labels and stack are scratch buffers reused between frames.
func label(bin []uint8, w, h int, labels []int32, stack []int) ([]component, []int) {
	stride := w + 2
	clear(labels)
	var comps []component
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			if bin[i] == 0 || labels[i] != 0 {
				continue
			}
			id := int32(len(comps) + 1)
			comp := component{start: image.Pt(x, y)}
			labels[i] = id
			stack = append(stack[:0], i)
			for len(stack) > 0 {
				j := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp.area++
				for _, d := range neighbours {
					k := j + d.Y*stride + d.X
					if bin[k] != 0 && labels[k] == 0 {
						labels[k] = id
						stack = append(stack, k)
					}
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps, stack
}

// traceOuter follows the outer boundary of the component containing start
// with Moore-neighbour tracing and returns it clockwise. start must be the
// raster-first pixel of the component. Points are pixel centres in unpadded
// coordinates.
func traceOuter(bin []uint8, w int, start image.Point, limit int) []point {
	stride := w + 2
	fg := func(p image.Point) bool { return bin[p.Y*stride+p.X] != 0 }
	out := []point{centre(start)}

	// Entered from the west: everything above and to the left is background.
	back := 4
	p := start
	var first image.Point
	firstSet := false
	for n := 0; n < limit; n++ {
		found := false
		for i := 1; i <= 8; i++ {
			k := (back + i) % 8
			q := p.Add(neighbours[k])
			if !fg(q) {
				continue
			}
			if p == start && firstSet && q == first {
				return out
			}
			if !firstSet {
				first, firstSet = q, true
			}
			// The last background pixel checked, seen from q.
			back = (k&^1 + 6) % 8
			p = q
			found = true
			break
		}
		if !found {
			return out // isolated pixel
		}
		if p != start {
			out = append(out, centre(p))
		}
	}
	return out
}

func centre(p image.Point) point {
	return point{float64(p.X-1) + 0.5, float64(p.Y-1) + 0.5}
}

type point struct{ X, Y float64 }

func (p point) sub(q point) point { return point{p.X - q.X, p.Y - q.Y} }

func cross(a, b point) float64 { return a.X*b.Y - a.Y*b.X }

func dist(a, b point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// lineDist is the distance from p to the line through a and b.
func lineDist(p, a, b point) float64 {
	d := dist(a, b)
	if d == 0 {
		return dist(p, a)
	}
	return math.Abs(cross(b.sub(a), p.sub(a))) / d
}

// simplify reduces a closed contour to polygon vertices and returns their
// contour indices in order.
func simplify(c []point, eps float64) []int {
	n := len(c)
	if n < 3 {
		return nil
	}
	far := 0
	best := -1.0
	for i := range c {
		if d := dist(c[0], c[i]); d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return nil
	}
	keep := make([]bool, n)
	keep[0], keep[far] = true, true
	dpMark(c, 0, far, eps, keep)
	dpMark(c, far, n, eps, keep)

	idx := make([]int, 0, 8)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	// Contour start may sit mid-edge; drop vertices that are collinear with
	// their neighbours.
	for changed := true; changed && len(idx) > 3; {
		changed = false
		for i := range idx {
			prev := c[idx[(i+len(idx)-1)%len(idx)]]
			next := c[idx[(i+1)%len(idx)]]
			if lineDist(c[idx[i]], prev, next) < eps {
				idx = append(idx[:i], idx[i+1:]...)
				changed = true
				break
			}
		}
	}
	return idx
}

// dpMark runs Douglas-Peucker over c[lo..hi], where hi == len(c) wraps to
// c[0].
func dpMark(c []point, lo, hi int, eps float64, keep []bool) {
	if hi-lo < 2 {
		return
	}
	a, b := c[lo], c[hi%len(c)]
	split, best := -1, eps
	for i := lo + 1; i < hi; i++ {
		if d := lineDist(c[i], a, b); d > best {
			split, best = i, d
		}
	}
	if split < 0 {
		return
	}
	keep[split] = true
	dpMark(c, lo, split, eps, keep)
	dpMark(c, split, hi, eps, keep)
}

func perimeter(q []point) float64 {
	var s float64
	for i := range q {
		s += dist(q[i], q[(i+1)%len(q)])
	}
	return s
}

// convex reports whether q is strictly convex, and its winding sign.
func convex(q []point) (ok bool, clockwise bool) {
	sign := 0
	for i := range q {
		a, b, c := q[i], q[(i+1)%len(q)], q[(i+2)%len(q)]
		z := cross(b.sub(a), c.sub(b))
		s := 1
		if z < 0 {
			s = -1
		} else if z == 0 {
			return false, false
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false, false
		}
	}
	// Positive cross products turn clockwise on screen.
	return true, sign > 0
}
