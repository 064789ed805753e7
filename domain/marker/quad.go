package marker

import (
	"image"
	"math"
)

// homography is a 3x3 projective map, row-major.
type homography [3][3]float64

// squareToQuad maps the unit square corners (0,0), (1,0), (1,1), (0,1) onto
// q[0..3].
func squareToQuad(q [4]point) (homography, bool) {
	x0, y0 := q[0].X, q[0].Y
	x1, y1 := q[1].X, q[1].Y
	x2, y2 := q[2].X, q[2].Y
	x3, y3 := q[3].X, q[3].Y
	dx1, dy1 := x1-x2, y1-y2
	dx2, dy2 := x3-x2, y3-y2
	dx3, dy3 := x0-x1+x2-x3, y0-y1+y2-y3
	den := dx1*dy2 - dx2*dy1
	if math.Abs(den) < 1e-12 {
		return homography{}, false
	}
	g := (dx3*dy2 - dx2*dy3) / den
	h := (dx1*dy3 - dx3*dy1) / den
	return homography{
		{x1 - x0 + g*x1, x3 - x0 + h*x3, x0},
		{y1 - y0 + g*y1, y3 - y0 + h*y3, y0},
		{g, h, 1},
	}, true
}

func (m homography) apply(u, v float64) point {
	w := m[2][0]*u + m[2][1]*v + m[2][2]
	return point{
		(m[0][0]*u + m[0][1]*v + m[0][2]) / w,
		(m[1][0]*u + m[1][1]*v + m[1][2]) / w,
	}
}

func (m homography) inverse() (homography, bool) {
	var adj homography
	adj[0][0] = m[1][1]*m[2][2] - m[1][2]*m[2][1]
	adj[0][1] = m[0][2]*m[2][1] - m[0][1]*m[2][2]
	adj[0][2] = m[0][1]*m[1][2] - m[0][2]*m[1][1]
	adj[1][0] = m[1][2]*m[2][0] - m[1][0]*m[2][2]
	adj[1][1] = m[0][0]*m[2][2] - m[0][2]*m[2][0]
	adj[1][2] = m[0][2]*m[1][0] - m[0][0]*m[1][2]
	adj[2][0] = m[1][0]*m[2][1] - m[1][1]*m[2][0]
	adj[2][1] = m[0][1]*m[2][0] - m[0][0]*m[2][1]
	adj[2][2] = m[0][0]*m[1][1] - m[0][1]*m[1][0]
	det := m[0][0]*adj[0][0] + m[0][1]*adj[1][0] + m[0][2]*adj[2][0]
	if math.Abs(det) < 1e-18 {
		return homography{}, false
	}
	for i := range adj {
		for j := range adj[i] {
			adj[i][j] /= det
		}
	}
	return adj, true
}

// sampleCell averages five points inside grid cell (col,row) of a
// GridCells×GridCells grid spanned by h.
func sampleCell(img *image.Gray, h homography, col, row int) (float64, bool) {
	const n = float64(GridCells)
	offsets := [5][2]float64{{0, 0}, {-0.25, -0.25}, {0.25, -0.25}, {0.25, 0.25}, {-0.25, 0.25}}
	b := img.Bounds()
	var sum float64
	for _, o := range offsets {
		p := h.apply((float64(col)+0.5+o[0])/n, (float64(row)+0.5+o[1])/n)
		x := b.Min.X + int(math.Floor(p.X))
		y := b.Min.Y + int(math.Floor(p.Y))
		if !(image.Point{x, y}).In(b) {
			return 0, false
		}
		sum += float64(img.GrayAt(x, y).Y)
	}
	return sum / float64(len(offsets)), true
}

// readGrid samples all cells of the candidate. dark[row][col] is true for
// black cells.
func readGrid(img *image.Gray, q [4]point, thr uint8) (dark [GridCells][GridCells]bool, ok bool) {
	h, ok := squareToQuad(q)
	if !ok {
		return dark, false
	}
	for row := 0; row < GridCells; row++ {
		for col := 0; col < GridCells; col++ {
			v, in := sampleCell(img, h, col, row)
			if !in {
				return dark, false
			}
			dark[row][col] = v < float64(thr)
		}
	}
	return dark, true
}

// validGrid checks the black border ring and that the interior is not solid
// black.
func validGrid(dark [GridCells][GridCells]bool) bool {
	const last = GridCells - 1
	misses := 0
	for i := 0; i < GridCells; i++ {
		for _, d := range []bool{dark[0][i], dark[last][i], dark[i][0], dark[i][last]} {
			if !d {
				misses++
			}
		}
	}
	if misses > maxBorderMisses {
		return false
	}
	for row := 1; row < last; row++ {
		for col := 1; col < last; col++ {
			if !dark[row][col] {
				return true
			}
		}
	}
	return false
}

// orientation returns the corner index whose inner corner cell is the only
// white one, or -1 when the grid has no unique orientation cell.
func orientation(dark [GridCells][GridCells]bool) int {
	const in0, in1 = 1, GridCells - 2
	cells := [4]bool{
		!dark[in0][in0], // top-left
		!dark[in0][in1], // top-right
		!dark[in1][in1], // bottom-right
		!dark[in1][in0], // bottom-left
	}
	found := -1
	for i, white := range cells {
		if !white {
			continue
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}

// fitLine returns a point on and the unit direction of the total least
// squares line through pts.
func fitLine(pts []point) (c, dir point, ok bool) {
	if len(pts) < 2 {
		return point{}, point{}, false
	}
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	c.X /= n
	c.Y /= n
	var sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return c, point{math.Cos(theta), math.Sin(theta)}, true
}

// intersect returns the intersection of two lines in point-direction form.
func intersect(p1, d1, p2, d2 point) (point, bool) {
	den := cross(d1, d2)
	if math.Abs(den) < 1e-9 {
		return point{}, false
	}
	t := cross(p2.sub(p1), d2) / den
	return point{p1.X + t*d1.X, p1.Y + t*d1.Y}, true
}

// refineCorners fits a line to the contour pixels of each side, moves it
// half a pixel outward onto the dark/light edge and intersects neighbouring
// sides. Corners that cannot be refined keep their polygon position.
func refineCorners(contour []point, idx [4]int, quad [4]point) [4]point {
	n := len(contour)
	var centroid point
	for _, q := range quad {
		centroid.X += q.X / 4
		centroid.Y += q.Y / 4
	}
	type line struct {
		p, d point
		ok   bool
	}
	var sides [4]line
	for s := 0; s < 4; s++ {
		a, b := idx[s], idx[(s+1)%4]
		span := (b - a + n) % n
		trim := span / 8
		pts := make([]point, 0, span)
		for i := trim; i <= span-trim; i++ {
			pts = append(pts, contour[(a+i)%n])
		}
		c, d, ok := fitLine(pts)
		if !ok {
			continue
		}
		normal := point{-d.Y, d.X}
		if (c.X-centroid.X)*normal.X+(c.Y-centroid.Y)*normal.Y < 0 {
			normal = point{-normal.X, -normal.Y}
		}
		c = point{c.X + 0.5*normal.X, c.Y + 0.5*normal.Y}
		sides[s] = line{c, d, true}
	}
	out := quad
	for i := 0; i < 4; i++ {
		prev, next := sides[(i+3)%4], sides[i]
		if !prev.ok || !next.ok {
			continue
		}
		if p, ok := intersect(prev.p, prev.d, next.p, next.d); ok && dist(p, quad[i]) < 4 {
			out[i] = p
		}
	}
	return out
}
