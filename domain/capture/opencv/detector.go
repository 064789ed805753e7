package opencv

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/soocke/headtrack-go/domain/marker"
	"gocv.io/x/gocv"
)

const (
	// Polygon approximation tolerance as a fraction of the contour length.
	approxFraction = 0.04
	minSidePixels  = 8
	// Side in pixels of one grid cell in the rectified marker.
	warpCell = 8
)

// ContourDetector finds markers with OpenCV: fixed inverse threshold,
// external contours, polygon approximation, sub-pixel corners and a
// perspective warp to read the grid. It keeps scratch buffers between calls
// and is not safe for concurrent use.
type ContourDetector struct {
	Threshold uint8

	buf []byte
}

var _ marker.Detector = (*ContourDetector)(nil)

// NewContourDetector returns a detector using threshold thr; zero selects
// marker.DefaultThreshold.
func NewContourDetector(thr uint8) *ContourDetector {
	if thr == 0 {
		thr = marker.DefaultThreshold
	}
	return &ContourDetector{Threshold: thr}
}

// Detect implements marker.Detector. Corners use the same pixel convention
// as marker.BorderDetector: pixel (x,y) covers [x,x+1)×[y,y+1).
func (d *ContourDetector) Detect(img *image.Gray, minSize, maxSize float64) [][]r2.Point {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return nil
	}
	gray, err := d.toMat(img)
	if err != nil {
		return nil
	}
	defer gray.Close()

	thr := d.Threshold
	if thr == 0 {
		thr = marker.DefaultThreshold
	}
	bin := gocv.NewMat()
	defer bin.Close()
	// Pixels darker than thr become foreground.
	gocv.Threshold(gray, &bin, float32(thr)-1, 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minPerim := 4 * minSize * float64(w)
	maxPerim := 4 * maxSize * float64(w)
	minSide := max(minPerim/4, minSidePixels)

	var out [][]r2.Point
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		length := gocv.ArcLength(c, true)
		if length < minPerim*0.5 {
			continue
		}
		approx := gocv.ApproxPolyDP(c, approxFraction*length, true)
		pts := approx.ToPoints()
		approx.Close()
		if len(pts) != 4 {
			continue
		}
		q, ok := clockwiseQuad(pts)
		if !ok {
			continue
		}
		per := perimeter(q)
		if per < minPerim || per > maxPerim || shortestSide(q) < minSide*0.5 {
			continue
		}
		q = refineCorners(gray, q, shortestSide(q))
		grid, ok := readGrid(gray, q, thr)
		if !ok {
			continue
		}
		turns, ok := marker.Decode(grid)
		if !ok {
			continue
		}
		corners := make([]r2.Point, 4)
		for j := range corners {
			p := q[(j+turns)%4]
			// OpenCV places pixel centres on integer coordinates.
			corners[j] = r2.Point{X: p.X + 0.5 + float64(b.Min.X), Y: p.Y + 0.5 + float64(b.Min.Y)}
		}
		out = append(out, corners)
	}
	return out
}

// toMat copies img into a continuous 8-bit Mat. The Mat shares d.buf, so it
// is only valid until the next call.
func (d *ContourDetector) toMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if cap(d.buf) < w*h {
		d.buf = make([]byte, w*h)
	}
	d.buf = d.buf[:w*h]
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(d.buf[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, d.buf)
}

// clockwiseQuad orders a convex four point polygon clockwise on screen,
// starting from the corner nearest the image origin.
func clockwiseQuad(pts []image.Point) ([4]r2.Point, bool) {
	var q [4]r2.Point
	for i, p := range pts {
		q[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	sign := 0.0
	for i := range q {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		z := b.Sub(a).Cross(c.Sub(b))
		if z == 0 || (sign != 0 && math.Signbit(z) != math.Signbit(sign)) {
			return q, false
		}
		sign = z
	}
	if sign < 0 {
		q[1], q[3] = q[3], q[1]
	}
	first := 0
	for i := 1; i < 4; i++ {
		if q[i].X+q[i].Y < q[first].X+q[first].Y {
			first = i
		}
	}
	var out [4]r2.Point
	for i := range out {
		out[i] = q[(i+first)%4]
	}
	return out, true
}

func perimeter(q [4]r2.Point) float64 {
	var s float64
	for i := range q {
		s += q[(i+1)%4].Sub(q[i]).Norm()
	}
	return s
}

func shortestSide(q [4]r2.Point) float64 {
	s := math.Inf(1)
	for i := range q {
		s = min(s, q[(i+1)%4].Sub(q[i]).Norm())
	}
	return s
}

// refineCorners moves the corners to sub-pixel accuracy. The search window
// stays inside the outer ring of cells.
func refineCorners(gray gocv.Mat, q [4]r2.Point, side float64) [4]r2.Point {
	win := int(side / marker.GridCells / 2)
	win = min(max(win, 2), 5)
	pts := gocv.NewMatWithSize(4, 2, gocv.MatTypeCV32F)
	defer pts.Close()
	for i, p := range q {
		pts.SetFloatAt(i, 0, float32(p.X))
		pts.SetFloatAt(i, 1, float32(p.Y))
	}
	gocv.CornerSubPix(gray, &pts, image.Pt(win, win), image.Pt(-1, -1),
		gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.01))
	var out [4]r2.Point
	for i := range out {
		out[i] = r2.Point{X: float64(pts.GetFloatAt(i, 0)), Y: float64(pts.GetFloatAt(i, 1))}
	}
	return out
}

// readGrid rectifies the quad and samples the centre of every cell.
func readGrid(gray gocv.Mat, q [4]r2.Point, thr uint8) (marker.Grid, bool) {
	var g marker.Grid
	const side = marker.GridCells * warpCell
	src := make([]gocv.Point2f, 4)
	for i, p := range q {
		src[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	// Corner points sit on cell edges, half a pixel outside the pixel
	// centres of the rectified image.
	const lo, hi = -0.5, side - 0.5
	dst := []gocv.Point2f{{X: lo, Y: lo}, {X: hi, Y: lo}, {X: hi, Y: hi}, {X: lo, Y: hi}}

	srcVec := gocv.NewPoint2fVectorFromPoints(src)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(dst)
	defer dstVec.Close()
	m := gocv.GetPerspectiveTransform2f(srcVec, dstVec)
	defer m.Close()
	if m.Empty() {
		return g, false
	}
	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpPerspective(gray, &warped, m, image.Pt(side, side))
	if warped.Rows() != side || warped.Cols() != side {
		return g, false
	}

	const inset = warpCell / 4
	for row := 0; row < marker.GridCells; row++ {
		for col := 0; col < marker.GridCells; col++ {
			var sum, n int
			for y := row*warpCell + inset; y < (row+1)*warpCell-inset; y++ {
				for x := col*warpCell + inset; x < (col+1)*warpCell-inset; x++ {
					sum += int(warped.GetUCharAt(y, x))
					n++
				}
			}
			g[row][col] = sum < int(thr)*n
		}
	}
	return g, true
}
