// Package roi predicts where the marker will be on the next frame and runs
// detection inside that region before falling back to the whole frame.
package roi

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/soocke/headtrack-go/domain/marker"
	"github.com/soocke/headtrack-go/domain/pose"
)

const (
	minScaledSize = 0.01
	maxScaledSize = 1.0
	sentinelCoord = 65535
)

// Sentinel is the "no prediction" region: zero sized and outside any frame.
var Sentinel = image.Rectangle{
	Min: image.Pt(sentinelCoord, sentinelCoord),
	Max: image.Pt(sentinelCoord, sentinelCoord),
}

// Valid reports whether r can be used as a search region.
func Valid(r image.Rectangle) bool {
	return r.Dx() > 1 && r.Dy() > 1
}

// ScaleBounds rescales marker size bounds, given as fractions of the frame
// width, to fractions of a region roiW pixels wide.
func ScaleBounds(minSize, maxSize float64, frameW, roiW int) (float64, float64) {
	if roiW <= 0 {
		return minSize, maxSize
	}
	f := float64(frameW) / float64(roiW)
	clamp := func(v float64) float64 {
		return math.Min(maxScaledSize, math.Max(minScaledSize, v))
	}
	return clamp(minSize * f), clamp(maxSize * f)
}

// Crop returns a view of img restricted to r with its origin moved to (0,0).
// The view shares img's pixels.
func Crop(img *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return &image.Gray{}
	}
	return &image.Gray{
		Pix:    img.Pix[img.PixOffset(r.Min.X, r.Min.Y):],
		Stride: img.Stride,
		Rect:   image.Rect(0, 0, r.Dx(), r.Dy()),
	}
}

// FromProjection returns the bounding box of pts clamped into a w×h frame:
// the origin lies in [0,w-2]×[0,h-2] and the far corner in
// [origin+1, w-1]×[origin+1, h-1].
func FromProjection(pts []r2.Point, w, h int) image.Rectangle {
	if len(pts) == 0 || w < 2 || h < 2 {
		return Sentinel
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return Sentinel
		}
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x0 := clampInt(minX, 0, w-2)
	y0 := clampInt(minY, 0, h-2)
	x1 := clampInt(math.Ceil(maxX), x0+1, w-1)
	y1 := clampInt(math.Ceil(maxY), y0+1, h-1)
	return image.Rect(x0, y0, x1, y1)
}

func clampInt(v float64, lo, hi int) int {
	switch {
	case v <= float64(lo):
		return lo
	case v >= float64(hi):
		return hi
	}
	return int(math.Floor(v))
}

// Detection is an accepted marker in frame coordinates.
type Detection struct {
	Corners []r2.Point
	FromROI bool
}

// Predictor runs two-phase detection and holds the search region for the
// next frame. It is owned by the capture loop and not safe for concurrent
// use.
type Predictor struct {
	detector marker.Detector
	minSize  float64
	maxSize  float64
	rect     image.Rectangle
}

// NewPredictor returns a predictor with no prediction.
func NewPredictor(d marker.Detector, minSize, maxSize float64) *Predictor {
	return &Predictor{detector: d, minSize: minSize, maxSize: maxSize, rect: Sentinel}
}

// Rect returns the current search region, Sentinel when there is none.
func (p *Predictor) Rect() image.Rectangle { return p.rect }

// Reset drops the prediction so the next frame searches the whole image.
func (p *Predictor) Reset() { p.rect = Sentinel }

// SetBounds changes the marker size bounds used for full-frame detection.
func (p *Predictor) SetBounds(minSize, maxSize float64) {
	p.minSize, p.maxSize = minSize, maxSize
}

// Detect looks for the marker inside the predicted region first and then in
// the whole frame.
func (p *Predictor) Detect(gray *image.Gray) (Detection, bool) {
	if gray == nil {
		return Detection{}, false
	}
	fb := gray.Bounds()
	if r := p.rect.Intersect(fb); Valid(p.rect) && Valid(r) {
		lo, hi := ScaleBounds(p.minSize, p.maxSize, fb.Dx(), r.Dx())
		if corners, ok := accept(p.detector.Detect(Crop(gray, r), lo, hi)); ok {
			for i := range corners {
				corners[i].X += float64(r.Min.X)
				corners[i].Y += float64(r.Min.Y)
			}
			return Detection{Corners: corners, FromROI: true}, true
		}
	}
	if corners, ok := accept(p.detector.Detect(gray, p.minSize, p.maxSize)); ok {
		return Detection{Corners: corners}, true
	}
	return Detection{}, false
}

// Predict sets the next search region from the solved pose: the model
// corners pushed outward by window around the head offset, projected and
// boxed.
func (p *Predictor) Predict(model pose.Model, window float64, sol pose.Solution, k pose.Intrinsics, size image.Point) image.Rectangle {
	pts := pose.ProjectPoints(model.SearchWindow(window), sol.R, sol.T, k)
	p.rect = FromProjection(pts, size.X, size.Y)
	return p.rect
}

func accept(cands [][]r2.Point) ([]r2.Point, bool) {
	if len(cands) != 1 || len(cands[0]) != 4 {
		return nil, false
	}
	return cands[0], true
}
