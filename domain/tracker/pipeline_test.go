package tracker

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/domain/marker"
	"github.com/soocke/headtrack-go/domain/pose"
	"github.com/soocke/headtrack-go/domain/roi"
)

var testParams = params{fov: 56, halfSize: 40, searchWindow: 1.3, scale: 0.1}

// truth is the head pose all synthetic frames are rendered from.
var (
	truthR = pose.FromEuler(6, -12, 4)
	truthT = r3.Vector{X: 30, Y: -20, Z: 500}
)

func truthCorners(w, h int) []r2.Point {
	k := pose.NewIntrinsics(w, h, testParams.fov)
	m := pose.NewModel(testParams.halfSize, r3.Vector{})
	return pose.ProjectPoints(m.Points(), truthR, truthT, k)
}

func renderTruth(w, h int) *image.Gray {
	c := truthCorners(w, h)
	return marker.Render(marker.DefaultPattern, [4]r2.Point{c[0], c[1], c[2], c[3]}, w, h)
}

// fullFrameDetector only finds the marker on full frames, and only while
// found is set.
type fullFrameDetector struct {
	frameW  int
	found   bool
	corners []r2.Point
	crops   int
}

func (d *fullFrameDetector) Detect(img *image.Gray, _, _ float64) [][]r2.Point {
	if img.Bounds().Dx() < d.frameW {
		d.crops++
		return nil
	}
	if !d.found {
		return nil
	}
	return [][]r2.Point{append([]r2.Point(nil), d.corners...)}
}

type failingSolver struct{}

func (failingSolver) Solve([]r3.Vector, []r2.Point, pose.Intrinsics) (pose.Solution, error) {
	return pose.Solution{}, pose.ErrNotConverged
}

func newTestPipeline(d marker.Detector, s poseSolver, store *pose.Store) *pipeline {
	return &pipeline{
		params: testParams,
		roi:    roi.NewPredictor(d, 0.05, 0.3),
		solver: s,
		store:  store,
		offset: func() r3.Vector { return r3.Vector{} },
	}
}

func TestPipeline_LastKnownGood(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	det := &fullFrameDetector{frameW: 640, found: true, corners: truthCorners(640, 480)}
	var store pose.Store
	p := newTestPipeline(det, pose.Solver{}, &store)

	if o := p.step(frame); o.fail != failNone {
		t.Fatalf("first frame should solve, got %v (%v)", o.fail, o.err)
	}
	good := store.Pose()
	if good == (pose.Pose{}) {
		t.Fatalf("pose not published")
	}
	if !roi.Valid(p.roi.Rect()) {
		t.Fatalf("expected a predicted ROI, got %v", p.roi.Rect())
	}

	det.found = false
	if o := p.step(frame); o.fail != failDetect {
		t.Fatalf("expected detect failure, got %v", o.fail)
	}
	if got := store.Pose(); got != good {
		t.Fatalf("pose changed after failed frame: %+v vs %+v", got, good)
	}
	if p.roi.Rect() != roi.Sentinel {
		t.Fatalf("ROI must be cleared after failure, got %v", p.roi.Rect())
	}
	if det.crops != 1 {
		t.Fatalf("expected one ROI attempt before fallback, got %d", det.crops)
	}
}

func TestPipeline_FallbackAfterROIMiss(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	det := &fullFrameDetector{frameW: 640, found: true, corners: truthCorners(640, 480)}
	var store pose.Store
	p := newTestPipeline(det, pose.Solver{}, &store)
	p.step(frame)
	o := p.step(frame)
	if o.fail != failNone || o.fromROI {
		t.Fatalf("expected full-frame fallback success, got fail=%v fromROI=%v", o.fail, o.fromROI)
	}
}

func TestPipeline_SolveFailureKeepsPose(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	det := &fullFrameDetector{frameW: 640, found: true, corners: truthCorners(640, 480)}
	var store pose.Store
	p := newTestPipeline(det, pose.Solver{}, &store)
	p.step(frame)
	good := store.Pose()
	goodRT, _ := store.RT()

	p.solver = failingSolver{}
	o := p.step(frame)
	if o.fail != failSolve || !errors.Is(o.err, pose.ErrNotConverged) {
		t.Fatalf("expected solve failure, got %v %v", o.fail, o.err)
	}
	if store.Pose() != good {
		t.Fatalf("pose changed after solve failure")
	}
	if rt, _ := store.RT(); rt != goodRT {
		t.Fatalf("RT changed after solve failure")
	}
	if p.roi.Rect() != roi.Sentinel {
		t.Fatalf("ROI must be cleared after solve failure")
	}
}

func TestPipeline_RenderedMarkerEndToEnd(t *testing.T) {
	frame := renderTruth(640, 480)
	var store pose.Store
	p := newTestPipeline(marker.NewBorderDetector(0), pose.Solver{}, &store)

	o := p.step(frame)
	if o.fail != failNone {
		t.Fatalf("solve failed: %v %v", o.fail, o.err)
	}
	if o.fromROI {
		t.Fatalf("first frame cannot come from the ROI")
	}
	want := pose.FromSolution(pose.Solution{R: truthR, T: truthT}, testParams.scale)
	got := store.Pose()
	for i, d := range []float64{5, 5, 5, 1, 1, 2} {
		if diff := math.Abs(got.Array()[i] - want.Array()[i]); diff > d {
			t.Fatalf("component %d: got %.3f want %.3f", i, got.Array()[i], want.Array()[i])
		}
	}

	c := truthCorners(640, 480)
	for i := range c {
		if math.Hypot(o.corners[i].X-c[i].X, o.corners[i].Y-c[i].Y) > 1.5 {
			t.Fatalf("corner %d off: %v vs %v", i, o.corners[i], c[i])
		}
	}

	o = p.step(frame)
	if o.fail != failNone || !o.fromROI {
		t.Fatalf("second frame should hit the ROI, got fail=%v fromROI=%v", o.fail, o.fromROI)
	}
	r := p.roi.Rect()
	if o.centroid == nil || !(image.Pt(int(o.centroid.X), int(o.centroid.Y)).In(r)) {
		t.Fatalf("centroid %v outside ROI %v", o.centroid, r)
	}
}
