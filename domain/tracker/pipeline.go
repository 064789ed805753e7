package tracker

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/domain/capture"
	"github.com/soocke/headtrack-go/domain/pose"
	"github.com/soocke/headtrack-go/domain/roi"
)

// poseSolver is the subset of pose.Solver the pipeline needs.
type poseSolver interface {
	Solve(model []r3.Vector, img []r2.Point, k pose.Intrinsics) (pose.Solution, error)
}

type failure int

const (
	failNone failure = iota
	failDetect
	failSolve
)

// outcome describes one processed frame.
type outcome struct {
	fail     failure
	err      error
	fromROI  bool
	corners  []r2.Point
	centroid *r2.Point
}

// params are the per-session values the pipeline reads every frame.
type params struct {
	fov          float64
	halfSize     float64
	searchWindow float64
	scale        float64
}

// pipeline runs detect, solve and predict for one frame. It is owned by the
// capture loop.
type pipeline struct {
	params params
	roi    *roi.Predictor
	solver poseSolver
	store  *pose.Store
	offset func() r3.Vector
}

// step processes img. The published pose changes only when both detection
// and solve succeed; any failure clears the search region.
func (p *pipeline) step(img image.Image) outcome {
	gray := capture.ToGray(img)
	defer capture.RecycleGray(gray)
	size := gray.Bounds().Size()

	det, ok := p.roi.Detect(gray)
	if !ok {
		p.roi.Reset()
		return outcome{fail: failDetect}
	}

	k := pose.NewIntrinsics(size.X, size.Y, p.params.fov)
	model := pose.NewModel(p.params.halfSize, p.offset())
	sol, err := p.solver.Solve(model.Points(), det.Corners, k)
	if err != nil {
		p.roi.Reset()
		return outcome{fail: failSolve, err: err, corners: det.Corners, fromROI: det.FromROI}
	}

	p.roi.Predict(model, p.params.searchWindow, sol, k, size)
	p.store.Publish(pose.FromSolution(sol, p.params.scale), pose.RT{R: sol.R, T: sol.T})

	c := pose.ProjectPoints([]r3.Vector{model.Centroid()}, sol.R, sol.T, k)[0]
	return outcome{corners: det.Corners, centroid: &c, fromROI: det.FromROI}
}
