package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDegenerate is returned when the correspondences cannot determine a
	// pose (too few points, non-planar model, collinear image points).
	ErrDegenerate = errors.New("pose: degenerate geometry")
	// ErrNotConverged is returned when the refined reprojection error stays
	// above Solver.MaxRMS.
	ErrNotConverged = errors.New("pose: solve did not converge")
	// ErrBehindCamera is returned when the solution places the marker behind
	// the image plane.
	ErrBehindCamera = errors.New("pose: marker behind camera")
)

const (
	defaultMaxIterations = 30
	defaultMaxRMS        = 25.0
)

// Solution is the result of a successful solve.
type Solution struct {
	RVec r3.Vector // rotation vector, radians
	R    Mat3
	T    r3.Vector
	RMS  float64 // reprojection error, pixels
}

// Solver estimates the rigid transform of a planar point set from its image
// projections. The zero value is ready to use.
type Solver struct {
	MaxIterations int
	MaxRMS        float64
}

// Solve computes the rotation and translation mapping model points into
// camera space so that their projections match img. The initial estimate
// comes from the plane homography and is refined by Levenberg-Marquardt on
// the pixel reprojection error. Solve is deterministic.
func (s Solver) Solve(model []r3.Vector, img []r2.Point, k Intrinsics) (Solution, error) {
	if len(model) < 4 || len(model) != len(img) {
		return Solution{}, fmt.Errorf("%w: need >= 4 matched points, got %d/%d", ErrDegenerate, len(model), len(img))
	}
	if k.Fx <= 0 || k.Fy <= 0 {
		return Solution{}, fmt.Errorf("%w: invalid intrinsics", ErrDegenerate)
	}
	r, t, err := planarInit(model, img, k)
	if err != nil {
		return Solution{}, err
	}
	rvec, t, rms := s.refine(model, img, k, RotationVector(r), t)
	if !finite(rvec) || !finite(t) || math.IsNaN(rms) {
		return Solution{}, fmt.Errorf("%w: non-finite result", ErrNotConverged)
	}
	maxRMS := s.MaxRMS
	if maxRMS <= 0 {
		maxRMS = defaultMaxRMS
	}
	if rms > maxRMS {
		return Solution{}, fmt.Errorf("%w: rms %.2fpx", ErrNotConverged, rms)
	}
	rot := Rodrigues(rvec)
	for _, p := range model {
		if rot.MulVec(p).Add(t).Z <= 0 {
			return Solution{}, ErrBehindCamera
		}
	}
	return Solution{RVec: rvec, R: rot, T: t, RMS: rms}, nil
}

// planarInit decomposes the homography between the model plane and the
// normalised image points into an initial rotation and translation.
func planarInit(model []r3.Vector, img []r2.Point, k Intrinsics) (Mat3, r3.Vector, error) {
	z0 := model[0].Z
	for _, p := range model[1:] {
		if math.Abs(p.Z-z0) > 1e-9 {
			return Mat3{}, r3.Vector{}, fmt.Errorf("%w: model is not planar in z", ErrDegenerate)
		}
	}
	n := len(model)
	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i, p := range model {
		u := (img[i].X - k.Cx) / k.Fx
		v := (img[i].Y - k.Cy) / k.Fy
		a.SetRow(2*i, []float64{p.X, p.Y, 1, 0, 0, 0, -u * p.X, -u * p.Y})
		a.SetRow(2*i+1, []float64{0, 0, 0, p.X, p.Y, 1, -v * p.X, -v * p.Y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Mat3{}, r3.Vector{}, fmt.Errorf("%w: homography: %v", ErrDegenerate, err)
	}
	h1 := r3.Vector{X: h.AtVec(0), Y: h.AtVec(3), Z: h.AtVec(6)}
	h2 := r3.Vector{X: h.AtVec(1), Y: h.AtVec(4), Z: h.AtVec(7)}
	h3 := r3.Vector{X: h.AtVec(2), Y: h.AtVec(5), Z: 1}
	norm := (h1.Norm() + h2.Norm()) / 2
	if norm < 1e-12 || !finite(h1) || !finite(h2) {
		return Mat3{}, r3.Vector{}, fmt.Errorf("%w: homography scale", ErrDegenerate)
	}
	lambda := 1 / norm
	if h3.Z*lambda < 0 {
		lambda = -lambda
	}
	r1, r2v, tp := h1.Mul(lambda), h2.Mul(lambda), h3.Mul(lambda)
	r3v := r1.Cross(r2v)
	rot, err := orthonormalize(Mat3{
		{r1.X, r2v.X, r3v.X},
		{r1.Y, r2v.Y, r3v.Y},
		{r1.Z, r2v.Z, r3v.Z},
	})
	if err != nil {
		return Mat3{}, r3.Vector{}, err
	}
	// The homography absorbs the plane's z offset into its translation column.
	col3 := r3.Vector{X: rot[0][2], Y: rot[1][2], Z: rot[2][2]}
	return rot, tp.Sub(col3.Mul(z0)), nil
}

// orthonormalize returns the rotation closest to m in the Frobenius norm.
func orthonormalize(m Mat3) (Mat3, error) {
	d := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
	var svd mat.SVD
	if !svd.Factorize(d, mat.SVDFull) {
		return Mat3{}, fmt.Errorf("%w: svd failed", ErrDegenerate)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	if mat.Det(&u)*mat.Det(&v) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
	}
	var r mat.Dense
	r.Mul(&u, v.T())
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r.At(i, j)
		}
	}
	return out, nil
}

// refine runs Levenberg-Marquardt over (rvec, t) and returns the refined
// parameters with their RMS reprojection error in pixels.
func (s Solver) refine(model []r3.Vector, img []r2.Point, k Intrinsics, rvec, t r3.Vector) (r3.Vector, r3.Vector, float64) {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	n := len(model)
	params := [6]float64{rvec.X, rvec.Y, rvec.Z, t.X, t.Y, t.Z}
	res := make([]float64, 2*n)
	cost, ok := residuals(model, img, k, params, res)
	if !ok {
		return rvec, t, math.Inf(1)
	}

	jac := mat.NewDense(2*n, 6, nil)
	trial := make([]float64, 2*n)
	lambda := 1e-3
	converged := false
	for iter := 0; iter < maxIter && !converged && cost > 1e-18; iter++ {
		if !jacobian(model, img, k, params, jac) {
			break
		}
		r := mat.NewVecDense(2*n, res)
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var g mat.VecDense
		g.MulVec(jac.T(), r)

		improved := false
		for attempt := 0; attempt < 8; attempt++ {
			a := mat.NewSymDense(6, nil)
			for i := 0; i < 6; i++ {
				for j := i; j < 6; j++ {
					a.SetSym(i, j, jtj.At(i, j))
				}
				a.SetSym(i, i, jtj.At(i, i)*(1+lambda)+1e-12)
			}
			var chol mat.Cholesky
			if !chol.Factorize(a) {
				lambda *= 10
				continue
			}
			var delta mat.VecDense
			if err := chol.SolveVecTo(&delta, &g); err != nil {
				lambda *= 10
				continue
			}
			var next [6]float64
			for i := range next {
				next[i] = params[i] - delta.AtVec(i)
			}
			c, ok := residuals(model, img, k, next, trial)
			if ok && c < cost {
				step := mat.Norm(&delta, 2)
				params = next
				copy(res, trial)
				gain := cost - c
				cost = c
				lambda = math.Max(lambda/10, 1e-9)
				improved = true
				converged = step < 1e-10 || gain < 1e-12*cost
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
	}
	return r3.Vector{X: params[0], Y: params[1], Z: params[2]},
		r3.Vector{X: params[3], Y: params[4], Z: params[5]},
		math.Sqrt(cost / float64(n))
}

// residuals fills out with projected-minus-observed pixel offsets and returns
// the sum of squares. ok is false when a point falls behind the camera.
func residuals(model []r3.Vector, img []r2.Point, k Intrinsics, p [6]float64, out []float64) (float64, bool) {
	rot := Rodrigues(r3.Vector{X: p[0], Y: p[1], Z: p[2]})
	t := r3.Vector{X: p[3], Y: p[4], Z: p[5]}
	var sum float64
	for i, m := range model {
		c := rot.MulVec(m).Add(t)
		if c.Z <= 1e-9 {
			return math.Inf(1), false
		}
		q := k.Project(c)
		dx, dy := q.X-img[i].X, q.Y-img[i].Y
		out[2*i], out[2*i+1] = dx, dy
		sum += dx*dx + dy*dy
	}
	return sum, true
}

// jacobian fills jac with central-difference derivatives of the residuals.
func jacobian(model []r3.Vector, img []r2.Point, k Intrinsics, p [6]float64, jac *mat.Dense) bool {
	rows, _ := jac.Dims()
	plus := make([]float64, rows)
	minus := make([]float64, rows)
	for j := 0; j < 6; j++ {
		h := 1e-6
		if j >= 3 {
			h = 1e-6 * math.Max(1, math.Abs(p[j]))
		}
		pp, pm := p, p
		pp[j] += h
		pm[j] -= h
		if _, ok := residuals(model, img, k, pp, plus); !ok {
			return false
		}
		if _, ok := residuals(model, img, k, pm, minus); !ok {
			return false
		}
		for i := 0; i < rows; i++ {
			jac.Set(i, j, (plus[i]-minus[i])/(2*h))
		}
	}
	return true
}

func finite(v r3.Vector) bool {
	for _, f := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
