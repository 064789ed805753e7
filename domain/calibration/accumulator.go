package calibration

import (
	"errors"

	"github.com/golang/geo/r3"
	"github.com/soocke/headtrack-go/domain/pose"
	"gonum.org/v1/gonum/mat"
)

// ErrNotEnoughSamples is returned when the samples seen so far do not pin
// down the offset, typically because the head barely rotated.
var ErrNotEnoughSamples = errors.New("calibration: not enough rotation in samples")

const (
	minSamples = 3
	maxCond    = 1e10
)

// Accumulator fits the head-centre offset from streamed pose samples.
//
// With the offset h in marker space and the pivot c in camera space fixed,
// every sample satisfies t = c + R·h. Stacking [R | I]·[h; c] = t gives a
// linear least-squares problem in six unknowns whose normal equations are
// summed incrementally.
type Accumulator struct {
	ata [6][6]float64
	atb [6]float64
	n   int
}

// Reset forgets all samples.
func (a *Accumulator) Reset() { *a = Accumulator{} }

// Count returns the number of samples added since the last reset.
func (a *Accumulator) Count() int { return a.n }

// Add folds one rotation/translation sample into the normal equations.
func (a *Accumulator) Add(rt pose.RT) {
	// Row i of H = [R | I] is (R[i][0], R[i][1], R[i][2], e_i).
	var h [3][6]float64
	for i := 0; i < 3; i++ {
		h[i][0], h[i][1], h[i][2] = rt.R[i][0], rt.R[i][1], rt.R[i][2]
		h[i][3+i] = 1
	}
	t := [3]float64{rt.T.X, rt.T.Y, rt.T.Z}
	for r := 0; r < 3; r++ {
		for i := 0; i < 6; i++ {
			if h[r][i] == 0 {
				continue
			}
			for j := 0; j < 6; j++ {
				a.ata[i][j] += h[r][i] * h[r][j]
			}
			a.atb[i] += h[r][i] * t[r]
		}
	}
	a.n++
}

// Estimate solves for the offset.
func (a *Accumulator) Estimate() (r3.Vector, error) {
	if a.n < minSamples {
		return r3.Vector{}, ErrNotEnoughSamples
	}
	sym := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			sym.SetSym(i, j, a.ata[i][j])
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sym) || chol.Cond() > maxCond {
		return r3.Vector{}, ErrNotEnoughSamples
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(6, a.atb[:])); err != nil {
		return r3.Vector{}, ErrNotEnoughSamples
	}
	return r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, nil
}
