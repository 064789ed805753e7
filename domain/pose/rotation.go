package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Identity returns the 3x3 identity matrix.
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul returns m·o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return out
}

// T returns the transpose.
func (m Mat3) T() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Det returns the determinant.
func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Rodrigues converts a rotation vector (axis scaled by angle in radians) to a
// rotation matrix.
func Rodrigues(r r3.Vector) Mat3 {
	theta := r.Norm()
	if theta < 1e-12 {
		return Mat3{
			{1, -r.Z, r.Y},
			{r.Z, 1, -r.X},
			{-r.Y, r.X, 1},
		}
	}
	k := r.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return Mat3{
		{c + k.X*k.X*v, k.X*k.Y*v - k.Z*s, k.X*k.Z*v + k.Y*s},
		{k.Y*k.X*v + k.Z*s, c + k.Y*k.Y*v, k.Y*k.Z*v - k.X*s},
		{k.Z*k.X*v - k.Y*s, k.Z*k.Y*v + k.X*s, c + k.Z*k.Z*v},
	}
}

// RotationVector is the inverse of Rodrigues.
func RotationVector(m Mat3) r3.Vector {
	cosTheta := (m[0][0] + m[1][1] + m[2][2] - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)
	axis := r3.Vector{X: m[2][1] - m[1][2], Y: m[0][2] - m[2][0], Z: m[1][0] - m[0][1]}
	switch {
	case theta < 1e-9:
		return axis.Mul(0.5)
	case math.Pi-theta < 1e-6:
		// sin(theta) ~ 0: recover the axis from the symmetric part.
		x := math.Sqrt(math.Max(0, (m[0][0]+1)/2))
		y := math.Sqrt(math.Max(0, (m[1][1]+1)/2))
		z := math.Sqrt(math.Max(0, (m[2][2]+1)/2))
		switch {
		case x >= y && x >= z:
			y = math.Copysign(y, m[0][1])
			z = math.Copysign(z, m[0][2])
		case y >= z:
			x = math.Copysign(x, m[0][1])
			z = math.Copysign(z, m[1][2])
		default:
			x = math.Copysign(x, m[0][2])
			y = math.Copysign(y, m[1][2])
		}
		return r3.Vector{X: x, Y: y, Z: z}.Normalize().Mul(theta)
	}
	return axis.Mul(theta / (2 * math.Sin(theta)))
}

// Euler decomposes m = Rz(z)·Ry(y)·Rx(x) and returns the angles in degrees.
// It matches the Givens-rotation decomposition used by RQ factorisation for
// proper rotations (|y| < 90°).
func Euler(m Mat3) (x, y, z float64) {
	x = math.Atan2(m[2][1], m[2][2])
	y = math.Atan2(-m[2][0], math.Hypot(m[2][1], m[2][2]))
	z = math.Atan2(m[1][0], m[0][0])
	const deg = 180 / math.Pi
	return x * deg, y * deg, z * deg
}

// FromEuler builds Rz(z)·Ry(y)·Rx(x) from angles in degrees.
func FromEuler(x, y, z float64) Mat3 {
	const rad = math.Pi / 180
	sx, cx := math.Sincos(x * rad)
	sy, cy := math.Sincos(y * rad)
	sz, cz := math.Sincos(z * rad)
	rx := Mat3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := Mat3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := Mat3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return rz.Mul(ry).Mul(rx)
}
