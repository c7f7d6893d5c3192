package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// If a quaternion's imaginary norm is below this, it is treated as a pure-real (no rotation) quaternion.
const defaultAngleEpsilon = 1e-6

// R4AA represents an R4 axis angle; a rotation of Theta radians about the unit axis (RX, RY, RZ).
type R4AA struct {
	Theta float64
	RX    float64
	RY    float64
	RZ    float64
}

// NewZeroR4AA creates an empty R4AA struct with a unit axis, which is needed for correct behavior of ToQuat.
func NewZeroR4AA() *R4AA {
	return &R4AA{0, 0, 0, 1}
}

// Normalize scales the axis of the R4AA to unit length.
func (aa *R4AA) Normalize() {
	norm := math.Sqrt(aa.RX*aa.RX + aa.RY*aa.RY + aa.RZ*aa.RZ)
	if norm == 0 {
		aa.RZ = 1
		return
	}
	aa.RX /= norm
	aa.RY /= norm
	aa.RZ /= norm
}

// ToQuat converts an R4 axis angle to a unit quaternion.
func (aa *R4AA) ToQuat() quat.Number {
	sinA := math.Sin(aa.Theta / 2)
	// Ensure that point xyz is on the unit sphere
	aaCopy := *aa
	aaCopy.Normalize()

	w := math.Cos(aa.Theta / 2)
	x := aaCopy.RX * sinA
	y := aaCopy.RY * sinA
	z := aaCopy.RZ * sinA

	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// QuatToR4AA converts a unit quaternion to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR4AA(q quat.Number) R4AA {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < defaultAngleEpsilon {
		return R4AA{angle, 0, 0, 1}
	}
	return R4AA{angle, q.Imag / denom, q.Jmag / denom, q.Kmag / denom}
}

// QuatToR3AA converts a unit quaternion to an R3 axis angle, where the rotation angle is folded into the
// magnitude of the axis.
func QuatToR3AA(q quat.Number) [3]float64 {
	aa := QuatToR4AA(q)
	return [3]float64{aa.Theta * aa.RX, aa.Theta * aa.RY, aa.Theta * aa.RZ}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the sum of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip multiplies a quaternion by -1, returning a quaternion representing the same orientation
// in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuatAlmostEqual compares two quaternions representing orientations, accounting for the double cover.
func QuatAlmostEqual(a, b quat.Number, epsilon float64) bool {
	if quatDot(a, b) < 0 {
		b = Flip(b)
	}
	diff := quat.Sub(a, b)
	return math.Abs(diff.Real) < epsilon && Norm(diff) < epsilon
}

// AngleBetween returns the rotation angle, in radians, needed to take orientation a to orientation b.
func AngleBetween(a, b quat.Number) float64 {
	between := quat.Mul(b, quat.Conj(a))
	return math.Abs(QuatToR4AA(between).Theta)
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func normalizeQuat(q quat.Number) quat.Number {
	length := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/length, q)
}
