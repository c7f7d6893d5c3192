// Package spatialmath defines spatial mathematical operations: poses as dual quaternions,
// orientations, and collision geometries.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid 6DoF transform: a 3D position in mm together with a unit quaternion orientation.
// The orientation returned by any Pose is always normalized.
type Pose interface {
	Point() r3.Vector
	Orientation() quat.Number
}

// dualQuaternion defines functions to perform rigid transformations in 3D. The dual quaternion is
// kept unit-length; the dual part encodes half the translation rotated by the real part.
type dualQuaternion struct {
	dualquat.Number
}

// NewZeroPose returns a pose at the origin with an identity orientation.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes a point and an axis angle and returns a Pose.
func NewPose(p r3.Vector, aa *R4AA) Pose {
	q := newDualQuaternion()
	if aa != nil {
		q.Real = aa.ToQuat()
	}
	q.setTranslation(p)
	return q
}

// NewPoseFromPoint takes a point and stuffs it into a Pose with an identity orientation.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.setTranslation(point)
	return q
}

// NewPoseFromOrientation takes an axis angle and returns a Pose at the origin with that orientation.
func NewPoseFromOrientation(aa *R4AA) Pose {
	q := newDualQuaternion()
	q.Real = aa.ToQuat()
	return q
}

// NewPoseFromQuaternion creates a Pose from a point and an orientation quaternion, which is
// normalized if it is not already.
func NewPoseFromQuaternion(point r3.Vector, orientation quat.Number) Pose {
	q := newDualQuaternion()
	q.Real = normalizeQuat(orientation)
	q.setTranslation(point)
	return q
}

func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

func newDualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return &dualQuaternion{q.Number}
	}
	q := newDualQuaternion()
	q.Real = p.Orientation()
	q.setTranslation(p.Point())
	return q
}

// setTranslation correctly sets the translation part of the dual quaternion against the rotation.
func (q *dualQuaternion) setTranslation(p r3.Vector) {
	q.Dual = quat.Number{Imag: p.X / 2, Jmag: p.Y / 2, Kmag: p.Z / 2}
	q.Dual = quat.Mul(q.Dual, q.Real)
}

// Point multiplies the dual quaternion by its own conjugate to recover the translation.
func (q *dualQuaternion) Point() r3.Vector {
	tq := dualquat.Mul(q.Number, dualquat.Conj(q.Number))
	return r3.Vector{X: tq.Dual.Imag, Y: tq.Dual.Jmag, Z: tq.Dual.Kmag}
}

// Orientation returns the rotation quaternion.
func (q *dualQuaternion) Orientation() quat.Number {
	return q.Real
}

func (q *dualQuaternion) String() string {
	pt := q.Point()
	aa := QuatToR4AA(q.Real)
	return fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f, Theta:%.3f about (%.2f, %.2f, %.2f)",
		pt.X, pt.Y, pt.Z, aa.Theta, aa.RX, aa.RY, aa.RZ)
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
// It converts the poses to dual quaternions and multiplies them together, normalizing the result.
func Compose(a, b Pose) Pose {
	result := &dualQuaternion{dualquat.Mul(newDualQuaternionFromPose(a).Number, newDualQuaternionFromPose(b).Number)}

	// Normalization to prevent rounding errors from building up over repeated composition
	if vecLen := quat.Abs(result.Real); vecLen != 1 {
		result.Number = dualquat.Scale(1/vecLen, result.Number)
	}
	return result
}

// PoseInverse returns the inverse of a Pose. If C = Compose(A, B), then Compose(C, PoseInverse(B)) == A.
func PoseInverse(p Pose) Pose {
	q := newDualQuaternionFromPose(p)
	return &dualQuaternion{dualquat.ConjQuat(q.Number)}
}

// PoseBetween returns the difference between two poses; that is, the pose P such that Compose(a, P) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDelta returns the difference between two poses as a 6-vector: the XYZ translation delta in mm,
// followed by the R3 axis angle taking the orientation of a to the orientation of b.
func PoseDelta(a, b Pose) []float64 {
	ret := make([]float64, 6)

	ptA, ptB := a.Point(), b.Point()
	ret[0] = ptB.X - ptA.X
	ret[1] = ptB.Y - ptA.Y
	ret[2] = ptB.Z - ptA.Z

	quatBetween := quat.Mul(b.Orientation(), quat.Conj(a.Orientation()))
	aa := QuatToR3AA(quatBetween)
	ret[3] = aa[0]
	ret[4] = aa[1]
	ret[5] = aa[2]
	return ret
}

// Interpolate returns a pose a fraction of the way along the screw motion between p1 and p2.
// The underlying dual quaternion power (ScLERP) traces the constant-screw path: simultaneous
// rotation about and translation along a single fixed axis. by=0 yields p1, by=1 yields p2.
func Interpolate(p1, p2 Pose, by float64) Pose {
	q1 := newDualQuaternionFromPose(p1)
	q2 := newDualQuaternionFromPose(p2)

	// Account for the quaternion double cover so the screw takes the short way around.
	if quatDot(q1.Real, q2.Real) < 0 {
		q2.Number = dualquat.Scale(-1, q2.Number)
	}

	rel := dualquat.Mul(dualquat.ConjQuat(q1.Number), q2.Number)
	step := dualquat.PowReal(rel, by)
	result := &dualQuaternion{dualquat.Mul(q1.Number, step)}
	if vecLen := quat.Abs(result.Real); vecLen != 1 {
		result.Number = dualquat.Scale(1/vecLen, result.Number)
	}
	return result
}

// PoseAlmostCoincident checks if two poses' translations are within 0.1mm of each other.
func PoseAlmostCoincident(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-1)
}

// PoseAlmostCoincidentEps checks if two poses' translations are within epsilon mm of each other.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// PoseAlmostEqual checks if two poses are within a very small epsilon of each other in both
// position and orientation.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps checks if two poses are within epsilon of each other in both position and orientation.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PoseAlmostCoincidentEps(a, b, epsilon) && QuatAlmostEqual(a.Orientation(), b.Orientation(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vectors and returns if the difference between them is less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
