package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// box is a collision geometry representing a 3D rectangular prism, fully defined by a pose and half sizes.
type box struct {
	pose     Pose
	halfSize [3]float64
	label    string
}

// NewBox instantiates a new box Geometry with the given center pose and full XYZ dimensions in mm.
func NewBox(pose Pose, dims r3.Vector, label string) (Geometry, error) {
	// Negative dimensions not allowed. Zero dimensions are allowed for planes, bounding boxes, etc.
	if dims.X < 0 || dims.Y < 0 || dims.Z < 0 {
		return nil, fmt.Errorf("box dimensions can not be negative, got %v", dims)
	}
	return &box{
		pose:     pose,
		halfSize: [3]float64{dims.X / 2, dims.Y / 2, dims.Z / 2},
		label:    label,
	}, nil
}

func (b *box) Pose() Pose {
	return b.pose
}

func (b *box) Label() string {
	return b.label
}

func (b *box) String() string {
	pt := b.pose.Point()
	return fmt.Sprintf("Type: Box | Position: X:%.1f, Y:%.1f, Z:%.1f | Dims: X:%.0f, Y:%.0f, Z:%.0f",
		pt.X, pt.Y, pt.Z, 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

func (b *box) Transform(toPremultiply Pose) Geometry {
	return &box{
		pose:     Compose(toPremultiply, b.pose),
		halfSize: b.halfSize,
		label:    b.label,
	}
}

func (b *box) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := b.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

func (b *box) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *box:
		return boxVsBoxDistance(b, other), nil
	case *sphere:
		return sphereVsBoxDistance(other, b), nil
	case *capsule:
		return capsuleVsBoxDistance(other, b), nil
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(b, g)
	}
}

// axes returns the box's local coordinate axes in world frame.
func (b *box) axes() [3]r3.Vector {
	q := b.pose.Orientation()
	return [3]r3.Vector{
		QuatRotate(q, r3.Vector{X: 1}),
		QuatRotate(q, r3.Vector{Y: 1}),
		QuatRotate(q, r3.Vector{Z: 1}),
	}
}

// boxVsBoxDistance takes two boxes and returns a number.  If the number is nonpositive it represents the magnitude
// of the penetration between the two boxes along the least-penetrated separating axis.  If the number is positive
// it represents a lower bound on the separation distance; zero separation on every candidate axis means contact.
// Reference: https://comp.graphics.algorithms.narkive.com/jRAgjIUh/obb-obb-distance-calculation
func boxVsBoxDistance(a, b *box) float64 {
	centerDist := b.pose.Point().Sub(a.pose.Point())
	rmA, rmB := a.axes(), b.axes()

	// iterate over axes of box
	max := math.Inf(-1)
	for i := 0; i < 3; i++ {
		// project onto face of box A
		if separation, ok := separatingAxisDistance(centerDist, rmA[i], rmA, rmB, a.halfSize, b.halfSize); ok && separation > max {
			max = separation
		}

		// project onto face of box B
		if separation, ok := separatingAxisDistance(centerDist, rmB[i], rmA, rmB, a.halfSize, b.halfSize); ok && separation > max {
			max = separation
		}

		// project onto edge pairs
		for j := 0; j < 3; j++ {
			crossAxis := rmA[i].Cross(rmB[j])
			if separation, ok := separatingAxisDistance(centerDist, crossAxis, rmA, rmB, a.halfSize, b.halfSize); ok && separation > max {
				max = separation
			}
		}
	}
	return max
}

// separatingAxisDistance projects both boxes onto the candidate axis and returns the gap between the
// projection intervals. Degenerate (near-zero) axes from parallel edge cross products are skipped.
func separatingAxisDistance(centerDist, axis r3.Vector, rmA, rmB [3]r3.Vector, halfA, halfB [3]float64) (float64, bool) {
	norm := axis.Norm()
	if norm < defaultAngleEpsilon {
		return 0, false
	}
	unit := axis.Mul(1 / norm)

	sum := math.Abs(centerDist.Dot(unit))
	for i := 0; i < 3; i++ {
		sum -= math.Abs(rmA[i].Mul(halfA[i]).Dot(unit))
		sum -= math.Abs(rmB[i].Mul(halfB[i]).Dot(unit))
	}
	return sum, true
}

// pointVsBoxDistance returns the distance from a point to the surface of the box. The distance is
// negative if the point lies inside the box.
func pointVsBoxDistance(pt r3.Vector, b *box) float64 {
	// transform the point into the box's local frame
	q := quat.Conj(b.pose.Orientation())
	local := QuatRotate(q, pt.Sub(b.pose.Point()))

	dx := math.Abs(local.X) - b.halfSize[0]
	dy := math.Abs(local.Y) - b.halfSize[1]
	dz := math.Abs(local.Z) - b.halfSize[2]

	if dx <= 0 && dy <= 0 && dz <= 0 {
		// inside; depth is distance to the nearest face
		return math.Max(dx, math.Max(dy, dz))
	}
	outside := r3.Vector{X: math.Max(dx, 0), Y: math.Max(dy, 0), Z: math.Max(dz, 0)}
	return outside.Norm()
}

// QuatRotate rotates vector v by the given unit quaternion.
func QuatRotate(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}
