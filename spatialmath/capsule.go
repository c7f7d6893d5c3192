package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// capsule is a collision geometry representing a sphere-swept line segment: a cylinder of the given
// radius capped with hemispheres. The segment runs along the local Z axis of the capsule's pose,
// and length is the total length including both end caps.
type capsule struct {
	pose   Pose
	radius float64
	length float64
	label  string

	// segA and segB are the world-frame endpoints of the central segment, memoized at construction.
	segA r3.Vector
	segB r3.Vector
}

// NewCapsule instantiates a new capsule Geometry with the given center pose, radius, and total
// length (including end caps) in mm.
func NewCapsule(pose Pose, radius, length float64, label string) (Geometry, error) {
	if radius <= 0 || length <= 0 {
		return nil, fmt.Errorf("capsule radius and length must be positive, got %f, %f", radius, length)
	}
	if length < 2*radius {
		return nil, fmt.Errorf("capsule length %f must be at least twice the radius %f", length, radius)
	}
	return newCapsule(pose, radius, length, label), nil
}

func newCapsule(pose Pose, radius, length float64, label string) *capsule {
	halfSeg := QuatRotate(pose.Orientation(), r3.Vector{Z: length/2 - radius})
	center := pose.Point()
	return &capsule{
		pose:   pose,
		radius: radius,
		length: length,
		label:  label,
		segA:   center.Sub(halfSeg),
		segB:   center.Add(halfSeg),
	}
}

func (c *capsule) Pose() Pose {
	return c.pose
}

func (c *capsule) Label() string {
	return c.label
}

func (c *capsule) String() string {
	pt := c.pose.Point()
	return fmt.Sprintf("Type: Capsule | Position: X:%.1f, Y:%.1f, Z:%.1f | Radius: %.0f | Length: %.0f",
		pt.X, pt.Y, pt.Z, c.radius, c.length)
}

func (c *capsule) Transform(toPremultiply Pose) Geometry {
	return newCapsule(Compose(toPremultiply, c.pose), c.radius, c.length, c.label)
}

func (c *capsule) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := c.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

func (c *capsule) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *capsule:
		return capsuleVsCapsuleDistance(c, other), nil
	case *sphere:
		return capsuleVsSphereDistance(c, other), nil
	case *box:
		return capsuleVsBoxDistance(c, other), nil
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(c, g)
	}
}

func capsuleVsCapsuleDistance(a, b *capsule) float64 {
	return segmentDistanceToSegment(a.segA, a.segB, b.segA, b.segB) - (a.radius + b.radius)
}

func capsuleVsSphereDistance(c *capsule, s *sphere) float64 {
	closest := closestPointSegmentPoint(c.segA, c.segB, s.pose.Point())
	return closest.Sub(s.pose.Point()).Norm() - (c.radius + s.radius)
}

// capsuleVsBoxDistance minimizes the signed point-to-box distance along the capsule's central
// segment, then subtracts the radius. The segment is coarsely sampled to bracket the minimum,
// since the signed distance is only convex outside the box, and the bracket is then refined
// with a golden-section search.
func capsuleVsBoxDistance(c *capsule, b *box) float64 {
	const samples = 16
	seg := c.segB.Sub(c.segA)

	bestT, bestDist := 0.0, math.Inf(1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		d := pointVsBoxDistance(c.segA.Add(seg.Mul(t)), b)
		if d < bestDist {
			bestT, bestDist = t, d
		}
	}

	lo := math.Max(0, bestT-1.0/samples)
	hi := math.Min(1, bestT+1.0/samples)
	return goldenSectionMin(func(t float64) float64 {
		return pointVsBoxDistance(c.segA.Add(seg.Mul(t)), b)
	}, lo, hi) - c.radius
}

// goldenSectionMin finds the minimum of f on [lo, hi] to a fixed tolerance.
func goldenSectionMin(f func(float64) float64, lo, hi float64) float64 {
	const (
		invPhi = 0.6180339887498949
		tol    = 1e-6
	)
	a, b := lo, hi
	c := b - (b-a)*invPhi
	d := a + (b-a)*invPhi
	fc, fd := f(c), f(d)
	for b-a > tol {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - (b-a)*invPhi
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + (b-a)*invPhi
			fd = f(d)
		}
	}
	return math.Min(fc, fd)
}
