package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/armplanning/armplan/utils"
)

// Geometry is an entry in the collision world: a labeled primitive shape at a pose. The planner treats
// geometries as opaque handles and only issues the queries below; the intersection math for each pair
// of primitives lives with the implementations in this package.
type Geometry interface {
	// Pose returns the pose of the geometry's center in world coordinates.
	Pose() Pose

	// Label returns the name of the geometry.
	Label() string

	// Transform returns a copy of the geometry premultiplied by the given pose.
	Transform(Pose) Geometry

	// CollidesWith returns whether the geometry intersects the other, with collisionBufferMM of
	// extra clearance treated as a collision.
	CollidesWith(g Geometry, collisionBufferMM float64) (bool, error)

	// DistanceFrom returns the separating distance to the other geometry in mm. Negative values
	// estimate penetration depth.
	DistanceFrom(g Geometry) (float64, error)
}

func newCollisionTypeUnsupportedError(g1, g2 Geometry) error {
	return errors.Errorf("collisions between %T and %T are not supported", g1, g2)
}

// closestPointSegmentPoint returns the closest point on the segment [ap1, ap2] to the point bp.
func closestPointSegmentPoint(ap1, ap2, bp r3.Vector) r3.Vector {
	dir := ap2.Sub(ap1)
	segLen2 := dir.Norm2()
	if segLen2 == 0 {
		return ap1
	}
	t := bp.Sub(ap1).Dot(dir) / segLen2
	if t <= 0 {
		return ap1
	}
	if t >= 1 {
		return ap2
	}
	return ap1.Add(dir.Mul(t))
}

// segmentDistanceToSegment returns the shortest distance between segments [ap1, ap2] and [bp1, bp2].
func segmentDistanceToSegment(ap1, ap2, bp1, bp2 r3.Vector) float64 {
	bestA, bestB := closestPointsSegmentSegment(ap1, ap2, bp1, bp2)
	return bestA.Sub(bestB).Norm()
}

// closestPointsSegmentSegment returns the pair of closest points on two segments.
// Standard clamped closest-point computation; see Ericson, Real-Time Collision Detection, 5.1.9.
func closestPointsSegmentSegment(ap1, ap2, bp1, bp2 r3.Vector) (r3.Vector, r3.Vector) {
	d1 := ap2.Sub(ap1)
	d2 := bp2.Sub(bp1)
	r := ap1.Sub(bp1)
	a := d1.Norm2()
	e := d2.Norm2()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a == 0 && e == 0:
		return ap1, bp1
	case a == 0:
		t = utils.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e == 0 {
			s = utils.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = utils.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = utils.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = utils.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return ap1.Add(d1.Mul(s)), bp1.Add(d2.Mul(t))
}
