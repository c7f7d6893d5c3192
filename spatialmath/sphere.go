package spatialmath

import (
	"fmt"
	"math"
)

// sphere is a collision geometry representing a sphere, defined by a center pose and a radius.
type sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new sphere Geometry with the given center pose and radius in mm.
func NewSphere(pose Pose, radius float64, label string) (Geometry, error) {
	if radius < 0 {
		return nil, fmt.Errorf("sphere radius can not be negative, got %f", radius)
	}
	return &sphere{pose: pose, radius: radius, label: label}, nil
}

func (s *sphere) Pose() Pose {
	return s.pose
}

func (s *sphere) Label() string {
	return s.label
}

func (s *sphere) String() string {
	pt := s.pose.Point()
	return fmt.Sprintf("Type: Sphere | Position: X:%.1f, Y:%.1f, Z:%.1f | Radius: %.0f", pt.X, pt.Y, pt.Z, s.radius)
}

func (s *sphere) Transform(toPremultiply Pose) Geometry {
	return &sphere{
		pose:   Compose(toPremultiply, s.pose),
		radius: s.radius,
		label:  s.label,
	}
}

func (s *sphere) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := s.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

func (s *sphere) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *sphere:
		return sphereVsSphereDistance(s, other), nil
	case *box:
		return sphereVsBoxDistance(s, other), nil
	case *capsule:
		return capsuleVsSphereDistance(other, s), nil
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(s, g)
	}
}

func sphereVsSphereDistance(a, b *sphere) float64 {
	return a.pose.Point().Sub(b.pose.Point()).Norm() - (a.radius + b.radius)
}

func sphereVsBoxDistance(s *sphere, b *box) float64 {
	return pointVsBoxDistance(s.pose.Point(), b) - s.radius
}
