package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeBox(t *testing.T, center r3.Vector, dims r3.Vector) Geometry {
	t.Helper()
	b, err := NewBox(NewPoseFromPoint(center), dims, "box")
	test.That(t, err, test.ShouldBeNil)
	return b
}

func TestBoxVsBox(t *testing.T) {
	a := makeBox(t, r3.Vector{}, r3.Vector{X: 2, Y: 2, Z: 2})

	// separated along X by 3 center-to-center, so 1mm of gap
	b := makeBox(t, r3.Vector{X: 3}, r3.Vector{X: 2, Y: 2, Z: 2})
	dist, err := a.DistanceFrom(b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 1)

	collides, err := a.CollidesWith(b, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)

	// the same gap closes when the collision buffer exceeds it
	collides, err = a.CollidesWith(b, 1.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)

	// overlapping boxes report penetration
	c := makeBox(t, r3.Vector{X: 1.5}, r3.Vector{X: 2, Y: 2, Z: 2})
	dist, err = a.DistanceFrom(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, -0.5)
}

func TestBoxVsRotatedBox(t *testing.T) {
	a := makeBox(t, r3.Vector{}, r3.Vector{X: 2, Y: 2, Z: 2})

	// a box rotated 45 degrees about Z presents its edge; the diagonal half-width is sqrt(2)
	rotated, err := NewBox(NewPose(r3.Vector{X: 3}, &R4AA{Theta: math.Pi / 4, RZ: 1}), r3.Vector{X: 2, Y: 2, Z: 2}, "rot")
	test.That(t, err, test.ShouldBeNil)
	dist, err := a.DistanceFrom(rotated)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 3-1-math.Sqrt2, 1e-6)
}

func TestSphereDistances(t *testing.T) {
	s1, err := NewSphere(NewPoseFromPoint(r3.Vector{}), 1, "s1")
	test.That(t, err, test.ShouldBeNil)
	s2, err := NewSphere(NewPoseFromPoint(r3.Vector{X: 5}), 2, "s2")
	test.That(t, err, test.ShouldBeNil)

	dist, err := s1.DistanceFrom(s2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 2)

	b := makeBox(t, r3.Vector{X: 4}, r3.Vector{X: 2, Y: 2, Z: 2})
	dist, err = s1.DistanceFrom(b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 2)

	// sphere center inside the box
	dist, err = s1.DistanceFrom(makeBox(t, r3.Vector{}, r3.Vector{X: 4, Y: 4, Z: 4}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldBeLessThan, 0)
}

func TestCapsuleDistances(t *testing.T) {
	// two parallel vertical capsules 10 apart, radius 1 each
	c1, err := NewCapsule(NewPoseFromPoint(r3.Vector{}), 1, 10, "c1")
	test.That(t, err, test.ShouldBeNil)
	c2, err := NewCapsule(NewPoseFromPoint(r3.Vector{X: 10}), 1, 10, "c2")
	test.That(t, err, test.ShouldBeNil)

	dist, err := c1.DistanceFrom(c2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 8)

	// sphere off the top end cap: closest segment point is the top endpoint at Z=4
	s, err := NewSphere(NewPoseFromPoint(r3.Vector{Z: 10}), 1, "s")
	test.That(t, err, test.ShouldBeNil)
	dist, err = c1.DistanceFrom(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 4)

	// box beside the capsule
	b := makeBox(t, r3.Vector{X: 5}, r3.Vector{X: 2, Y: 2, Z: 2})
	dist, err = c1.DistanceFrom(b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 3, 1e-4)

	// capsule length must cover its end caps
	_, err = NewCapsule(NewZeroPose(), 2, 3, "bad")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGeometryTransform(t *testing.T) {
	b := makeBox(t, r3.Vector{X: 1}, r3.Vector{X: 2, Y: 2, Z: 2})
	moved := b.Transform(NewPoseFromPoint(r3.Vector{Y: 5}))
	test.That(t, moved.Pose().Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, moved.Pose().Point().Y, test.ShouldAlmostEqual, 5)
	test.That(t, moved.Label(), test.ShouldEqual, b.Label())

	// rotating the world frame moves the box's offset with it
	rotated := b.Transform(NewPoseFromOrientation(&R4AA{Theta: math.Pi / 2, RZ: 1}))
	test.That(t, rotated.Pose().Point().X, test.ShouldAlmostEqual, 0, 1e-8)
	test.That(t, rotated.Pose().Point().Y, test.ShouldAlmostEqual, 1, 1e-8)
}
