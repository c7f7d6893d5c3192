package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicPoseConstruction(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})

	p = NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	aa := &R4AA{Theta: math.Pi / 2, RZ: 1}
	p = NewPose(r3.Vector{X: 1}, aa)
	test.That(t, p.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, QuatToR4AA(p.Orientation()).Theta, test.ShouldAlmostEqual, math.Pi/2)
}

func TestPoseCompose(t *testing.T) {
	// rotating 90 degrees about Z then translating along local X should land on world Y
	rot := NewPoseFromOrientation(&R4AA{Theta: math.Pi / 2, RZ: 1})
	trans := NewPoseFromPoint(r3.Vector{X: 10})
	composed := Compose(rot, trans)
	test.That(t, composed.Point().X, test.ShouldAlmostEqual, 0, 1e-8)
	test.That(t, composed.Point().Y, test.ShouldAlmostEqual, 10, 1e-8)
	test.That(t, composed.Point().Z, test.ShouldAlmostEqual, 0, 1e-8)

	// composing with the identity is a no-op
	test.That(t, PoseAlmostEqual(Compose(composed, NewZeroPose()), composed), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(NewZeroPose(), composed), composed), test.ShouldBeTrue)
}

func TestPoseInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: -5, Z: 3}, &R4AA{Theta: 1.3, RX: 1, RY: 1})
	test.That(t, PoseAlmostEqual(Compose(p, PoseInverse(p)), NewZeroPose()), test.ShouldBeTrue)
}

func TestPoseBetween(t *testing.T) {
	a := NewPose(r3.Vector{X: 10, Y: 2}, &R4AA{Theta: 0.5, RZ: 1})
	b := NewPose(r3.Vector{X: -4, Y: 7, Z: 1}, &R4AA{Theta: 1.1, RX: 1})
	between := PoseBetween(a, b)
	test.That(t, PoseAlmostEqual(Compose(a, between), b), test.ShouldBeTrue)
}

func TestPoseDelta(t *testing.T) {
	a := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	b := NewPose(r3.Vector{X: 2, Y: 4, Z: 6}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	delta := PoseDelta(a, b)
	test.That(t, delta[0], test.ShouldAlmostEqual, 1)
	test.That(t, delta[1], test.ShouldAlmostEqual, 2)
	test.That(t, delta[2], test.ShouldAlmostEqual, 3)
	test.That(t, delta[3], test.ShouldAlmostEqual, 0, 1e-8)
	test.That(t, delta[4], test.ShouldAlmostEqual, 0, 1e-8)
	test.That(t, delta[5], test.ShouldAlmostEqual, math.Pi/2, 1e-8)

	// coincident poses have a zero delta
	for _, v := range PoseDelta(b, b) {
		test.That(t, v, test.ShouldAlmostEqual, 0)
	}
}

func TestInterpolateTranslation(t *testing.T) {
	p1 := NewPoseFromPoint(r3.Vector{X: 2, Y: 4, Z: 6})
	p2 := NewPoseFromPoint(r3.Vector{X: 4, Y: 8, Z: 12})
	test.That(t, PoseAlmostEqual(Interpolate(p1, p2, 0), p1), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Interpolate(p1, p2, 1), p2), test.ShouldBeTrue)

	mid := Interpolate(p1, p2, 0.5)
	test.That(t, PoseAlmostEqual(mid, NewPoseFromPoint(r3.Vector{X: 3, Y: 6, Z: 9})), test.ShouldBeTrue)
}

func TestInterpolateScrew(t *testing.T) {
	// quarter rotation about Z combined with a rise along Z is a helix; halfway along, both the
	// angle and the rise should be half of their totals
	p1 := NewZeroPose()
	p2 := NewPose(r3.Vector{Z: 100}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	mid := Interpolate(p1, p2, 0.5)
	test.That(t, mid.Point().Z, test.ShouldAlmostEqual, 50, 1e-6)
	midAA := QuatToR4AA(mid.Orientation())
	test.That(t, midAA.Theta, test.ShouldAlmostEqual, math.Pi/4, 1e-6)
	test.That(t, midAA.RZ, test.ShouldAlmostEqual, 1, 1e-6)
}

func TestInterpolateShortWay(t *testing.T) {
	// double cover: interpolation should rotate 20 degrees, never 340 the other way
	p1 := NewPoseFromOrientation(&R4AA{Theta: 1.6, RZ: 1})
	p2 := NewPoseFromOrientation(&R4AA{Theta: 1.6 + 0.349, RZ: 1})
	mid := Interpolate(p1, p2, 0.5)
	test.That(t, AngleBetween(p1.Orientation(), mid.Orientation()), test.ShouldAlmostEqual, 0.349/2, 1e-6)
}
