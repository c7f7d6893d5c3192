package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	spatial "github.com/armplanning/armplan/spatialmath"
)

// twoLinkArm builds a planar 2R arm: revolute joint, 100mm link, revolute joint, 100mm link.
func twoLinkArm(t *testing.T) *SimpleModel {
	t.Helper()
	model := NewSimpleModel("arm")
	limit := Limit{Min: -math.Pi, Max: math.Pi}

	j1, err := NewRotationalFrame("shoulder", spatial.R4AA{RZ: 1}, limit)
	test.That(t, err, test.ShouldBeNil)
	linkGeom, err := spatial.NewCapsule(
		spatial.NewPose(r3.Vector{X: 50}, &spatial.R4AA{Theta: math.Pi / 2, RY: 1}), 10, 100, "")
	test.That(t, err, test.ShouldBeNil)
	l1, err := NewStaticFrameWithGeometry("upper", spatial.NewPoseFromPoint(r3.Vector{X: 100}), linkGeom)
	test.That(t, err, test.ShouldBeNil)
	j2, err := NewRotationalFrame("elbow", spatial.R4AA{RZ: 1}, limit)
	test.That(t, err, test.ShouldBeNil)
	l2, err := NewStaticFrameWithGeometry("fore", spatial.NewPoseFromPoint(r3.Vector{X: 100}), linkGeom)
	test.That(t, err, test.ShouldBeNil)

	model.OrdTransforms = []Frame{j1, l1, j2, l2}
	return model
}

func TestModelTransform(t *testing.T) {
	arm := twoLinkArm(t)
	test.That(t, arm.DoF(), test.ShouldHaveLength, 2)

	// fully extended along X
	pose, err := arm.Transform(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(pose, spatial.NewPoseFromPoint(r3.Vector{X: 200})), test.ShouldBeTrue)

	// elbow bent 90 degrees
	pose, err = arm.Transform(FloatsToInputs([]float64{0, math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(pose, spatial.NewPoseFromPoint(r3.Vector{X: 100, Y: 100})), test.ShouldBeTrue)

	// shoulder rotated 90 degrees, folded flat
	pose, err = arm.Transform(FloatsToInputs([]float64{math.Pi / 2, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(pose, spatial.NewPoseFromPoint(r3.Vector{Y: 200})), test.ShouldBeTrue)

	_, err = arm.Transform(FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelLinkPoses(t *testing.T) {
	arm := twoLinkArm(t)
	poses, err := arm.LinkPoses(FloatsToInputs([]float64{0, math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(poses["upper"], spatial.NewPoseFromPoint(r3.Vector{X: 100})), test.ShouldBeTrue)
	test.That(t, spatial.PoseAlmostCoincident(poses["fore"], spatial.NewPoseFromPoint(r3.Vector{X: 100, Y: 100})), test.ShouldBeTrue)

	pose, err := arm.LinkPose("upper", FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(pose, spatial.NewPoseFromPoint(r3.Vector{X: 100})), test.ShouldBeTrue)

	_, err = arm.LinkPose("wrist", FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelGeometries(t *testing.T) {
	arm := twoLinkArm(t)
	test.That(t, arm.GeometryNames(), test.ShouldResemble, []string{"arm:upper", "arm:fore"})

	geometries, err := arm.Geometries(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, geometries, test.ShouldHaveLength, 2)

	// the upper link capsule is centered at the middle of the link
	test.That(t, geometries["arm:upper"].Pose().Point().X, test.ShouldAlmostEqual, 50, 1e-8)
	test.That(t, geometries["arm:fore"].Pose().Point().X, test.ShouldAlmostEqual, 150, 1e-8)

	// bending the elbow moves the forearm geometry but not the upper arm's
	geometries, err = arm.Geometries(FloatsToInputs([]float64{0, math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, geometries["arm:upper"].Pose().Point().X, test.ShouldAlmostEqual, 50, 1e-8)
	test.That(t, geometries["arm:fore"].Pose().Point().X, test.ShouldAlmostEqual, 100, 1e-8)
	test.That(t, geometries["arm:fore"].Pose().Point().Y, test.ShouldAlmostEqual, 50, 1e-8)
}

func TestSubchain(t *testing.T) {
	arm := twoLinkArm(t)

	sub, err := arm.Subchain("upper")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sub.DoF(), test.ShouldHaveLength, 1)
	pose, err := sub.Transform(FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincident(pose, spatial.NewPoseFromPoint(r3.Vector{X: 100})), test.ShouldBeTrue)

	sub, err = arm.Subchain("fore")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sub.DoF(), test.ShouldHaveLength, 2)

	_, err = arm.Subchain("wrist")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelAlmostEquals(t *testing.T) {
	test.That(t, twoLinkArm(t).AlmostEquals(twoLinkArm(t)), test.ShouldBeTrue)

	other := twoLinkArm(t)
	other.OrdTransforms = other.OrdTransforms[:3]
	test.That(t, twoLinkArm(t).AlmostEquals(other), test.ShouldBeFalse)
}
