// Package referenceframe defines frames and kinematic models for articulated robots, and does the
// math of translating between the joint space of a model and the poses of its links.
package referenceframe

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "github.com/armplanning/armplan/spatialmath"
	"github.com/armplanning/armplan/utils"
)

// Limit represents the lower and upper bounds of motion for one degree of freedom.
type Limit struct {
	Min float64
	Max float64
}

func limitsAlmostEqual(a, b []Limit) bool {
	if len(a) != len(b) {
		return false
	}

	const epsilon = 1e-5
	for idx, x := range a {
		if !utils.Float64AlmostEqual(x.Min, b[idx].Min, epsilon) ||
			!utils.Float64AlmostEqual(x.Max, b[idx].Max, epsilon) {
			return false
		}
	}

	return true
}

// LimitsViolated returns an error if any input falls outside its corresponding limit.
func LimitsViolated(limits []Limit, inputs []Input) error {
	if len(limits) != len(inputs) {
		return fmt.Errorf("given input length %d does not match limit count %d", len(inputs), len(limits))
	}
	for i, input := range inputs {
		if input.Value < limits[i].Min || input.Value > limits[i].Max {
			return fmt.Errorf("joint %d input %.5f out of bounds [%.5f, %.5f]", i, input.Value, limits[i].Min, limits[i].Max)
		}
	}
	return nil
}

// Limited is implemented by anything with degrees of freedom: a Frame, a model, or a subchain.
type Limited interface {
	DoF() []Limit
}

// RandomFrameInputs will produce a list of valid, in-bounds inputs for the referenceframe.
func RandomFrameInputs(m Limited, rSeed *rand.Rand) []Input {
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	dof := m.DoF()
	pos := make([]Input, 0, len(dof))
	for _, lim := range dof {
		l, u := lim.Min, lim.Max

		// Default to [-999,999] as range if limits are infinite
		if l == math.Inf(-1) {
			l = -999
		}
		if u == math.Inf(1) {
			u = 999
		}

		jRange := math.Abs(u - l)
		pos = append(pos, Input{rSeed.Float64()*jRange + l})
	}
	return pos
}

// RestrictedRandomFrameInputs will produce a list of valid, in-bounds inputs for the frame,
// restricting the range to lim percent of the limits, centered on the limits' midpoints.
func RestrictedRandomFrameInputs(m Limited, rSeed *rand.Rand, lim float64) []Input {
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	dof := m.DoF()
	pos := make([]Input, 0, len(dof))
	for _, limit := range dof {
		l, u := limit.Min, limit.Max

		// Default to [-999,999] as range if limits are infinite
		if l == math.Inf(-1) {
			l = -999
		}
		if u == math.Inf(1) {
			u = 999
		}

		jRange := math.Abs(u-l) * lim
		mid := (u + l) / 2
		pos = append(pos, Input{mid + (rSeed.Float64()-0.5)*jRange})
	}
	return pos
}

// Frame represents a single element of a kinematic chain: a joint or a fixed link transform.
type Frame interface {
	// Name returns the name of the referenceframe.
	Name() string

	// Transform is the pose (rotation and translation) that goes FROM current frame TO parent's referenceframe.
	Transform([]Input) (spatial.Pose, error)

	// Geometry returns the collision geometry associated with the frame, positioned relative to the
	// frame itself, or nil if the frame occupies no space.
	Geometry([]Input) (spatial.Geometry, error)

	// DoF will return a slice with length equal to the number of joints/degrees of freedom.
	// Each element describes the min and max movement limit of that joint/degree of freedom.
	// For robot parts that don't move, it returns an empty slice.
	DoF() []Limit

	// AlmostEquals returns if the otherFrame is close to the referenceframe.
	// differences should just be things like floating point imprecision
	AlmostEquals(otherFrame Frame) bool
}

// a static Frame is a simple coordinate system that encodes a fixed translation and rotation
// from the current Frame to the parent referenceframe.
type staticFrame struct {
	name      string
	transform spatial.Pose
	geometry  spatial.Geometry
}

// NewStaticFrame creates a frame given a pose relative to its parent. The pose is fixed for all time.
// Pose is not allowed to be nil.
func NewStaticFrame(name string, pose spatial.Pose) (Frame, error) {
	if pose == nil {
		return nil, errors.New("pose is not allowed to be nil")
	}
	return &staticFrame{name, pose, nil}, nil
}

// NewZeroStaticFrame creates a frame with no translation or orientation changes.
func NewZeroStaticFrame(name string) Frame {
	return &staticFrame{name, spatial.NewZeroPose(), nil}
}

// NewStaticFrameWithGeometry creates a frame given a pose relative to its parent. The pose is fixed for all time.
// It also has an associated geometry representing the space that it occupies in 3D space. Pose is not allowed to be nil.
func NewStaticFrameWithGeometry(name string, pose spatial.Pose, geometry spatial.Geometry) (Frame, error) {
	if pose == nil {
		return nil, errors.New("pose is not allowed to be nil")
	}
	return &staticFrame{name, pose, geometry}, nil
}

// Name is the name of the referenceframe.
func (sf *staticFrame) Name() string {
	return sf.name
}

// Transform returns the pose associated with this static referenceframe.
func (sf *staticFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 0 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 0", len(input))
	}
	return sf.transform, nil
}

// Geometry returns an object representing the 3D space associated with the staticFrame.
func (sf *staticFrame) Geometry(input []Input) (spatial.Geometry, error) {
	if sf.geometry == nil {
		return nil, nil
	}
	pose, err := sf.Transform(input)
	if err != nil {
		return nil, err
	}
	return sf.geometry.Transform(pose), nil
}

// DoF are the degrees of freedom of the transform. In the staticFrame, it is always 0.
func (sf *staticFrame) DoF() []Limit {
	return []Limit{}
}

func (sf *staticFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*staticFrame)
	return ok && sf.name == other.name && spatial.PoseAlmostEqual(sf.transform, other.transform)
}

// a rotational Frame is a frame that rotates about a fixed axis, e.g. a revolute joint.
type rotationalFrame struct {
	name    string
	rotAxis r3.Vector
	limit   []Limit
}

// NewRotationalFrame creates a new rotationalFrame struct.
// A standard revolute joint will have 1 DoF.
func NewRotationalFrame(name string, axis spatial.R4AA, limit Limit) (Frame, error) {
	axis.Normalize()
	return &rotationalFrame{
		name:    name,
		rotAxis: r3.Vector{X: axis.RX, Y: axis.RY, Z: axis.RZ},
		limit:   []Limit{limit},
	}, nil
}

// Transform returns the Pose representing the frame's motion in space. Requires a slice
// of inputs that has length equal to the degrees of freedom of the referenceframe.
// Out-of-bounds positions are still computed; limit enforcement belongs to the callers that sample
// or validate configurations.
func (rf *rotationalFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 1 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 1", len(input))
	}
	return spatial.NewPoseFromOrientation(&spatial.R4AA{
		Theta: input[0].Value,
		RX:    rf.rotAxis.X,
		RY:    rf.rotAxis.Y,
		RZ:    rf.rotAxis.Z,
	}), nil
}

// Geometry will always return nil for rotationalFrames; geometries belong to the link frames that
// follow the joint.
func (rf *rotationalFrame) Geometry(input []Input) (spatial.Geometry, error) {
	return nil, nil
}

// DoF returns the number of degrees of freedom that a joint has. This would be 1 for a standard revolute joint.
func (rf *rotationalFrame) DoF() []Limit {
	return rf.limit
}

// Name returns the name of the referenceframe.
func (rf *rotationalFrame) Name() string {
	return rf.name
}

func (rf *rotationalFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*rotationalFrame)
	return ok && rf.name == other.name &&
		spatial.R3VectorAlmostEqual(rf.rotAxis, other.rotAxis, 1e-8) &&
		limitsAlmostEqual(rf.DoF(), other.DoF())
}

// a translational Frame is a frame that can translate along an axis without rotation, e.g. a
// prismatic joint or one axis of a gantry.
type translationalFrame struct {
	name      string
	transAxis r3.Vector
	limit     []Limit
	geometry  spatial.Geometry
}

// NewTranslationalFrame creates a frame given a name and the axis in which to translate.
func NewTranslationalFrame(name string, axis r3.Vector, limit Limit) (Frame, error) {
	return NewTranslationalFrameWithGeometry(name, axis, limit, nil)
}

// NewTranslationalFrameWithGeometry creates a frame given a name and the axis in which to translate.
// It also has an associated geometry representing the space that it occupies in 3D space.
func NewTranslationalFrameWithGeometry(name string, axis r3.Vector, limit Limit, geometry spatial.Geometry) (Frame, error) {
	if spatial.R3VectorAlmostEqual(r3.Vector{}, axis, 1e-8) {
		return nil, errors.New("cannot use zero vector as translation axis")
	}
	return &translationalFrame{name: name, transAxis: axis.Normalize(), limit: []Limit{limit}, geometry: geometry}, nil
}

// Name is the name of the frame.
func (pf *translationalFrame) Name() string {
	return pf.name
}

// Transform returns a pose translated by the amount specified in the inputs.
func (pf *translationalFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 1 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 1", len(input))
	}
	return spatial.NewPoseFromPoint(pf.transAxis.Mul(input[0].Value)), nil
}

// Geometry returns an object representing the 3D space associated with the translationalFrame.
func (pf *translationalFrame) Geometry(input []Input) (spatial.Geometry, error) {
	if pf.geometry == nil {
		return nil, nil
	}
	pose, err := pf.Transform(input)
	if err != nil {
		return nil, err
	}
	return pf.geometry.Transform(pose), nil
}

// DoF are the degrees of freedom of the transform.
func (pf *translationalFrame) DoF() []Limit {
	return pf.limit
}

func (pf *translationalFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*translationalFrame)
	return ok && pf.name == other.name &&
		spatial.R3VectorAlmostEqual(pf.transAxis, other.transAxis, 1e-8) &&
		limitsAlmostEqual(pf.DoF(), other.DoF())
}
