package referenceframe

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	spatial "github.com/armplanning/armplan/spatialmath"
)

// SimpleModel is a serial kinematic chain: an ordered list of Frames from the base out to the end
// effector. Joints (rotational/translational frames) consume inputs; static frames carry the link
// geometry between them. It is the in-memory form a URDF-style loader would produce; this package
// never parses description files itself.
type SimpleModel struct {
	name string
	// OrdTransforms is the list of transforms ordered from the base to the end effector
	OrdTransforms []Frame

	velLimits []float64
	accLimits []float64

	lock   sync.RWMutex
	limits []Limit
}

// NewSimpleModel constructs a new model with the given name.
func NewSimpleModel(name string) *SimpleModel {
	return &SimpleModel{name: name}
}

// Name returns the name of this model.
func (m *SimpleModel) Name() string {
	return m.name
}

// ChangeName changes the name of this model.
func (m *SimpleModel) ChangeName(name string) {
	m.name = name
}

// DoF returns the movement limits of each degree of freedom of the model.
func (m *SimpleModel) DoF() []Limit {
	m.lock.RLock()
	if len(m.limits) > 0 {
		defer m.lock.RUnlock()
		return m.limits
	}
	m.lock.RUnlock()

	limits := make([]Limit, 0, len(m.OrdTransforms))
	for _, transform := range m.OrdTransforms {
		limits = append(limits, transform.DoF()...)
	}
	m.lock.Lock()
	m.limits = limits
	m.lock.Unlock()
	return limits
}

// SetVelocityLimits sets the per-joint velocity limits used when time-parameterizing trajectories.
func (m *SimpleModel) SetVelocityLimits(limits []float64) {
	m.velLimits = limits
}

// SetAccelerationLimits sets the per-joint acceleration limits used when time-parameterizing trajectories.
func (m *SimpleModel) SetAccelerationLimits(limits []float64) {
	m.accLimits = limits
}

// VelocityLimits returns the per-joint velocity limits, or nil if none have been set.
func (m *SimpleModel) VelocityLimits() []float64 {
	return m.velLimits
}

// AccelerationLimits returns the per-joint acceleration limits, or nil if none have been set.
func (m *SimpleModel) AccelerationLimits() []float64 {
	return m.accLimits
}

// Transform takes a model and a list of joint angles in radians and computes the pose of the end
// effector. Deterministic: identical inputs always produce an identical pose.
func (m *SimpleModel) Transform(inputs []Input) (spatial.Pose, error) {
	poses, err := m.composedTransforms(inputs)
	if err != nil {
		return nil, err
	}
	return poses[len(poses)-1], nil
}

// LinkPoses computes the world pose of every frame in the chain for the given configuration.
func (m *SimpleModel) LinkPoses(inputs []Input) (map[string]spatial.Pose, error) {
	poses, err := m.composedTransforms(inputs)
	if err != nil {
		return nil, err
	}
	poseMap := make(map[string]spatial.Pose, len(m.OrdTransforms))
	for i, transform := range m.OrdTransforms {
		poseMap[transform.Name()] = poses[i+1]
	}
	return poseMap, nil
}

// LinkPose computes the world pose of the named frame for the given configuration.
func (m *SimpleModel) LinkPose(name string, inputs []Input) (spatial.Pose, error) {
	poses, err := m.LinkPoses(inputs)
	if err != nil {
		return nil, err
	}
	pose, ok := poses[name]
	if !ok {
		return nil, errors.Errorf("no link named %q in model %q", name, m.name)
	}
	return pose, nil
}

// Geometries returns the world-posed collision geometry of each link that has one, keyed by
// "model:link" to keep names distinct from world obstacles.
func (m *SimpleModel) Geometries(inputs []Input) (map[string]spatial.Geometry, error) {
	poses, err := m.composedTransforms(inputs)
	if err != nil {
		return nil, err
	}
	geometries := make(map[string]spatial.Geometry)
	posIdx := 0
	for i, transform := range m.OrdTransforms {
		dof := len(transform.DoF()) + posIdx
		input := inputs[posIdx:dof]
		posIdx = dof

		geometry, err := transform.Geometry(input)
		if err != nil {
			return nil, err
		}
		if geometry == nil {
			continue
		}
		// The frame geometry is relative to the frame's parent; premultiply by the world pose
		// of everything before this frame.
		geometries[m.name+":"+transform.Name()] = geometry.Transform(poses[i])
	}
	return geometries, nil
}

// GeometryNames returns the names of the geometry-bearing links in base-to-end-effector order.
// Consecutive entries are physically adjacent links.
func (m *SimpleModel) GeometryNames() []string {
	names := make([]string, 0, len(m.OrdTransforms))
	for _, transform := range m.OrdTransforms {
		geometry, err := transform.Geometry(make([]Input, len(transform.DoF())))
		if err != nil || geometry == nil {
			continue
		}
		names = append(names, m.name+":"+transform.Name())
	}
	return names
}

// LinkNames returns the names of all frames in the chain in order.
func (m *SimpleModel) LinkNames() []string {
	names := make([]string, 0, len(m.OrdTransforms))
	for _, transform := range m.OrdTransforms {
		names = append(names, transform.Name())
	}
	return names
}

// HasLink returns whether the model contains a frame with the given name.
func (m *SimpleModel) HasLink(name string) bool {
	for _, transform := range m.OrdTransforms {
		if transform.Name() == name {
			return true
		}
	}
	return false
}

// Subchain returns a new model consisting of the frames from the base up to and including the named
// frame. The result shares Frames with the original and is used to restrict planning to a move group.
func (m *SimpleModel) Subchain(name string) (*SimpleModel, error) {
	for i, transform := range m.OrdTransforms {
		if transform.Name() == name {
			sub := NewSimpleModel(m.name)
			sub.OrdTransforms = m.OrdTransforms[:i+1]
			return sub, nil
		}
	}
	return nil, errors.Errorf("no link named %q in model %q", name, m.name)
}

// composedTransforms walks the chain composing world poses. The returned slice has one more entry
// than OrdTransforms: element i is the world pose before frame i, and the final element is the end
// effector pose.
func (m *SimpleModel) composedTransforms(inputs []Input) ([]spatial.Pose, error) {
	if len(inputs) != len(m.DoF()) {
		return nil, fmt.Errorf("given input length %d does not match model DoF %d", len(inputs), len(m.DoF()))
	}
	poses := make([]spatial.Pose, 0, len(m.OrdTransforms)+1)
	composed := spatial.NewZeroPose()
	poses = append(poses, composed)
	posIdx := 0
	for _, transform := range m.OrdTransforms {
		dof := len(transform.DoF()) + posIdx
		input := inputs[posIdx:dof]
		posIdx = dof

		pose, err := transform.Transform(input)
		if err != nil {
			return nil, err
		}
		composed = spatial.Compose(composed, pose)
		poses = append(poses, composed)
	}
	return poses, nil
}

// AlmostEquals returns true if the only difference between this model and another is floating point imprecision.
func (m *SimpleModel) AlmostEquals(other *SimpleModel) bool {
	if m.name != other.name || len(m.OrdTransforms) != len(other.OrdTransforms) {
		return false
	}
	for idx, f := range m.OrdTransforms {
		if !f.AlmostEquals(other.OrdTransforms[idx]) {
			return false
		}
	}
	return true
}
