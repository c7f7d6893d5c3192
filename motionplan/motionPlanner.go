// Package motionplan is a motion planning library for articulated robots: it turns a goal pose or
// configuration into a collision-free, time-parameterized joint-space trajectory.
package motionplan

import (
	"context"
	"math"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

// kinematicChain is the slice of a model that the solvers and planners need: forward kinematics
// plus joint limits. referenceframe.SimpleModel satisfies it.
type kinematicChain interface {
	Transform([]referenceframe.Input) (spatial.Pose, error)
	DoF() []referenceframe.Limit
}

// motionPlanner can plan a path from a seed configuration to one of a set of goal configurations.
type motionPlanner interface {
	plan(ctx context.Context, goals [][]referenceframe.Input, seed []referenceframe.Input) ([][]referenceframe.Input, error)
}

// stateValidator reports whether a single move-group configuration is acceptable.
type stateValidator func([]referenceframe.Input) bool

// pathValidator validates configurations and straight joint-space segments between them, checking
// intermediate configurations every resolution units of L2 joint-space distance.
type pathValidator struct {
	isValid    stateValidator
	resolution float64
}

func (pv *pathValidator) checkState(q []referenceframe.Input) bool {
	return pv.isValid(q)
}

// checkPath validates the segment between two configurations, including both endpoints.
func (pv *pathValidator) checkPath(from, to []referenceframe.Input) bool {
	steps := pv.interpolationSteps(from, to)
	for i := 0; i <= steps; i++ {
		if !pv.isValid(referenceframe.InterpolateInputs(from, to, float64(i)/float64(steps))) {
			return false
		}
	}
	return true
}

func (pv *pathValidator) interpolationSteps(from, to []referenceframe.Input) int {
	steps := int(math.Ceil(referenceframe.InputsL2Distance(from, to) / pv.resolution))
	if steps < 1 {
		return 1
	}
	return steps
}
