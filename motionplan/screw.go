package motionplan

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

// largest joint-space jump, as a multiple of the validation resolution, that consecutive screw
// waypoints may make before the path is rejected as discontinuous.
const screwContinuityFactor = 100.

// screwMotionPlanner moves the end effector along the constant screw axis between its start pose
// and the goal pose: the straight line of rigid motions, interpolated on the dual quaternion
// manifold. Each interpolated pose is solved with a single IK descent seeded from its predecessor,
// so the joint path inherits the Cartesian path's continuity.
//
// It fails fast: if any interpolated pose cannot be reached, or the segment to it collides, the
// plan is abandoned rather than locally repaired. Callers wanting a fallback run a sampling
// planner on the same goal afterwards.
type screwMotionPlanner struct {
	chain     kinematicChain
	solver    *jacobianIKSolver
	validator *pathValidator
	logger    golog.Logger
	opts      *PlannerOptions
}

func newScrewMotionPlanner(
	chain kinematicChain,
	solver *jacobianIKSolver,
	validator *pathValidator,
	logger golog.Logger,
	opts *PlannerOptions,
) *screwMotionPlanner {
	return &screwMotionPlanner{
		chain:     chain,
		solver:    solver,
		validator: validator,
		logger:    logger,
		opts:      opts,
	}
}

// plan returns a joint-space path tracking the screw from the seed's pose to the goal pose.
func (mp *screwMotionPlanner) plan(
	ctx context.Context,
	goal spatial.Pose,
	seed []referenceframe.Input,
) ([][]referenceframe.Input, error) {
	startPose, err := mp.chain.Transform(seed)
	if err != nil {
		return nil, err
	}

	// step count from whichever of rotation and translation needs finer slicing
	delta := spatial.PoseDelta(startPose, goal)
	transMag := floats.Norm(delta[:3], 2)
	rotMag := floats.Norm(delta[3:], 2)
	steps := int(math.Max(
		math.Ceil(transMag/mp.opts.ScrewTransStep),
		math.Ceil(rotMag/mp.opts.ScrewRotStep),
	))
	if steps < 1 {
		steps = 1
	}

	path := [][]referenceframe.Input{seed}
	qCur := seed
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrPlanningFailed, "screw planning interrupted")
		default:
		}

		target := spatial.Interpolate(startPose, goal, float64(i)/float64(steps))
		q, err := mp.solver.SolveOnce(ctx, target, qCur)
		if err != nil {
			return nil, errors.Wrapf(ErrPlanningFailed, "screw path unreachable at step %d of %d: %s", i, steps, err)
		}
		if referenceframe.InputsL2Distance(qCur, q) > screwContinuityFactor*mp.opts.Resolution {
			return nil, errors.Wrapf(ErrPlanningFailed, "joint-space discontinuity at step %d of %d", i, steps)
		}
		if !mp.validator.checkPath(qCur, q) {
			return nil, errors.Wrapf(ErrPlanningFailed, "screw path in collision at step %d of %d", i, steps)
		}
		path = append(path, q)
		qCur = q
	}

	finalPose, err := mp.chain.Transform(qCur)
	if err != nil {
		return nil, err
	}
	if NewSquaredNormMetric(goal)(finalPose) > mp.opts.Epsilon*mp.opts.Epsilon {
		return nil, errors.Wrap(ErrPlanningFailed, "screw path terminated away from goal pose")
	}
	return path, nil
}
