package motionplan

import (
	"context"
	"math/rand"
	"sort"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

// defaultJointLimit is the velocity (units/s) and acceleration (units/s²) limit assumed for any
// joint the model does not set one for.
const defaultJointLimit = 1.0

// PlanResult is the complete outcome of one planning request. Status is always set; Path and
// Trajectory are set only on Success, and Err carries detail on anything else.
type PlanResult struct {
	Status     Status
	Err        error
	Path       [][]float64
	Trajectory *Trajectory
}

// Planner plans collision-free, time-parameterized motion for one move group of a model inside a
// PlanningWorld. A Planner is cheap to construct and single-threaded: use one per goroutine. With
// the same seed and inputs, successive runs produce identical plans.
type Planner struct {
	world     *PlanningWorld
	model     *referenceframe.SimpleModel
	chain     *referenceframe.SimpleModel
	activeDoF int
	logger    golog.Logger
	opts      *PlannerOptions
	randseed  *rand.Rand

	ikCombined *combinedIKSolver
	ikSingle   *jacobianIKSolver

	velLimits []float64
	accLimits []float64
}

// NewPlanner creates a planner whose move group is the serial chain from the model's base up to and
// including the named link. Joints past the move group are pinned at their start values during
// planning but still checked for collisions.
func NewPlanner(world *PlanningWorld, moveGroupLink string, logger golog.Logger, opts *PlannerOptions) (*Planner, error) {
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	model := world.Model()
	chain, err := model.Subchain(moveGroupLink)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownLink, "cannot plan for move group ending at %q", moveGroupLink)
	}
	activeDoF := len(chain.DoF())
	if activeDoF == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "move group ending at %q has no degrees of freedom", moveGroupLink)
	}

	velLimits := model.VelocityLimits()
	accLimits := model.AccelerationLimits()
	fullDoF := len(model.DoF())
	if velLimits == nil {
		velLimits = constantLimits(fullDoF, defaultJointLimit)
	}
	if accLimits == nil {
		accLimits = constantLimits(fullDoF, defaultJointLimit)
	}
	if len(velLimits) != fullDoF || len(accLimits) != fullDoF {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"model limit lengths %d, %d do not match model DoF %d", len(velLimits), len(accLimits), fullDoF)
	}

	return &Planner{
		world:     world,
		model:     model,
		chain:     chain,
		activeDoF: activeDoF,
		logger:    logger,
		opts:      opts,
		//nolint:gosec
		randseed:   rand.New(rand.NewSource(1)),
		ikCombined: newCombinedIKSolver(chain, logger, opts),
		ikSingle:   newJacobianIKSolver(chain, logger, opts),
		velLimits:  velLimits[:activeDoF],
		accLimits:  accLimits[:activeDoF],
	}, nil
}

// SetRandomSeed reseeds the random source that drives sampling and IK restarts. Planners with the
// same seed and the same inputs produce the same plan.
func (p *Planner) SetRandomSeed(seed int64) {
	//nolint:gosec
	p.randseed = rand.New(rand.NewSource(seed))
}

// PlanToPose plans from the start configuration to any configuration placing the move group's end
// effector at the goal pose. If useScrew is set the end effector is constrained to the constant
// screw between its start pose and the goal, and the request fails rather than detour; otherwise a
// sampling planner searches freely around obstacles.
func (p *Planner) PlanToPose(
	ctx context.Context,
	goal spatial.Pose,
	start []float64,
	timeStep float64,
	useScrew bool,
) *PlanResult {
	fullStart, activeStart, err := p.validateStart(start)
	if err != nil {
		return failedResult(err)
	}
	validator := p.validatorFor(fullStart)

	var path [][]referenceframe.Input
	if useScrew {
		screw := newScrewMotionPlanner(p.chain, p.ikSingle, validator, p.logger, p.opts)
		path, err = screw.plan(ctx, goal, activeStart)
	} else {
		var goals [][]referenceframe.Input
		goals, err = p.goalConfigurations(ctx, goal, activeStart, validator)
		if err == nil {
			path, err = p.planAndSmooth(ctx, goals, activeStart, validator)
		}
	}
	if err != nil {
		return failedResult(err)
	}
	return p.finishPlan(path, timeStep)
}

// PlanToConfig plans from the start configuration to an explicit move-group goal configuration.
func (p *Planner) PlanToConfig(
	ctx context.Context,
	goal []float64,
	start []float64,
	timeStep float64,
) *PlanResult {
	fullStart, activeStart, err := p.validateStart(start)
	if err != nil {
		return failedResult(err)
	}
	if len(goal) != p.activeDoF {
		return failedResult(errors.Wrapf(ErrInvalidConfig,
			"goal length %d does not match move group DoF %d", len(goal), p.activeDoF))
	}
	goalInputs := referenceframe.FloatsToInputs(goal)
	if err := referenceframe.LimitsViolated(p.chain.DoF(), goalInputs); err != nil {
		return failedResult(errors.Wrap(ErrInvalidConfig, err.Error()))
	}

	validator := p.validatorFor(fullStart)
	if !validator.checkState(goalInputs) {
		return failedResult(errors.Wrap(ErrPlanningFailed, "goal configuration is in collision"))
	}

	path, err := p.planAndSmooth(ctx, [][]referenceframe.Input{goalInputs}, activeStart, validator)
	if err != nil {
		return failedResult(err)
	}
	return p.finishPlan(path, timeStep)
}

// validateStart checks the full start configuration and splits off the move group's prefix.
func (p *Planner) validateStart(start []float64) (full, active []referenceframe.Input, err error) {
	if len(start) != len(p.model.DoF()) {
		return nil, nil, errors.Wrapf(ErrInvalidConfig,
			"start length %d does not match model DoF %d", len(start), len(p.model.DoF()))
	}
	full = referenceframe.FloatsToInputs(start)
	if err := referenceframe.LimitsViolated(p.model.DoF(), full); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	collisions, err := p.world.CheckCollisions(full)
	if err != nil {
		return nil, nil, err
	}
	if len(collisions) > 0 {
		return nil, nil, errors.Wrapf(ErrPlanningFailed,
			"start configuration is in collision: %q with %q", collisions[0].Name1, collisions[0].Name2)
	}
	return full, full[:p.activeDoF], nil
}

// validatorFor builds a validator over move-group configurations, pinning all joints past the move
// group at their start values. Pinned joints still participate in collision checking.
func (p *Planner) validatorFor(fullStart []referenceframe.Input) *pathValidator {
	passive := make([]referenceframe.Input, len(fullStart)-p.activeDoF)
	copy(passive, fullStart[p.activeDoF:])
	return &pathValidator{
		isValid: func(active []referenceframe.Input) bool {
			full := make([]referenceframe.Input, 0, len(fullStart))
			full = append(full, active...)
			full = append(full, passive...)
			return p.world.IsValid(full)
		},
		resolution: p.opts.Resolution,
	}
}

// goalConfigurations gathers collision-free IK solutions for the goal pose, nearest to the seed
// first. Multiple goal configurations seed the sampling planner's goal tree.
func (p *Planner) goalConfigurations(
	ctx context.Context,
	goal spatial.Pose,
	seed []referenceframe.Input,
	validator *pathValidator,
) ([][]referenceframe.Input, error) {
	solutionChan := make(chan []referenceframe.Input)
	ikErrChan := make(chan error, 1)
	ikCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	utils.PanicCapturingGo(func() {
		defer close(solutionChan)
		ikErrChan <- p.ikCombined.Solve(ikCtx, solutionChan, goal, seed, p.randseed.Int())
	})

	var solutions [][]referenceframe.Input
	for solution := range solutionChan {
		if !validator.checkState(solution) {
			continue
		}
		solutions = append(solutions, solution)
	}
	if err := <-ikErrChan; err != nil && len(solutions) == 0 {
		return nil, err
	}
	if len(solutions) == 0 {
		return nil, errors.Wrap(ErrIKSolve, "no collision-free IK solutions for goal pose")
	}

	// the parallel solvers deliver in scheduler order, so impose a total order before dropping
	// near-duplicates; otherwise identical runs can keep different representatives
	sort.SliceStable(solutions, func(i, j int) bool {
		di := referenceframe.InputsL2Distance(seed, solutions[i])
		dj := referenceframe.InputsL2Distance(seed, solutions[j])
		if di != dj {
			return di < dj
		}
		for k := range solutions[i] {
			if solutions[i][k].Value != solutions[j][k].Value {
				return solutions[i][k].Value < solutions[j][k].Value
			}
		}
		return false
	})
	unique := make([][]referenceframe.Input, 0, len(solutions))
	for _, solution := range solutions {
		duplicate := false
		for _, kept := range unique {
			if referenceframe.InputsAlmostEqual(solution, kept, p.opts.Epsilon) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		unique = append(unique, solution)
		if len(unique) == p.opts.MaxSolutions {
			break
		}
	}
	return unique, nil
}

func (p *Planner) planAndSmooth(
	ctx context.Context,
	goals [][]referenceframe.Input,
	seed []referenceframe.Input,
	validator *pathValidator,
) ([][]referenceframe.Input, error) {
	rrt := newRRTConnectMotionPlanner(p.chain, validator, p.randseed, p.logger, p.opts)
	path, err := rrt.plan(ctx, goals, seed)
	if err != nil {
		return nil, err
	}
	return smoothPath(ctx, validator, p.randseed, path, p.opts.SmoothIter), nil
}

// finishPlan time-parameterizes a successful joint-space path and assembles the result.
func (p *Planner) finishPlan(path [][]referenceframe.Input, timeStep float64) *PlanResult {
	traj, err := TimeParameterize(path, p.velLimits, p.accLimits, timeStep)
	if err != nil {
		return failedResult(err)
	}
	waypoints := make([][]float64, 0, len(path))
	for _, q := range path {
		waypoints = append(waypoints, referenceframe.InputsToFloats(q))
	}
	return &PlanResult{
		Status:     Success,
		Path:       waypoints,
		Trajectory: traj,
	}
}

func failedResult(err error) *PlanResult {
	return &PlanResult{Status: statusFromError(err), Err: err}
}

func constantLimits(n int, value float64) []float64 {
	limits := make([]float64, n)
	for i := range limits {
		limits[i] = value
	}
	return limits
}
