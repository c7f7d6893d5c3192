package motionplan

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

const (
	// finite-difference step for the numeric Jacobian, in joint units.
	jacobianJump = 1e-6

	// damped-least-squares damping factor, in the same weighted units as the pose error.
	dlsDamping = 1.0

	// largest change any single joint may make in one descent iteration, as a fraction of that
	// joint's range. Keeps step sizes sane for radian and mm scale joints alike.
	maxIterationStepFraction = 0.05

	// fraction of each joint's range, centered on its midpoint, that restricted restart seeds
	// are drawn from.
	restrictedRestartRange = 0.2
)

// InverseKinematics solves for configurations that put the chain's end effector at a goal pose.
// Solutions found are sent to the given channel; the rseed makes the restart sequence reproducible.
type InverseKinematics interface {
	Solve(ctx context.Context, c chan<- []referenceframe.Input, goal spatial.Pose, seed []referenceframe.Input, rseed int) error
}

// jacobianIKSolver performs iterative damped-least-squares descent on a finite-difference Jacobian.
// It is a pure function of its inputs plus the fixed chain: no state survives between Solve calls.
type jacobianIKSolver struct {
	chain         kinematicChain
	logger        golog.Logger
	maxIterations int
	restarts      int
	epsilon       float64
}

func newJacobianIKSolver(chain kinematicChain, logger golog.Logger, opts *PlannerOptions) *jacobianIKSolver {
	return &jacobianIKSolver{
		chain:         chain,
		logger:        logger,
		maxIterations: opts.IKIterations,
		restarts:      opts.IKRestarts,
		epsilon:       opts.Epsilon,
	}
}

// Solve runs descents from the given seed and then from random in-bounds restarts, sending each
// converged, limit-respecting solution to the channel.
func (ik *jacobianIKSolver) Solve(
	ctx context.Context,
	c chan<- []referenceframe.Input,
	goal spatial.Pose,
	seed []referenceframe.Input,
	rseed int,
) error {
	//nolint:gosec
	randSeed := rand.New(rand.NewSource(int64(rseed)))

	var errAll error
	solved := 0
	attemptSeed := seed
	for attempt := 0; attempt < ik.restarts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		solution, err := ik.descend(ctx, goal, attemptSeed)
		if err != nil {
			multierr.AppendInto(&errAll, err)
		} else {
			select {
			case c <- solution:
				solved++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		// alternate restarts between the full joint range and a band around mid-range,
		// away from the limits
		if attempt%2 == 0 {
			attemptSeed = referenceframe.RestrictedRandomFrameInputs(ik.chain, randSeed, restrictedRestartRange)
		} else {
			attemptSeed = referenceframe.RandomFrameInputs(ik.chain, randSeed)
		}
	}
	if solved == 0 {
		return multierr.Append(ErrIKSolve, errAll)
	}
	return nil
}

// SolveOnce runs a single descent from the given seed with no restarts. Used where solution
// continuity matters more than coverage, e.g. chaining IK along a screw path.
func (ik *jacobianIKSolver) SolveOnce(
	ctx context.Context,
	goal spatial.Pose,
	seed []referenceframe.Input,
) ([]referenceframe.Input, error) {
	return ik.descend(ctx, goal, seed)
}

// descend iterates q' = q + Jᵀ(JJᵀ + λ²I)⁻¹ e until the weighted pose error drops below epsilon.
// Out-of-limit solutions are rejected, never clamped.
func (ik *jacobianIKSolver) descend(
	ctx context.Context,
	goal spatial.Pose,
	seed []referenceframe.Input,
) ([]referenceframe.Input, error) {
	limits := ik.chain.DoF()
	n := len(limits)
	if n == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "cannot solve IK for a chain with no degrees of freedom")
	}
	if len(seed) != n {
		return nil, errors.Wrapf(ErrInvalidConfig, "seed length %d does not match chain DoF %d", len(seed), n)
	}

	q := make([]referenceframe.Input, n)
	copy(q, seed)
	jacobian := mat.NewDense(6, n, nil)
	perturbed := make([]referenceframe.Input, n)
	stepClamp := getFrameSteps(limits, maxIterationStepFraction)

	for iter := 0; iter < ik.maxIterations; iter++ {
		if iter%128 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		pose, err := ik.chain.Transform(q)
		if err != nil {
			return nil, err
		}
		errVec := weightedPoseDelta(pose, goal)
		if floats.Norm(errVec, 2) < ik.epsilon {
			if err := referenceframe.LimitsViolated(limits, q); err != nil {
				return nil, errors.Wrap(ErrIKSolve, "converged solution violates joint limits")
			}
			return q, nil
		}

		for col := 0; col < n; col++ {
			copy(perturbed, q)
			perturbed[col].Value += jacobianJump
			perturbedPose, err := ik.chain.Transform(perturbed)
			if err != nil {
				return nil, err
			}
			d := weightedPoseDelta(pose, perturbedPose)
			for row := 0; row < 6; row++ {
				jacobian.Set(row, col, d[row]/jacobianJump)
			}
		}

		var jjt mat.Dense
		jjt.Mul(jacobian, jacobian.T())
		for i := 0; i < 6; i++ {
			jjt.Set(i, i, jjt.At(i, i)+dlsDamping*dlsDamping)
		}
		var y mat.VecDense
		if err := y.SolveVec(&jjt, mat.NewVecDense(6, errVec)); err != nil {
			return nil, errors.Wrap(ErrIKSolve, "jacobian system could not be solved")
		}
		var dq mat.VecDense
		dq.MulVec(jacobian.T(), &y)

		// bound the per-iteration step so a near-singular Jacobian cannot fling the descent
		scale := 1.
		for i := 0; i < n; i++ {
			if abs := math.Abs(dq.AtVec(i)); abs*scale > stepClamp[i] {
				scale = stepClamp[i] / abs
			}
		}
		for i := 0; i < n; i++ {
			q[i].Value += dq.AtVec(i) * scale
		}
	}
	return nil, errors.Wrap(ErrIKSolve, "descent did not converge within iteration budget")
}

// combinedIKSolver runs a jacobianIKSolver per thread, each with its own restart sequence, and
// fans all solutions into one channel.
type combinedIKSolver struct {
	solvers []*jacobianIKSolver
	logger  golog.Logger
}

func newCombinedIKSolver(chain kinematicChain, logger golog.Logger, opts *PlannerOptions) *combinedIKSolver {
	nCPU := opts.NumThreads
	if nCPU < 1 {
		nCPU = 1
	}
	solvers := make([]*jacobianIKSolver, 0, nCPU)
	for i := 0; i < nCPU; i++ {
		solvers = append(solvers, newJacobianIKSolver(chain, logger, opts))
	}
	return &combinedIKSolver{solvers: solvers, logger: logger}
}

func (ik *combinedIKSolver) Solve(
	ctx context.Context,
	c chan<- []referenceframe.Input,
	goal spatial.Pose,
	seed []referenceframe.Input,
	rseed int,
) error {
	var activeSolvers sync.WaitGroup
	errChan := make(chan error, len(ik.solvers))
	for i, solver := range ik.solvers {
		i, solver := i, solver
		activeSolvers.Add(1)
		utils.PanicCapturingGo(func() {
			defer activeSolvers.Done()
			errChan <- solver.Solve(ctx, c, goal, seed, rseed+i*1000)
		})
	}
	activeSolvers.Wait()
	close(errChan)

	var errAll error
	solvedAny := false
	for err := range errChan {
		if err == nil {
			solvedAny = true
		} else {
			multierr.AppendInto(&errAll, err)
		}
	}
	if solvedAny {
		return nil
	}
	return errAll
}
