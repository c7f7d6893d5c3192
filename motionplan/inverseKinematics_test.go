package motionplan

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

func TestIKSolveOnceGantry(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gantry := testGantry(t)
	solver := newJacobianIKSolver(gantry, logger, NewBasicPlannerOptions())

	goal := spatial.NewPoseFromPoint(r3.Vector{X: 300, Y: 200, Z: 100})
	solution, err := solver.SolveOnce(context.Background(), goal, referenceframe.FloatsToInputs([]float64{0, 0, 0}))
	test.That(t, err, test.ShouldBeNil)

	pose, err := gantry.Transform(solution)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincidentEps(pose, goal, 1e-2), test.ShouldBeTrue)
}

func TestIKSolveOnceArm(t *testing.T) {
	logger := golog.NewTestLogger(t)
	arm := testArm(t)
	solver := newJacobianIKSolver(arm, logger, NewBasicPlannerOptions())

	// solve back to a pose generated by forward kinematics
	goal, err := arm.Transform(referenceframe.FloatsToInputs([]float64{0.5, 0.7}))
	test.That(t, err, test.ShouldBeNil)
	solution, err := solver.SolveOnce(context.Background(), goal, referenceframe.FloatsToInputs([]float64{0.3, 0.5}))
	test.That(t, err, test.ShouldBeNil)

	pose, err := arm.Transform(solution)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincidentEps(pose, goal, 1e-2), test.ShouldBeTrue)
	test.That(t, spatial.QuatAlmostEqual(pose.Orientation(), goal.Orientation(), 1e-3), test.ShouldBeTrue)
}

func TestIKUnreachableGoal(t *testing.T) {
	logger := golog.NewTestLogger(t)
	arm := testArm(t)
	opts := NewBasicPlannerOptions()
	opts.IKRestarts = 3
	solver := newJacobianIKSolver(arm, logger, opts)

	// the arm's reach is 200mm; this pose is outside it
	goal := spatial.NewPoseFromPoint(r3.Vector{X: 500})
	solutions := make(chan []referenceframe.Input, 100)
	err := solver.Solve(context.Background(), solutions, goal, referenceframe.FloatsToInputs([]float64{0, 0}), 1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrIKSolve), test.ShouldBeTrue)
}

func TestCombinedIKSolve(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gantry := testGantry(t)
	opts := NewBasicPlannerOptions()
	opts.NumThreads = 2
	solver := newCombinedIKSolver(gantry, logger, opts)

	goal := spatial.NewPoseFromPoint(r3.Vector{X: 500, Y: 100, Z: 700})
	solutions := make(chan []referenceframe.Input, 100)
	err := solver.Solve(context.Background(), solutions, goal, referenceframe.FloatsToInputs([]float64{0, 0, 0}), 1)
	test.That(t, err, test.ShouldBeNil)
	close(solutions)

	count := 0
	for solution := range solutions {
		pose, err := gantry.Transform(solution)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatial.PoseAlmostCoincidentEps(pose, goal, 1e-2), test.ShouldBeTrue)
		test.That(t, referenceframe.LimitsViolated(gantry.DoF(), solution), test.ShouldBeNil)
		count++
	}
	test.That(t, count, test.ShouldBeGreaterThan, 0)
}

func TestIKSeedLengthMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	solver := newJacobianIKSolver(testGantry(t), logger, NewBasicPlannerOptions())
	_, err := solver.SolveOnce(context.Background(), spatial.NewZeroPose(), referenceframe.FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
}
