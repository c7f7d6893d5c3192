package motionplan

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/armplanning/armplan/referenceframe"
)

func testPlannerOptions() *PlannerOptions {
	opts := NewBasicPlannerOptions()
	// gantry joints are in mm, so a coarser validation resolution keeps tests fast
	opts.Resolution = 5
	return opts
}

func TestRRTConnectFreeSpace(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gantry := testGantry(t)
	opts := testPlannerOptions()
	validator := &pathValidator{isValid: alwaysValid, resolution: opts.Resolution}
	//nolint:gosec
	mp := newRRTConnectMotionPlanner(gantry, validator, rand.New(rand.NewSource(42)), logger, opts)

	seed := referenceframe.FloatsToInputs([]float64{0, 0, 0})
	goal := referenceframe.FloatsToInputs([]float64{100, 50, 80})
	path, err := mp.plan(context.Background(), [][]referenceframe.Input{goal}, seed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(path), test.ShouldBeGreaterThanOrEqualTo, 2)
	test.That(t, path[0], test.ShouldResemble, seed)
	test.That(t, path[len(path)-1], test.ShouldResemble, goal)
}

func TestRRTConnectAroundObstacle(t *testing.T) {
	logger := golog.NewTestLogger(t)
	world := testWorldWithWall(t)
	opts := testPlannerOptions()
	validator := &pathValidator{isValid: world.IsValid, resolution: opts.Resolution}
	//nolint:gosec
	mp := newRRTConnectMotionPlanner(world.Model(), validator, rand.New(rand.NewSource(42)), logger, opts)

	// the straight line from seed to goal passes through the wall
	seed := referenceframe.FloatsToInputs([]float64{0, 500, 500})
	goal := referenceframe.FloatsToInputs([]float64{900, 500, 500})
	test.That(t, validator.checkPath(seed, goal), test.ShouldBeFalse)

	path, err := mp.plan(context.Background(), [][]referenceframe.Input{goal}, seed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path[0], test.ShouldResemble, seed)
	test.That(t, path[len(path)-1], test.ShouldResemble, goal)

	// every configuration along the way must be collision free
	for i := 1; i < len(path); i++ {
		test.That(t, validator.checkState(path[i]), test.ShouldBeTrue)
	}
}

func TestRRTConnectUnreachableGoal(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gantry := testGantry(t)
	opts := testPlannerOptions()
	opts.PlanIter = 50
	opts.Timeout = 2

	// nothing is valid, so no tree can grow
	validator := &pathValidator{isValid: func([]referenceframe.Input) bool { return false }, resolution: opts.Resolution}
	//nolint:gosec
	mp := newRRTConnectMotionPlanner(gantry, validator, rand.New(rand.NewSource(42)), logger, opts)

	seed := referenceframe.FloatsToInputs([]float64{0, 0, 0})
	goal := referenceframe.FloatsToInputs([]float64{100, 100, 100})
	_, err := mp.plan(context.Background(), [][]referenceframe.Input{goal}, seed)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrPlanningFailed), test.ShouldBeTrue)
}

func TestSmoothPathShortcuts(t *testing.T) {
	opts := testPlannerOptions()
	validator := &pathValidator{isValid: alwaysValid, resolution: opts.Resolution}

	// a needless zigzag in free space collapses to its endpoints
	path := [][]referenceframe.Input{
		referenceframe.FloatsToInputs([]float64{0, 0, 0}),
		referenceframe.FloatsToInputs([]float64{50, 200, 0}),
		referenceframe.FloatsToInputs([]float64{100, 0, 0}),
	}
	//nolint:gosec
	smoothed := smoothPath(context.Background(), validator, rand.New(rand.NewSource(1)), path, opts.SmoothIter)
	test.That(t, smoothed, test.ShouldHaveLength, 2)
	test.That(t, smoothed[0], test.ShouldResemble, path[0])
	test.That(t, smoothed[1], test.ShouldResemble, path[2])
}

func TestSmoothPathKeepsDetour(t *testing.T) {
	world := testWorldWithWall(t)
	opts := testPlannerOptions()
	validator := &pathValidator{isValid: world.IsValid, resolution: opts.Resolution}

	// the midpoint detours over the wall; shortcutting must not reintroduce the collision
	path := [][]referenceframe.Input{
		referenceframe.FloatsToInputs([]float64{0, 500, 500}),
		referenceframe.FloatsToInputs([]float64{500, 500, 700}),
		referenceframe.FloatsToInputs([]float64{900, 500, 500}),
	}
	//nolint:gosec
	smoothed := smoothPath(context.Background(), validator, rand.New(rand.NewSource(1)), path, opts.SmoothIter)
	test.That(t, smoothed, test.ShouldHaveLength, 3)
	for i := 1; i < len(smoothed); i++ {
		test.That(t, validator.checkPath(smoothed[i-1], smoothed[i]), test.ShouldBeTrue)
	}
}

func TestNearestNeighbor(t *testing.T) {
	nm := &neighborManager{nCPU: 2}
	tree := rrtMap{}
	for i := 0.; i < 10; i++ {
		tree[newNode(referenceframe.FloatsToInputs([]float64{i, i}))] = nil
	}
	best := nm.nearestNeighbor(context.Background(), newNode(referenceframe.FloatsToInputs([]float64{2.2, 2.2})), tree)
	test.That(t, best.q[0].Value, test.ShouldAlmostEqual, 2)

	// exercise the parallel path by growing the tree past the parallelization threshold
	for i := 0; i < neighborsBeforeParallelization+10; i++ {
		tree[newNode(referenceframe.FloatsToInputs([]float64{float64(i), 100}))] = nil
	}
	best = nm.nearestNeighbor(context.Background(), newNode(referenceframe.FloatsToInputs([]float64{7.1, 7.1})), tree)
	test.That(t, best.q[0].Value, test.ShouldAlmostEqual, 7)
}

func TestNearestNeighborCancelled(t *testing.T) {
	nm := &neighborManager{nCPU: 2}
	tree := rrtMap{}
	for i := 0; i < neighborsBeforeParallelization+10; i++ {
		tree[newNode(referenceframe.FloatsToInputs([]float64{float64(i), 0}))] = nil
	}

	// cancellation mid-lookup must not strand the caller behind exited workers
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan *node)
	go func() {
		done <- nm.nearestNeighbor(ctx, newNode(referenceframe.FloatsToInputs([]float64{5, 5})), tree)
	}()
	select {
	case best := <-done:
		test.That(t, best, test.ShouldBeNil)
	case <-time.After(10 * time.Second):
		t.Fatal("nearest neighbor lookup did not return after cancellation")
	}
}

func TestExtractPath(t *testing.T) {
	a1 := newNode(referenceframe.FloatsToInputs([]float64{0}))
	a2 := newNode(referenceframe.FloatsToInputs([]float64{1}))
	b2 := newNode(referenceframe.FloatsToInputs([]float64{1}))
	b1 := newNode(referenceframe.FloatsToInputs([]float64{2}))
	startMap := rrtMap{a1: nil, a2: a1}
	goalMap := rrtMap{b1: nil, b2: b1}

	// matched junction drops the duplicate configuration
	path := extractPath(startMap, goalMap, &nodePair{a2, b2}, true)
	test.That(t, path, test.ShouldHaveLength, 3)
	test.That(t, path[0][0].Value, test.ShouldEqual, 0)
	test.That(t, path[1][0].Value, test.ShouldEqual, 1)
	test.That(t, path[2][0].Value, test.ShouldEqual, 2)

	// order of the pair does not matter
	flipped := extractPath(startMap, goalMap, &nodePair{b2, a2}, true)
	test.That(t, flipped, test.ShouldResemble, path)
}

func TestGetFrameSteps(t *testing.T) {
	limits := []referenceframe.Limit{{Min: 0, Max: 1000}, {Min: -1, Max: 1}}
	steps := getFrameSteps(limits, 0.015)
	test.That(t, steps[0], test.ShouldAlmostEqual, 15)
	test.That(t, steps[1], test.ShouldAlmostEqual, 0.03)
}
