package motionplan

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/armplanning/armplan/referenceframe"
)

// rrtConnectMotionPlanner an object able to solve constrained paths around obstacles to some goal
// for a given chain. It uses the RRT-Connect algorithm: two trees, one rooted at the start and one
// at the goal configurations, are grown toward random samples and toward each other until they meet.
type rrtConnectMotionPlanner struct {
	chain     kinematicChain
	validator *pathValidator
	logger    golog.Logger
	opts      *PlannerOptions
	randseed  *rand.Rand

	// per-joint extension step, a fixed fraction of each joint's range
	qstep []float64
}

func newRRTConnectMotionPlanner(
	chain kinematicChain,
	validator *pathValidator,
	seed *rand.Rand,
	logger golog.Logger,
	opts *PlannerOptions,
) *rrtConnectMotionPlanner {
	return &rrtConnectMotionPlanner{
		chain:     chain,
		validator: validator,
		logger:    logger,
		opts:      opts,
		randseed:  seed,
		qstep:     getFrameSteps(chain.DoF(), defaultFrameStep),
	}
}

// plan grows a tree from the seed and one from each goal configuration merged into a single goal
// tree, and returns the first path connecting them. Goals are assumed pre-validated.
func (mp *rrtConnectMotionPlanner) plan(
	ctx context.Context,
	goals [][]referenceframe.Input,
	seed []referenceframe.Input,
) ([][]referenceframe.Input, error) {
	if len(goals) == 0 {
		return nil, errors.Wrap(ErrPlanningFailed, "no goal configurations given")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(mp.opts.Timeout*float64(time.Second)))
	defer cancel()

	startMap := rrtMap{newNode(seed): nil}
	goalMap := make(rrtMap, len(goals))
	for _, goal := range goals {
		goalMap[newNode(goal)] = nil
	}

	nm := &neighborManager{nCPU: mp.opts.NumThreads}
	target := referenceframe.FloatsToInputs(referenceframe.InputsToFloats(goals[0]))

	map1, map2 := startMap, goalMap
	for i := 0; i < mp.opts.PlanIter; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrPlanningFailed, "timed out before finding a path")
		default:
		}

		// attempt to extend maps 1 and 2 towards the target; a nil nearest neighbor means the
		// lookup was cancelled under us
		nearest1 := nm.nearestNeighbor(ctx, newNode(target), map1)
		if nearest1 == nil {
			return nil, errors.Wrap(ErrPlanningFailed, "timed out before finding a path")
		}
		map1reached := mp.constrainedExtend(map1, nearest1, newNode(target))

		nearest2 := nm.nearestNeighbor(ctx, map1reached, map2)
		if nearest2 == nil {
			return nil, errors.Wrap(ErrPlanningFailed, "timed out before finding a path")
		}
		map2reached := mp.constrainedExtend(map2, nearest2, map1reached)

		if referenceframe.InputsL2Distance(map1reached.q, map2reached.q) < mp.opts.Resolution {
			cancel()
			path := extractPath(startMap, goalMap, &nodePair{map1reached, map2reached}, true)
			if path != nil {
				return path, nil
			}
		}

		target = mp.sample(seed, goals)
		map1, map2 = map2, map1
	}
	return nil, errors.Wrap(ErrPlanningFailed, "exhausted iteration budget before finding a path")
}

// sample returns a random in-bounds configuration, biased toward the goal (or the seed, so that
// whichever tree is active grows toward the other root) a fixed fraction of the time.
func (mp *rrtConnectMotionPlanner) sample(
	seed []referenceframe.Input,
	goals [][]referenceframe.Input,
) []referenceframe.Input {
	if mp.randseed.Float64() < mp.opts.GoalBias {
		if mp.randseed.Float64() < 0.5 {
			return referenceframe.FloatsToInputs(referenceframe.InputsToFloats(goals[mp.randseed.Intn(len(goals))]))
		}
		return referenceframe.FloatsToInputs(referenceframe.InputsToFloats(seed))
	}
	return referenceframe.RandomFrameInputs(mp.chain, mp.randseed)
}

// constrainedExtend grows the tree from the near node toward the target in bounded steps, stopping
// at the first step that is invalid or that no longer makes progress, and returns the last node
// added (which is the near node itself if no step was possible).
func (mp *rrtConnectMotionPlanner) constrainedExtend(
	tree rrtMap,
	near, target *node,
) *node {
	oldNear := near
	for {
		switch {
		case referenceframe.InputsL2Distance(near.q, target.q) < mp.opts.Resolution:
			return near
		case referenceframe.InputsL2Distance(near.q, target.q) > referenceframe.InputsL2Distance(oldNear.q, target.q):
			return oldNear
		}

		oldNear = near
		newNear := fixedStepInterpolation(near.q, target.q, mp.qstep)
		if !mp.validator.checkPath(near.q, newNear) {
			return oldNear
		}
		extension := newNode(newNear)
		tree[extension] = near
		near = extension
	}
}

// fixedStepInterpolation returns a new configuration one bounded step from near toward target,
// moving each joint by at most its entry in qstep and landing exactly on the target once within
// one step of it.
func fixedStepInterpolation(near, target []referenceframe.Input, qstep []float64) []referenceframe.Input {
	newNear := make([]referenceframe.Input, 0, len(near))
	for j, nearInput := range near {
		v1, v2 := nearInput.Value, target[j].Value
		newVal := math.Min(qstep[j], math.Abs(v2-v1))
		if v1 > v2 {
			newVal *= -1
		}
		newNear = append(newNear, referenceframe.Input{Value: v1 + newVal})
	}
	return newNear
}

// getFrameSteps returns a fraction of the range of motion for each degree of freedom.
func getFrameSteps(limits []referenceframe.Limit, by float64) []float64 {
	pos := make([]float64, len(limits))
	for i, lim := range limits {
		l, u := lim.Min, lim.Max

		// Default to [-999,999] as range if limits are infinite
		if l == math.Inf(-1) {
			l = -999
		}
		if u == math.Inf(1) {
			u = 999
		}

		jRange := math.Abs(u - l)
		pos[i] = jRange * by
	}
	return pos
}
