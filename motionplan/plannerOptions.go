package motionplan

import "runtime"

// default values for planning options.
const (
	// default number of RRT iterations before giving up.
	defaultPlanIter = 3000

	// default number of seconds to try to solve in total before returning.
	defaultTimeout = 30.

	// check the validity of intermediate configurations every this much L2 joint-space distance.
	defaultResolution = 0.05

	// fraction of samples that are the goal configuration itself, to accelerate convergence.
	defaultGoalBias = 0.05

	// fraction of each joint's range used as the bounded extension step.
	defaultFrameStep = 0.015

	// default number of times to try to shortcut the path.
	defaultSmoothIter = 100

	// Number of IK solutions that should be generated before stopping.
	defaultMaxSolutions = 10

	// Max iterations of a single damped-least-squares descent before restarting.
	defaultIKIterations = 2000

	// Number of seeds each IK goroutine will try before giving up.
	defaultIKRestarts = 10

	// Default distance below which a pose is considered reached.
	defaultEpsilon = 1e-3

	// screw interpolation step sizes: radians of rotation and mm of translation per step.
	defaultScrewRotStep   = 0.05
	defaultScrewTransStep = 10.
)

// PlannerOptions are a set of options to be passed to the planner which specify how to solve a
// motion planning problem. Zero values fall back to the defaults above.
type PlannerOptions struct {
	// Max number of RRT iterations
	PlanIter int

	// Number of seconds before the sampling planner gives up
	Timeout float64

	// Check configurations every this much L2 joint-space movement
	Resolution float64

	// Fraction of samples biased directly at the goal
	GoalBias float64

	// Number of shortcutting attempts during path simplification
	SmoothIter int

	// Max number of IK solutions to seed the goal tree with
	MaxSolutions int

	// Max iterations per IK descent
	IKIterations int

	// Number of seeds per IK solver goroutine
	IKRestarts int

	// Distance below which a pose is considered reached
	Epsilon float64

	// Number of CPUs to use for parallel IK and nearest-neighbor lookups
	NumThreads int

	// Screw interpolation steps: radians of rotation and mm of translation per interpolated pose
	ScrewRotStep   float64
	ScrewTransStep float64
}

// NewBasicPlannerOptions specifies a set of basic options for the planner.
func NewBasicPlannerOptions() *PlannerOptions {
	opt := &PlannerOptions{}
	opt.PlanIter = defaultPlanIter
	opt.Timeout = defaultTimeout
	opt.Resolution = defaultResolution
	opt.GoalBias = defaultGoalBias
	opt.SmoothIter = defaultSmoothIter
	opt.MaxSolutions = defaultMaxSolutions
	opt.IKIterations = defaultIKIterations
	opt.IKRestarts = defaultIKRestarts
	opt.Epsilon = defaultEpsilon
	opt.NumThreads = defaultNumThreads()
	opt.ScrewRotStep = defaultScrewRotStep
	opt.ScrewTransStep = defaultScrewTransStep
	return opt
}

func defaultNumThreads() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}
