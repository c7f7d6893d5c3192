package motionplan

import "errors"

// Status describes the outcome of a planning request. Planning failure is an expected, frequent
// outcome, so outcomes are reported as values rather than thrown across the planning boundary.
type Status string

// The set of statuses a planning request can return.
const (
	Success               Status = "Success"
	IKFailure             Status = "IKFailure"
	PlanningFailure       Status = "PlanningFailure"
	InfeasibleTimingError Status = "InfeasibleTimingError"
	UnknownLinkError      Status = "UnknownLinkError"
	InvalidConfigError    Status = "InvalidConfigError"
)

// Sentinel errors for the failure taxonomy. Callers branch on these with errors.Is; additional
// context is wrapped around them at the point of failure.
var (
	// ErrIKSolve is returned when inverse kinematics could not converge to the requested pose.
	ErrIKSolve = errors.New("unable to solve for position")

	// ErrPlanningFailed is returned when no collision-free path was found within budget.
	ErrPlanningFailed = errors.New("motion planner failed to find path")

	// ErrInfeasibleTiming is returned when a path cannot be time-parameterized under the given limits.
	ErrInfeasibleTiming = errors.New("cannot time-parameterize path within limits")

	// ErrUnknownLink is returned when a request names a link the model does not have.
	ErrUnknownLink = errors.New("no link with name in model")

	// ErrInvalidConfig is returned for malformed or out-of-limit configurations.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// statusFromError maps an error to the Status reported to the caller.
func statusFromError(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrIKSolve):
		return IKFailure
	case errors.Is(err, ErrInfeasibleTiming):
		return InfeasibleTimingError
	case errors.Is(err, ErrUnknownLink):
		return UnknownLinkError
	case errors.Is(err, ErrInvalidConfig):
		return InvalidConfigError
	default:
		return PlanningFailure
	}
}
