package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"github.com/armplanning/armplan/referenceframe"
)

// Trajectory is a time-parameterized joint-space path: sampled positions, velocities, and
// accelerations on a uniform-within-segment time grid. Times are strictly increasing and start
// at zero; Duration equals the final entry of Times.
type Trajectory struct {
	Times         []float64
	Positions     [][]float64
	Velocities    [][]float64
	Accelerations [][]float64
	Duration      float64
}

// segmentProfile is a synchronized rest-to-rest trapezoidal (or triangular) profile over one
// path segment. All joints share the duration of the slowest joint; each joint then gets the
// longest acceleration ramp that still covers its displacement, which keeps its peak velocity
// at or below the limit that sized the segment.
type segmentProfile struct {
	duration   float64
	accelRamps []float64 // per-joint ramp time, symmetric at both ends
	peakVels   []float64 // signed per-joint cruise velocity
	accels     []float64 // signed per-joint ramp acceleration
}

// TimeParameterize assigns timestamps to a joint-space path under per-joint velocity and
// acceleration limits, sampling the result every timeStep seconds plus segment endpoints. Each
// segment starts and ends at rest, so the concatenation is trivially continuous; within a
// segment all joints start and stop together.
func TimeParameterize(
	path [][]referenceframe.Input,
	velLimits, accLimits []float64,
	timeStep float64,
) (*Trajectory, error) {
	if len(path) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "cannot time-parameterize an empty path")
	}
	n := len(path[0])
	if timeStep <= 0 {
		return nil, errors.Wrapf(ErrInfeasibleTiming, "time step must be positive, got %f", timeStep)
	}
	if len(velLimits) != n || len(accLimits) != n {
		return nil, errors.Wrapf(ErrInfeasibleTiming,
			"limit lengths %d, %d do not match path DoF %d", len(velLimits), len(accLimits), n)
	}
	for i := 0; i < n; i++ {
		if velLimits[i] <= 0 || accLimits[i] <= 0 {
			return nil, errors.Wrapf(ErrInfeasibleTiming, "joint %d limits must be positive", i)
		}
	}

	traj := &Trajectory{}
	appendSample := func(t float64, pos, vel, acc []float64) {
		traj.Times = append(traj.Times, t)
		traj.Positions = append(traj.Positions, pos)
		traj.Velocities = append(traj.Velocities, vel)
		traj.Accelerations = append(traj.Accelerations, acc)
	}
	appendSample(0, referenceframe.InputsToFloats(path[0]), make([]float64, n), make([]float64, n))

	tOffset := 0.
	for seg := 0; seg+1 < len(path); seg++ {
		from := referenceframe.InputsToFloats(path[seg])
		to := referenceframe.InputsToFloats(path[seg+1])
		profile := planSegment(from, to, velLimits, accLimits)
		if profile.duration == 0 {
			continue
		}

		// sample the open interval, then land exactly on the segment end
		for t := timeStep; t < profile.duration; t += timeStep {
			pos, vel, acc := profile.eval(from, to, t)
			appendSample(tOffset+t, pos, vel, acc)
		}
		appendSample(tOffset+profile.duration, to, make([]float64, n), make([]float64, n))
		tOffset += profile.duration
	}
	traj.Duration = traj.Times[len(traj.Times)-1]
	return traj, nil
}

// planSegment sizes a synchronized profile for one segment. The slowest joint's minimum time
// governs; zero-displacement segments get zero duration.
func planSegment(from, to, velLimits, accLimits []float64) *segmentProfile {
	n := len(from)
	duration := 0.
	for i := 0; i < n; i++ {
		d := math.Abs(to[i] - from[i])
		if d == 0 {
			continue
		}
		v, a := velLimits[i], accLimits[i]
		var tMin float64
		if d <= v*v/a {
			// never reaches the velocity limit: triangular profile
			tMin = 2 * math.Sqrt(d/a)
		} else {
			tMin = d/v + v/a
		}
		if tMin > duration {
			duration = tMin
		}
	}

	profile := &segmentProfile{
		duration:   duration,
		accelRamps: make([]float64, n),
		peakVels:   make([]float64, n),
		accels:     make([]float64, n),
	}
	if duration == 0 {
		return profile
	}
	for i := 0; i < n; i++ {
		delta := to[i] - from[i]
		if delta == 0 {
			continue
		}
		d := math.Abs(delta)
		a := accLimits[i]
		// solve ta from d = a*ta*(T-ta); the smaller root keeps ta <= T/2.
		// T >= tMin guarantees the discriminant is non-negative and the peak velocity a*ta is
		// within this joint's limit.
		disc := duration*duration - 4*d/a
		if disc < 0 {
			disc = 0
		}
		ta := (duration - math.Sqrt(disc)) / 2
		sign := 1.
		if delta < 0 {
			sign = -1
		}
		profile.accelRamps[i] = ta
		profile.accels[i] = sign * a
		profile.peakVels[i] = sign * a * ta
	}
	return profile
}

// eval returns position, velocity, and acceleration for every joint at time t into the segment.
func (sp *segmentProfile) eval(from, to []float64, t float64) (pos, vel, acc []float64) {
	n := len(from)
	pos = make([]float64, n)
	vel = make([]float64, n)
	acc = make([]float64, n)
	for i := 0; i < n; i++ {
		ta := sp.accelRamps[i]
		a := sp.accels[i]
		vp := sp.peakVels[i]
		if a == 0 {
			pos[i] = from[i]
			continue
		}
		td := sp.duration - ta // decel start
		switch {
		case t < ta:
			pos[i] = from[i] + 0.5*a*t*t
			vel[i] = a * t
			acc[i] = a
		case t < td:
			pos[i] = from[i] + 0.5*a*ta*ta + vp*(t-ta)
			vel[i] = vp
		default:
			remaining := sp.duration - t
			pos[i] = to[i] - 0.5*a*remaining*remaining
			vel[i] = a * remaining
			acc[i] = -a
		}
	}
	return pos, vel, acc
}
