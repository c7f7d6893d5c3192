package motionplan

import (
	spatial "github.com/armplanning/armplan/spatialmath"
)

// orientationDistanceScaling weighs radians of orientation error against mm of translation error
// when the two are combined into a single score.
const orientationDistanceScaling = 20.

// StateMetric are functions which, given a pose, produce some score. Lower is better.
type StateMetric func(spatial.Pose) float64

// NewSquaredNormMetric is the default distance function between two poses to be used for gradient descent.
func NewSquaredNormMetric(goal spatial.Pose) StateMetric {
	return func(position spatial.Pose) float64 {
		delta := weightedPoseDelta(position, goal)
		norm := 0.
		for _, v := range delta {
			norm += v * v
		}
		return norm
	}
}

// weightedPoseDelta returns the 6-vector difference between two poses with the orientation
// components scaled so that they are commensurate with mm of translation.
func weightedPoseDelta(from, to spatial.Pose) []float64 {
	delta := spatial.PoseDelta(from, to)
	for i := 3; i < 6; i++ {
		delta[i] *= orientationDistanceScaling
	}
	return delta
}
