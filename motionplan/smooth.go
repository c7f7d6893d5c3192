package motionplan

import (
	"context"
	"math/rand"

	"github.com/armplanning/armplan/referenceframe"
)

// smoothPath shortens a planned path by repeatedly picking two random waypoints and splicing a
// straight joint-space segment between them when that segment is valid. The output visits a subset
// of the input waypoints plus interpolated junctions; its endpoints are always preserved.
func smoothPath(
	ctx context.Context,
	validator *pathValidator,
	randseed *rand.Rand,
	path [][]referenceframe.Input,
	iterations int,
) [][]referenceframe.Input {
	for iter := 0; iter < iterations && len(path) > 2; iter++ {
		select {
		case <-ctx.Done():
			return path
		default:
		}

		// pick two distinct non-adjacent waypoints, i < j
		i := randseed.Intn(len(path) - 2)
		j := i + 2 + randseed.Intn(len(path)-i-2)
		if !validator.checkPath(path[i], path[j]) {
			continue
		}
		newPath := make([][]referenceframe.Input, 0, len(path)-(j-i)+1)
		newPath = append(newPath, path[:i+1]...)
		newPath = append(newPath, path[j:]...)
		path = newPath
	}
	return simpleSmoothStep(validator, path)
}

// simpleSmoothStep makes one deterministic sweep dropping any waypoint whose neighbors connect
// directly, catching easy cuts the random pass may have missed.
func simpleSmoothStep(validator *pathValidator, path [][]referenceframe.Input) [][]referenceframe.Input {
	for i := 1; i < len(path)-1; {
		if validator.checkPath(path[i-1], path[i+1]) {
			path = append(path[:i], path[i+1:]...)
			continue
		}
		i++
	}
	return path
}
