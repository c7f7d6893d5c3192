package motionplan

import (
	"github.com/armplanning/armplan/referenceframe"
)

// node wraps a configuration for planning purposes. Tree structure is kept outside the node, in an
// rrtMap from node to parent node, which avoids cyclic references during path extraction.
type node struct {
	q []referenceframe.Input
}

func newNode(q []referenceframe.Input) *node {
	return &node{q: q}
}

// rrtMap is a tree of configurations. Each key is a node, pointing at its parent; roots point at nil.
type rrtMap map[*node]*node

// nodePair groups the two nodes, one per tree, at which a bidirectional search connected.
type nodePair struct{ a, b *node }

// extractPath works backwards from the nodes where two trees connected to produce a single path
// from the start tree's root to the goal tree's root. If matched is true, the two connecting nodes
// hold the same configuration and one copy is dropped.
func extractPath(startMap, goalMap rrtMap, pair *nodePair, matched bool) [][]referenceframe.Input {
	// need to figure out which of the two nodes is in the start map
	var startReached, goalReached *node
	if _, ok := startMap[pair.a]; ok {
		startReached, goalReached = pair.a, pair.b
	} else {
		startReached, goalReached = pair.b, pair.a
	}

	// extract the path to the seed
	path := make([][]referenceframe.Input, 0)
	for startReached != nil {
		path = append(path, startReached.q)
		startReached = startMap[startReached]
	}

	// reverse the slice
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	if goalReached != nil {
		if matched {
			// skip goalReached node and go directly to its parent in order to not repeat this node
			goalReached = goalMap[goalReached]
		}

		// extract the path to the goal
		for goalReached != nil {
			path = append(path, goalReached.q)
			goalReached = goalMap[goalReached]
		}
	}
	return path
}
