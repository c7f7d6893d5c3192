package motionplan

import (
	"context"
	"math"
	"sync"

	"go.viam.com/utils"

	"github.com/armplanning/armplan/referenceframe"
)

const neighborsBeforeParallelization = 1000

type neighborManager struct {
	nnKeys    chan *node
	neighbors chan *neighbor
	nnLock    sync.RWMutex
	seedPos   *node
	ready     bool
	nCPU      int
}

type neighbor struct {
	dist float64
	node *node
}

// nearestNeighbor returns the node in the given tree closest to the seed in joint-space L2
// distance, scanning in parallel once the tree is large enough for that to pay off. Returns nil
// if the context is cancelled before a result is found.
func (nm *neighborManager) nearestNeighbor(
	ctx context.Context,
	seed *node,
	tree rrtMap,
) *node {
	if len(tree) > neighborsBeforeParallelization && nm.nCPU > 1 {
		// If the map is large, calculate distances in parallel
		return nm.parallelNearestNeighbor(ctx, seed, tree)
	}
	bestDist := math.Inf(1)
	var best *node
	for k := range tree {
		dist := referenceframe.InputsL2Distance(seed.q, k.q)
		if dist < bestDist {
			bestDist = dist
			best = k
		}
	}
	return best
}

func (nm *neighborManager) parallelNearestNeighbor(
	ctx context.Context,
	seed *node,
	tree rrtMap,
) *node {
	nm.ready = false
	nm.startNNworkers(ctx)
	defer close(nm.nnKeys)
	defer close(nm.neighbors)
	nm.nnLock.Lock()
	nm.seedPos = seed
	nm.nnLock.Unlock()

	// workers drain nnKeys until cancelled; pushing must bail out on cancellation too or this
	// loop blocks forever once the buffered channel fills with nothing consuming it
	for k := range tree {
		select {
		case nm.nnKeys <- k:
		case <-ctx.Done():
			return nil
		}
	}
	nm.nnLock.Lock()
	nm.ready = true
	nm.nnLock.Unlock()
	var best *node
	bestDist := math.Inf(1)
	returned := 0
	for returned < nm.nCPU {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case nn := <-nm.neighbors:
			returned++
			if nn.dist < bestDist {
				bestDist = nn.dist
				best = nn.node
			}
		default:
		}
	}
	return best
}

func (nm *neighborManager) startNNworkers(ctx context.Context) {
	nm.neighbors = make(chan *neighbor, nm.nCPU)
	nm.nnKeys = make(chan *node, nm.nCPU)
	for i := 0; i < nm.nCPU; i++ {
		utils.PanicCapturingGo(func() {
			nm.nnWorker(ctx)
		})
	}
}

func (nm *neighborManager) nnWorker(ctx context.Context) {
	var best *node
	bestDist := math.Inf(1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case k := <-nm.nnKeys:
			if k != nil {
				nm.nnLock.RLock()
				dist := referenceframe.InputsL2Distance(nm.seedPos.q, k.q)
				nm.nnLock.RUnlock()
				if dist < bestDist {
					bestDist = dist
					best = k
				}
			}
		default:
			nm.nnLock.RLock()
			if nm.ready {
				nm.nnLock.RUnlock()
				nm.neighbors <- &neighbor{bestDist, best}
				return
			}
			nm.nnLock.RUnlock()
		}
	}
}
