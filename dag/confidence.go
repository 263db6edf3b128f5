package dag

import (
	"errors"
	"fmt"

	"tangle-sim/models"
)

var ErrMissingMetric = errors.New("missing precomputed metric")

// ComputeConfidence sums, for every node, the exit probabilities of the
// tips that transitively approve it. Every tip must have an exit
// probability computed over the same snapshot.
func ComputeConfidence(g *Graph, exitProbabilities map[models.NodeID]float64) (map[models.NodeID]float64, error) {
	if exitProbabilities == nil {
		return nil, fmt.Errorf("%w: exit probabilities not computed", ErrMissingMetric)
	}
	for _, tip := range g.Tips() {
		if _, ok := exitProbabilities[tip]; !ok {
			return nil, fmt.Errorf("%w: exit probability of tip %d", ErrMissingMetric, tip)
		}
	}

	confidence := make(map[models.NodeID]float64, len(g.nodes))
	for _, n := range g.nodes {
		var sum float64
		// Reachable nodes come back sorted, so the summation order is fixed.
		for _, id := range g.ReachableBackward(n.ID).Nodes {
			if g.IsTip(id) {
				sum += exitProbabilities[id]
			}
		}
		confidence[n.ID] = sum
	}
	return confidence, nil
}
