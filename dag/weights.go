package dag

import (
	"tangle-sim/models"
)

// ComputeCumulativeWeights returns, for every node, the number of nodes
// that directly or transitively approve it plus one for itself.
//
// Nodes are processed newest first, so by the time a node is reached every
// approver has already pushed itself and its own approver set down into it.
func ComputeCumulativeWeights(g *Graph) (map[models.NodeID]int, error) {
	order, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}

	approverSets := make([]map[models.NodeID]struct{}, len(g.nodes))
	for i := range approverSets {
		approverSets[i] = make(map[models.NodeID]struct{})
	}

	weights := make(map[models.NodeID]int, len(g.nodes))
	for _, id := range order {
		own := approverSets[id]
		for _, child := range g.approved[id] {
			set := approverSets[child]
			set[id] = struct{}{}
			for a := range own {
				set[a] = struct{}{}
			}
		}
		weights[id] = len(own) + 1
	}
	return weights, nil
}
