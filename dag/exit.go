package dag

import (
	"fmt"

	"tangle-sim/models"
)

// ComputeExitProbabilities returns, for every node, the probability that a
// walk of the given scheme started at genesis ends at (Uniform) or passes
// through (walk schemes) that node. The weighted scheme computes cumulative
// weights over the same snapshot first.
func ComputeExitProbabilities(g *Graph, kind models.StrategyKind, alpha float64) (map[models.NodeID]float64, error) {
	switch kind {
	case models.Uniform:
		return ExitProbabilitiesUniform(g), nil
	case models.Unweighted:
		return ExitProbabilitiesUnweighted(g)
	case models.Weighted:
		weights, err := ComputeCumulativeWeights(g)
		if err != nil {
			return nil, err
		}
		return ExitProbabilitiesWeighted(g, weights, alpha)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
}

// ExitProbabilitiesUniform spreads probability evenly over the tips.
// Non-tips get zero.
func ExitProbabilitiesUniform(g *Graph) map[models.NodeID]float64 {
	probs := make(map[models.NodeID]float64, len(g.nodes))
	for _, n := range g.nodes {
		probs[n.ID] = 0
	}
	tips := g.Tips()
	if len(tips) == 0 {
		return probs
	}
	p := 1.0 / float64(len(tips))
	for _, tip := range tips {
		probs[tip] = p
	}
	return probs
}

// ExitProbabilitiesUnweighted pushes probability from genesis towards the
// tips, splitting it evenly between the direct approvers of each node.
func ExitProbabilitiesUnweighted(g *Graph) (map[models.NodeID]float64, error) {
	return flowExitProbabilities(g, func(node, child models.NodeID, inflow float64) float64 {
		n := len(g.approvers[child])
		if n == 0 {
			return 0
		}
		return inflow / float64(n)
	})
}

// ExitProbabilitiesWeighted pushes probability from genesis towards the
// tips, splitting it between direct approvers by the weighted walk's
// softmax over cumulative weights.
func ExitProbabilitiesWeighted(g *Graph, weights map[models.NodeID]int, alpha float64) (map[models.NodeID]float64, error) {
	for _, n := range g.nodes {
		if _, ok := weights[n.ID]; !ok {
			return nil, fmt.Errorf("%w: cumulative weight of node %d", ErrMissingMetric, n.ID)
		}
	}
	return flowExitProbabilities(g, func(node, child models.NodeID, inflow float64) float64 {
		own, sum := transitionShare(g.approvers[child], node, weights, alpha)
		if sum == 0 {
			return 0
		}
		// Multiply before dividing so alpha = 0 matches the unweighted
		// flow bit for bit.
		return inflow * own / sum
	})
}

// flowExitProbabilities is the forward dynamic program shared by the walk
// schemes. Nodes are visited oldest first, so each node only reads values
// of nodes it approves, which are already final. flow(node, child, inflow)
// is the part of child's probability inflow that moves on to node.
func flowExitProbabilities(g *Graph, flow func(node, child models.NodeID, inflow float64) float64) (map[models.NodeID]float64, error) {
	probs := make(map[models.NodeID]float64, len(g.nodes))
	genesis, ok := g.Genesis()
	if !ok {
		return probs, nil
	}
	order, err := oldestFirst(g)
	if err != nil {
		return nil, err
	}

	for _, id := range order {
		probs[id] = 0
	}
	probs[genesis] = 1

	for _, id := range order {
		for _, child := range g.approved[id] {
			probs[id] += flow(id, child, probs[child])
		}
	}
	return probs, nil
}

// transitionShare returns node's softmax factor among approvers and the
// sum of all factors. An empty approver set yields zeros.
func transitionShare(approvers []models.NodeID, node models.NodeID, weights map[models.NodeID]int, alpha float64) (own, sum float64) {
	factors := transitionWeights(approvers, weights, alpha)
	for i, a := range approvers {
		sum += factors[i]
		if a == node {
			own = factors[i]
		}
	}
	return own, sum
}
