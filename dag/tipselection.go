package dag

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"tangle-sim/models"
)

var (
	ErrUnknownStrategy = errors.New("unknown tip selection strategy")
	ErrWalkTooLong     = errors.New("random walk exceeded the node count")
)

// tipsPerSelection is how many results a selector returns per call.
const tipsPerSelection = 2

// TipSelector picks the tips a new node will approve out of a candidate
// snapshot. The set of implementations is closed: Uniform, UnweightedWalk
// and WeightedWalk.
type TipSelector interface {
	Kind() models.StrategyKind
	// SelectTips returns up to two results, or none when the candidate
	// snapshot has no tip.
	SelectTips(candidates *Graph, alpha float64) ([]models.TipSelection, error)
	selector()
}

// NewTipSelector returns the selector for kind drawing from rng.
func NewTipSelector(kind models.StrategyKind, rng *rand.Rand) (TipSelector, error) {
	switch kind {
	case models.Uniform:
		return &UniformSelector{rng: rng}, nil
	case models.Unweighted:
		return &UnweightedWalkSelector{rng: rng}, nil
	case models.Weighted:
		return &WeightedWalkSelector{rng: rng}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
}

// UniformSelector draws each result uniformly from the candidate tips.
type UniformSelector struct {
	rng *rand.Rand
}

func (s *UniformSelector) Kind() models.StrategyKind { return models.Uniform }

func (s *UniformSelector) SelectTips(candidates *Graph, _ float64) ([]models.TipSelection, error) {
	tips := candidates.Tips()
	if len(tips) == 0 {
		return nil, nil
	}
	out := make([]models.TipSelection, tipsPerSelection)
	for i := range out {
		out[i] = models.TipSelection{
			Tip:  tips[s.rng.Intn(len(tips))],
			Path: []models.NodeID{},
		}
	}
	return out, nil
}

func (s *UniformSelector) selector() {}

// UnweightedWalkSelector walks from genesis towards the tips, stepping to
// a uniformly chosen direct approver each time.
type UnweightedWalkSelector struct {
	rng *rand.Rand
}

func (s *UnweightedWalkSelector) Kind() models.StrategyKind { return models.Unweighted }

func (s *UnweightedWalkSelector) SelectTips(candidates *Graph, _ float64) ([]models.TipSelection, error) {
	start, ok := candidates.Genesis()
	if !ok {
		return nil, nil
	}
	step := func(approvers []models.NodeID) models.NodeID {
		return approvers[s.rng.Intn(len(approvers))]
	}
	return walkN(candidates, start, step)
}

func (s *UnweightedWalkSelector) selector() {}

// WeightedWalkSelector walks from genesis towards the tips, preferring
// approvers with a larger cumulative weight. alpha sets how strongly.
type WeightedWalkSelector struct {
	rng *rand.Rand
}

func (s *WeightedWalkSelector) Kind() models.StrategyKind { return models.Weighted }

func (s *WeightedWalkSelector) SelectTips(candidates *Graph, alpha float64) ([]models.TipSelection, error) {
	start, ok := candidates.Genesis()
	if !ok {
		return nil, nil
	}
	weights, err := ComputeCumulativeWeights(candidates)
	if err != nil {
		return nil, err
	}
	step := func(approvers []models.NodeID) models.NodeID {
		return weightedChoose(s.rng, approvers, transitionWeights(approvers, weights, alpha))
	}
	return walkN(candidates, start, step)
}

func (s *WeightedWalkSelector) selector() {}

func walkN(g *Graph, start models.NodeID, step func([]models.NodeID) models.NodeID) ([]models.TipSelection, error) {
	out := make([]models.TipSelection, 0, tipsPerSelection)
	for i := 0; i < tipsPerSelection; i++ {
		sel, err := walk(g, start, step)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// walk moves from start until it reaches a tip, recording the full path.
func walk(g *Graph, start models.NodeID, step func([]models.NodeID) models.NodeID) (models.TipSelection, error) {
	current := start
	path := []models.NodeID{start}

	for !g.IsTip(current) {
		if len(path) > g.Len() {
			return models.TipSelection{}, fmt.Errorf("%w: started at %d", ErrWalkTooLong, start)
		}
		current = step(g.approvers[current])
		path = append(path, current)
	}
	return models.TipSelection{Tip: current, Path: path}, nil
}

// transitionWeights returns exp(alpha * (w - max)) for each approver. The
// shift by the largest weight keeps exp from overflowing and does not
// change the normalised distribution.
func transitionWeights(approvers []models.NodeID, weights map[models.NodeID]int, alpha float64) []float64 {
	if len(approvers) == 0 {
		return nil
	}
	maxWeight := weights[approvers[0]]
	for _, a := range approvers[1:] {
		if w := weights[a]; w > maxWeight {
			maxWeight = w
		}
	}
	out := make([]float64, len(approvers))
	for i, a := range approvers {
		out[i] = math.Exp(alpha * float64(weights[a]-maxWeight))
	}
	return out
}

// weightedChoose draws r in [0, sum) and returns the candidate just before
// the running sum first exceeds r, or the last candidate if it never does.
func weightedChoose(rng *rand.Rand, candidates []models.NodeID, weights []float64) models.NodeID {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	r := rng.Float64() * sum

	cumSum := weights[0]
	for i := 1; i < len(candidates); i++ {
		if r < cumSum {
			return candidates[i-1]
		}
		cumSum += weights[i]
	}
	return candidates[len(candidates)-1]
}
