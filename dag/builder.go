package dag

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"tangle-sim/logger"
	"tangle-sim/metrics"
	"tangle-sim/models"
)

// maxTipsPerNode bounds the distinct approval edges a new node may add.
const maxTipsPerNode = 3

// BuildTangle grows a tangle of nodeCount nodes. Arrivals follow a Poisson
// process of rate lambda, the first one landing minGap after genesis. Each
// new node may only approve nodes that arrived more than minGap before it,
// and approves every distinct tip the selector returns, up to three.
//
// A node whose selection comes back empty is kept with no outgoing edges;
// the build does not retry with a wider window.
func BuildTangle(nodeCount int, lambda, minGap float64, selector TipSelector, alpha float64, rng *rand.Rand) (*Graph, error) {
	switch {
	case nodeCount <= 0:
		return nil, fmt.Errorf("%w: node count must be positive, got %d", ErrInvalidParameter, nodeCount)
	case lambda <= 0:
		return nil, fmt.Errorf("%w: lambda must be positive, got %g", ErrInvalidParameter, lambda)
	case minGap < 0:
		return nil, fmt.Errorf("%w: min gap must not be negative, got %g", ErrInvalidParameter, minGap)
	case selector == nil:
		return nil, fmt.Errorf("%w: no tip selector", ErrInvalidParameter)
	}

	start := time.Now()
	kind := string(selector.Kind())

	nodes := make([]models.Node, 0, nodeCount)
	nodes = append(nodes, models.Node{ID: 0, Time: 0})
	t := minGap
	for len(nodes) < nodeCount {
		t += rng.ExpFloat64() / lambda
		nodes = append(nodes, models.Node{ID: models.NodeID(len(nodes)), Time: t})
	}

	var edges []models.Edge
	window := 0 // nodes[:window] arrived more than minGap before the current node
	for i := range nodes {
		node := &nodes[i]
		for window < i && nodes[window].Time < node.Time-minGap {
			window++
		}

		candidates, err := NewGraph(nodes[:window], candidateEdges(edges, window))
		if err != nil {
			return nil, err
		}
		selections, err := selector.SelectTips(candidates, alpha)
		if err != nil {
			return nil, fmt.Errorf("select tips for node %d: %w", node.ID, err)
		}

		if len(selections) == 0 {
			if node.ID != 0 {
				metrics.EmptyTipSelections.WithLabelValues(kind).Inc()
				logger.Logger.Debug("No tips available, node left unattached",
					zap.Int("node", int(node.ID)), zap.Int("candidates", window))
			}
			continue
		}

		seen := make(map[models.NodeID]struct{}, maxTipsPerNode)
		for _, sel := range selections {
			if len(sel.Path) > 0 {
				node.Paths = append(node.Paths, sel.Path)
			}
			if _, dup := seen[sel.Tip]; dup || len(seen) == maxTipsPerNode {
				continue
			}
			seen[sel.Tip] = struct{}{}
			edges = append(edges, models.Edge{Approver: node.ID, Approved: sel.Tip})
		}

		logger.Logger.Debug("Attached node",
			zap.Int("node", int(node.ID)),
			zap.Float64("time", node.Time),
			zap.Int("approvals", len(seen)))
	}

	g, err := NewGraph(nodes, edges)
	if err != nil {
		return nil, err
	}

	metrics.TanglesBuilt.WithLabelValues(kind).Inc()
	metrics.NodesGenerated.Add(float64(nodeCount))
	metrics.BuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return g, nil
}

// Simulate builds a tangle from p with a source seeded by p.Seed, so equal
// parameters always give an identical tangle.
func Simulate(p models.Parameters) (*Graph, error) {
	rng := rand.New(rand.NewSource(p.Seed))
	selector, err := NewTipSelector(p.Strategy, rng)
	if err != nil {
		return nil, err
	}
	return BuildTangle(p.NodeCount, p.Lambda, p.MinGap, selector, p.Alpha, rng)
}

// candidateEdges returns the edges whose approver is among the first n
// nodes. Edges are appended in approver order, so this is a prefix.
func candidateEdges(edges []models.Edge, n int) []models.Edge {
	end := 0
	for end < len(edges) && int(edges[end].Approver) < n {
		end++
	}
	return edges[:end]
}
