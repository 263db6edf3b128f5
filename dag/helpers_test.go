package dag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tangle-sim/models"
)

// newGraph builds a snapshot of n nodes with ids 0..n-1 and the given
// approver -> approved pairs.
func newGraph(t *testing.T, n int, edges ...[2]int) *Graph {
	t.Helper()
	nodes := make([]models.Node, n)
	for i := range nodes {
		nodes[i] = models.Node{ID: models.NodeID(i), Time: float64(i)}
	}
	es := make([]models.Edge, len(edges))
	for i, e := range edges {
		es[i] = models.Edge{Approver: models.NodeID(e[0]), Approved: models.NodeID(e[1])}
	}
	g, err := NewGraph(nodes, es)
	require.NoError(t, err)
	return g
}

func ids(v ...int) []models.NodeID {
	out := make([]models.NodeID, len(v))
	for i, x := range v {
		out[i] = models.NodeID(x)
	}
	return out
}

// chainToGenesis is 0 <- 1 <- ... <- n-1.
func chainToGenesis(t *testing.T, n int) *Graph {
	t.Helper()
	edges := make([][2]int, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, [2]int{i, i - 1})
	}
	return newGraph(t, n, edges...)
}

// vGraph has two branches of length two hanging off genesis.
func vGraph(t *testing.T) *Graph {
	return newGraph(t, 5, [2]int{1, 0}, [2]int{2, 1}, [2]int{3, 0}, [2]int{4, 3})
}

// forkGraph is genesis approved by 1 and 2, with 2 approved by 3 and 4.
func forkGraph(t *testing.T) *Graph {
	return newGraph(t, 5, [2]int{1, 0}, [2]int{2, 0}, [2]int{3, 2}, [2]int{4, 2})
}

func diamondGraph(t *testing.T) *Graph {
	return newGraph(t, 4, [2]int{1, 0}, [2]int{2, 0}, [2]int{3, 2}, [2]int{3, 1})
}
