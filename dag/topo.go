package dag

import (
	"errors"
	"fmt"

	"tangle-sim/models"
)

var ErrCycle = errors.New("approval graph contains a cycle")

const (
	unvisited = iota
	visiting
	visited
)

type frame struct {
	id   models.NodeID
	next int // index of the next directly approved node to visit
}

// TopologicalSort orders nodes so that every node comes before everything
// it directly or transitively approves: newest first, genesis last.
//
// It is a depth first post-order over DirectlyApproved, reversed. Roots are
// taken in arrival order and children in edge order, so the result is
// deterministic for a given snapshot.
func TopologicalSort(g *Graph) ([]models.NodeID, error) {
	state := make([]uint8, len(g.nodes))
	result := make([]models.NodeID, 0, len(g.nodes))
	var stack []frame

	for _, n := range g.nodes {
		if state[n.ID] != unvisited {
			continue
		}
		state[n.ID] = visiting
		stack = append(stack, frame{id: n.ID})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.approved[top.id]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch state[child] {
				case visited:
				case visiting:
					return nil, fmt.Errorf("%w: node %d reached again from %d", ErrCycle, child, top.id)
				default:
					state[child] = visiting
					stack = append(stack, frame{id: child})
				}
				continue
			}
			state[top.id] = visited
			result = append(result, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	reverse(result)
	return result, nil
}

// oldestFirst is the topological order reversed: every node comes after
// everything it approves, genesis first.
func oldestFirst(g *Graph) ([]models.NodeID, error) {
	order, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	reverse(order)
	return order, nil
}

func reverse(ids []models.NodeID) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
