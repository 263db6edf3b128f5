package dag

import (
	"errors"
	"fmt"
	"sort"

	"tangle-sim/models"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownNode      = errors.New("unknown node")
)

// Graph is an immutable snapshot of a tangle with approval indexes built
// once at construction. Node ids are dense and equal to the arrival index.
type Graph struct {
	nodes []models.Node
	edges []models.Edge

	approvers [][]models.NodeID // approvers[v]: every u with edge (u, v), in edge order
	approved  [][]models.NodeID // approved[u]: every v with edge (u, v), in edge order
	inEdges   [][]int           // edge indexes by approved node
	outEdges  [][]int           // edge indexes by approver node
}

// NewGraph copies nodes and edges into a snapshot. Node i must carry id i
// and every edge must reference existing nodes. Acyclicity is not checked
// here; the orderer fails fast if it is violated.
func NewGraph(nodes []models.Node, edges []models.Edge) (*Graph, error) {
	g := &Graph{
		nodes:     make([]models.Node, len(nodes)),
		edges:     make([]models.Edge, len(edges)),
		approvers: make([][]models.NodeID, len(nodes)),
		approved:  make([][]models.NodeID, len(nodes)),
		inEdges:   make([][]int, len(nodes)),
		outEdges:  make([][]int, len(nodes)),
	}
	copy(g.nodes, nodes)
	copy(g.edges, edges)

	for i, n := range g.nodes {
		if int(n.ID) != i {
			return nil, fmt.Errorf("%w: node at index %d has id %d", ErrInvalidParameter, i, n.ID)
		}
	}
	for i, e := range g.edges {
		if !g.Has(e.Approver) || !g.Has(e.Approved) {
			return nil, fmt.Errorf("%w: edge %d -> %d references a missing node", ErrUnknownNode, e.Approver, e.Approved)
		}
		g.approvers[e.Approved] = append(g.approvers[e.Approved], e.Approver)
		g.approved[e.Approver] = append(g.approved[e.Approver], e.Approved)
		g.inEdges[e.Approved] = append(g.inEdges[e.Approved], i)
		g.outEdges[e.Approver] = append(g.outEdges[e.Approver], i)
	}
	return g, nil
}

// FromTangle builds a snapshot from its serialised form.
func FromTangle(t models.Tangle) (*Graph, error) {
	return NewGraph(t.Nodes, t.Edges)
}

// Tangle returns a copy of the snapshot in serialisable form.
func (g *Graph) Tangle() models.Tangle {
	return models.Tangle{Nodes: g.Nodes(), Edges: g.Edges()}
}

// Prefix returns the snapshot made of the first k nodes and the edges whose
// approver is among them. Arrival times increase with id, so this is the
// tangle as it looked just after node k-1 arrived.
func (g *Graph) Prefix(k int) *Graph {
	if k < 0 {
		k = 0
	}
	if k > len(g.nodes) {
		k = len(g.nodes)
	}
	edges := make([]models.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if int(e.Approver) < k && int(e.Approved) < k {
			edges = append(edges, e)
		}
	}
	// Indexes are valid by construction of g.
	p, _ := NewGraph(g.nodes[:k], edges)
	return p
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Has(id models.NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id models.NodeID) (models.Node, bool) {
	if !g.Has(id) {
		return models.Node{}, false
	}
	return g.nodes[id], true
}

// Nodes returns a copy of the node sequence in arrival order.
func (g *Graph) Nodes() []models.Node {
	out := make([]models.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge set in insertion order.
func (g *Graph) Edges() []models.Edge {
	out := make([]models.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Genesis returns the first node in arrival order.
func (g *Graph) Genesis() (models.NodeID, bool) {
	if len(g.nodes) == 0 {
		return 0, false
	}
	return g.nodes[0].ID, true
}

// DirectApprovers returns every node with an edge to id.
func (g *Graph) DirectApprovers(id models.NodeID) []models.NodeID {
	if !g.Has(id) {
		return nil
	}
	return cloneIDs(g.approvers[id])
}

// DirectlyApproved returns every node id has an edge to.
func (g *Graph) DirectlyApproved(id models.NodeID) []models.NodeID {
	if !g.Has(id) {
		return nil
	}
	return cloneIDs(g.approved[id])
}

// IsTip reports whether nothing approves id yet.
func (g *Graph) IsTip(id models.NodeID) bool {
	return g.Has(id) && len(g.approvers[id]) == 0
}

// Tips returns the unapproved nodes in arrival order.
func (g *Graph) Tips() []models.NodeID {
	var tips []models.NodeID
	for _, n := range g.nodes {
		if len(g.approvers[n.ID]) == 0 {
			tips = append(tips, n.ID)
		}
	}
	return tips
}

// Reachable is the result of a traversal: the visited nodes (root
// excluded unless reached through a cycle) and the edges followed.
type Reachable struct {
	Nodes []models.NodeID `json:"nodes"`
	Edges []models.Edge   `json:"edges"`
}

// Contains reports whether id was visited.
func (r Reachable) Contains(id models.NodeID) bool {
	i := sort.Search(len(r.Nodes), func(i int) bool { return r.Nodes[i] >= id })
	return i < len(r.Nodes) && r.Nodes[i] == id
}

// ReachableForward returns everything root transitively approves.
func (g *Graph) ReachableForward(root models.NodeID) Reachable {
	return g.traverse(root, g.outEdges, func(e models.Edge) models.NodeID { return e.Approved })
}

// ReachableBackward returns everything that transitively approves root.
func (g *Graph) ReachableBackward(root models.NodeID) Reachable {
	return g.traverse(root, g.inEdges, func(e models.Edge) models.NodeID { return e.Approver })
}

// traverse is an explicit-stack depth first search over the given edge
// index, collecting visited nodes and edges.
func (g *Graph) traverse(root models.NodeID, index [][]int, next func(models.Edge) models.NodeID) Reachable {
	if !g.Has(root) {
		return Reachable{Nodes: []models.NodeID{}, Edges: []models.Edge{}}
	}

	visitedNodes := make(map[models.NodeID]struct{})
	visitedEdges := make(map[int]struct{})
	stack := []models.NodeID{root}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ei := range index[current] {
			visitedEdges[ei] = struct{}{}
			target := next(g.edges[ei])
			if _, ok := visitedNodes[target]; !ok {
				visitedNodes[target] = struct{}{}
				stack = append(stack, target)
			}
		}
	}

	r := Reachable{
		Nodes: make([]models.NodeID, 0, len(visitedNodes)),
		Edges: make([]models.Edge, 0, len(visitedEdges)),
	}
	for id := range visitedNodes {
		r.Nodes = append(r.Nodes, id)
	}
	sort.Slice(r.Nodes, func(i, j int) bool { return r.Nodes[i] < r.Nodes[j] })

	edgeIdx := make([]int, 0, len(visitedEdges))
	for ei := range visitedEdges {
		edgeIdx = append(edgeIdx, ei)
	}
	sort.Ints(edgeIdx)
	for _, ei := range edgeIdx {
		r.Edges = append(r.Edges, g.edges[ei])
	}
	return r
}

func cloneIDs(ids []models.NodeID) []models.NodeID {
	out := make([]models.NodeID, len(ids))
	copy(out, ids)
	return out
}
