package models

// NodeID identifies a node by its arrival order; genesis is 0.
type NodeID int

type Node struct {
	ID    NodeID     `json:"id"`              // arrival index
	Time  float64    `json:"time"`            // arrival time, genesis at 0
	Paths [][]NodeID `json:"paths,omitempty"` // walk paths taken while choosing this node's tips
}

// Edge is an approval: Approver (newer) endorses Approved (older).
type Edge struct {
	Approver NodeID `json:"source"`
	Approved NodeID `json:"target"`
}

// Tangle is the plain, serialisable form of a generated graph.
type Tangle struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// TipSelection is one result of a tip selection round.
type TipSelection struct {
	Tip  NodeID   `json:"tip"`
	Path []NodeID `json:"path"`
}
