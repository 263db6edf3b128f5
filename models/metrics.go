package models

// Metrics holds the derived per-node values of one analysis pass. It is
// computed against a single frozen snapshot and never updated in place.
type Metrics struct {
	Strategy          StrategyKind       `json:"strategy"`
	Alpha             float64            `json:"alpha"`
	CumulativeWeights map[NodeID]int     `json:"cumulative_weights"`
	ExitProbabilities map[NodeID]float64 `json:"exit_probabilities"`
	Confidence        map[NodeID]float64 `json:"confidence"`
}

// Run is an archived simulation: the generated tangle, the parameters
// used to grow it and the metrics computed over it.
type Run struct {
	ID        string     `json:"id"`
	Params    Parameters `json:"params"`
	Tangle    Tangle     `json:"tangle"`
	Metrics   Metrics    `json:"metrics"`
	CreatedAt int64      `json:"created_at"` // unix timestamp in ms
}

// Parameters drive one tangle build.
type Parameters struct {
	NodeCount int          `json:"node_count"`
	Lambda    float64      `json:"lambda"`
	MinGap    float64      `json:"min_gap"`
	Alpha     float64      `json:"alpha"`
	Strategy  StrategyKind `json:"strategy"`
	Seed      int64        `json:"seed"`
}
