package models

import (
	"fmt"
	"strings"
)

// StrategyKind names one of the supported tip selection schemes.
type StrategyKind string

const (
	Uniform    StrategyKind = "uniform"
	Unweighted StrategyKind = "unweighted"
	Weighted   StrategyKind = "weighted"
)

// StrategyKinds lists every supported kind in a stable order.
var StrategyKinds = []StrategyKind{Uniform, Unweighted, Weighted}

// ParseStrategyKind accepts the canonical names as well as the short
// labels used by the visualiser (UR, UWRW, WRW).
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uniform", "ur":
		return Uniform, nil
	case "unweighted", "uwrw":
		return Unweighted, nil
	case "weighted", "wrw":
		return Weighted, nil
	}
	return "", fmt.Errorf("unknown tip selection strategy %q", s)
}

// Label returns the human readable name shown next to the strategy picker.
func (k StrategyKind) Label() string {
	switch k {
	case Uniform:
		return "Uniform Random"
	case Unweighted:
		return "Unweighted Random Walk"
	case Weighted:
		return "Weighted Random Walk"
	}
	return string(k)
}
