package dag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tangle-sim/logger"
	"tangle-sim/metrics"
	"tangle-sim/models"
)

// Analyze runs a full metrics pass over one snapshot: cumulative weights,
// exit probabilities for kind, then confidence. The result shares nothing
// with earlier passes.
func Analyze(g *Graph, kind models.StrategyKind, alpha float64) (models.Metrics, error) {
	start := time.Now()

	weights, err := ComputeCumulativeWeights(g)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("weights").Inc()
		return models.Metrics{}, fmt.Errorf("cumulative weights: %w", err)
	}

	var exit map[models.NodeID]float64
	switch kind {
	case models.Weighted:
		exit, err = ExitProbabilitiesWeighted(g, weights, alpha)
	default:
		exit, err = ComputeExitProbabilities(g, kind, alpha)
	}
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("exit_probability").Inc()
		return models.Metrics{}, fmt.Errorf("exit probabilities: %w", err)
	}

	confidence, err := ComputeConfidence(g, exit)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("confidence").Inc()
		return models.Metrics{}, fmt.Errorf("confidence: %w", err)
	}

	elapsed := time.Since(start)
	metrics.AnalysisDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	logger.Logger.Debug("Analyzed tangle",
		zap.String("strategy", string(kind)),
		zap.Int("nodes", g.Len()),
		zap.Duration("elapsed", elapsed))

	return models.Metrics{
		Strategy:          kind,
		Alpha:             alpha,
		CumulativeWeights: weights,
		ExitProbabilities: exit,
		Confidence:        confidence,
	}, nil
}

// CompareStrategies analyzes the same snapshot under every strategy kind.
// The passes only read g and each writes its own maps, so they run in
// parallel.
func CompareStrategies(ctx context.Context, g *Graph, alpha float64) (map[models.StrategyKind]models.Metrics, error) {
	results := make([]models.Metrics, len(models.StrategyKinds))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, kind := range models.StrategyKinds {
		i, kind := i, kind
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			m, err := Analyze(g, kind, alpha)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			results[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[models.StrategyKind]models.Metrics, len(results))
	for i, kind := range models.StrategyKinds {
		out[kind] = results[i]
	}
	return out, nil
}

// TransitionProbabilities returns the chance that a walk standing at id
// steps to each of its direct approvers. Uniform selection does not walk,
// so it yields an empty map, as does a tip.
func TransitionProbabilities(g *Graph, weights map[models.NodeID]int, id models.NodeID, kind models.StrategyKind, alpha float64) (map[models.NodeID]float64, error) {
	if !g.Has(id) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	approvers := g.approvers[id]
	out := make(map[models.NodeID]float64, len(approvers))

	switch kind {
	case models.Uniform:
	case models.Unweighted:
		for _, a := range approvers {
			out[a] = 1.0 / float64(len(approvers))
		}
	case models.Weighted:
		for _, a := range approvers {
			if _, ok := weights[a]; !ok {
				return nil, fmt.Errorf("%w: cumulative weight of node %d", ErrMissingMetric, a)
			}
		}
		factors := transitionWeights(approvers, weights, alpha)
		var sum float64
		for _, f := range factors {
			sum += f
		}
		for i, a := range approvers {
			out[a] = factors[i] / sum
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	return out, nil
}
