package dag

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tangle-sim/logger"
	"tangle-sim/metrics"
	"tangle-sim/models"
	"tangle-sim/repository"
)

// Simulator builds tangles on request, analyzes them and keeps the most
// recent runs in the archive.
type Simulator struct {
	repo         repository.RunRepositoryInterface
	maxRuns      int
	maxNodeCount int
	lastCreated  int64
	mux          sync.Mutex
}

func NewSimulator(repo repository.RunRepositoryInterface, maxRuns, maxNodeCount int) *Simulator {
	return &Simulator{repo: repo, maxRuns: maxRuns, maxNodeCount: maxNodeCount}
}

// ValidateParameters checks p against the build contract. A positive
// maxNodeCount also caps the node count.
func ValidateParameters(p models.Parameters, maxNodeCount int) error {
	switch {
	case p.NodeCount <= 0:
		return fmt.Errorf("%w: node_count must be positive", ErrInvalidParameter)
	case maxNodeCount > 0 && p.NodeCount > maxNodeCount:
		return fmt.Errorf("%w: node_count must not exceed %d", ErrInvalidParameter, maxNodeCount)
	case p.Lambda <= 0:
		return fmt.Errorf("%w: lambda must be positive", ErrInvalidParameter)
	case p.MinGap < 0:
		return fmt.Errorf("%w: min_gap must not be negative", ErrInvalidParameter)
	case p.Alpha < 0:
		return fmt.Errorf("%w: alpha must not be negative", ErrInvalidParameter)
	}
	if _, err := models.ParseStrategyKind(string(p.Strategy)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownStrategy, err)
	}
	return nil
}

// CreateRun grows a tangle from p, analyzes it under the same strategy and
// archives the result. A zero seed is replaced by a time based one, which
// is recorded so the run can be reproduced.
func (s *Simulator) CreateRun(p models.Parameters) (*models.Run, error) {
	kind, err := models.ParseStrategyKind(string(p.Strategy))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, err)
	}
	p.Strategy = kind
	if err := ValidateParameters(p, s.maxNodeCount); err != nil {
		return nil, err
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}

	g, err := Simulate(p)
	if err != nil {
		return nil, err
	}
	m, err := Analyze(g, p.Strategy, p.Alpha)
	if err != nil {
		return nil, err
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	// Creation times order the archive, so keep them strictly increasing
	created := nowMillis()
	if created <= s.lastCreated {
		created = s.lastCreated + 1
	}
	s.lastCreated = created

	run := &models.Run{
		ID:        uuid.NewString(),
		Params:    p,
		Tangle:    g.Tangle(),
		Metrics:   m,
		CreatedAt: created,
	}

	if err := s.repo.PutRun(run); err != nil {
		return nil, err
	}
	s.evict()

	logger.Logger.Info("Created simulation run",
		zap.String("run_id", run.ID),
		zap.String("strategy", string(p.Strategy)),
		zap.Int("nodes", p.NodeCount),
		zap.Int64("seed", p.Seed))
	return run, nil
}

// GetRun returns an archived run
func (s *Simulator) GetRun(id string) (*models.Run, error) {
	return s.repo.GetRun(id)
}

// ListRuns returns every archived run, oldest first
func (s *Simulator) ListRuns() ([]*models.Run, error) {
	return s.repo.ListRuns()
}

// Snapshot rebuilds the graph of a run. A positive upto limits it to the
// first upto nodes, i.e. the tangle as it stood at that growth step.
func (s *Simulator) Snapshot(id string, upto int) (*Graph, *models.Run, error) {
	run, err := s.repo.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	g, err := FromTangle(run.Tangle)
	if err != nil {
		return nil, nil, err
	}
	if upto > 0 && upto < g.Len() {
		g = g.Prefix(upto)
	}
	return g, run, nil
}

// evict drops the oldest runs beyond maxRuns. Callers hold s.mux.
func (s *Simulator) evict() {
	runs, err := s.repo.ListRuns()
	if err != nil {
		logger.Logger.Warn("Failed listing runs for eviction", zap.Error(err))
		return
	}
	if s.maxRuns > 0 {
		for len(runs) > s.maxRuns {
			if err := s.repo.DeleteRun(runs[0].ID); err != nil {
				logger.Logger.Warn("Failed evicting run",
					zap.String("run_id", runs[0].ID), zap.Error(err))
				break
			}
			runs = runs[1:]
		}
	}
	metrics.RunsStored.Set(float64(len(runs)))
}

// IsNotFound reports whether err means a missing run or node.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrRunNotFound) || errors.Is(err, ErrUnknownNode)
}

// nowMillis returns current time in milliseconds
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
