package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"

	"tangle-sim/db"
	"tangle-sim/models"
)

var ErrRunNotFound = errors.New("run not found")

const runPrefix = "run:"

// It abstracts the storage layer from the simulation logic
type RunRepositoryInterface interface {
	PutRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns() ([]*models.Run, error)
	DeleteRun(id string) error
}

// RunRepository implements the RunRepositoryInterface using LevelDB as the storage backend
type RunRepository struct {
	db *db.LevelDB
}

// NewRunRepository creates and returns a new RunRepository instance
func NewRunRepository(db *db.LevelDB) *RunRepository {
	return &RunRepository{db: db}
}

// PutRun stores a run under its ID
func (r *RunRepository) PutRun(run *models.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return r.db.Put(runKey(run.ID), data)
}

// GetRun retrieves a run by its ID
func (r *RunRepository) GetRun(id string) (*models.Run, error) {
	data, err := r.db.Get(runKey(id))
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s: %w", ErrRunNotFound, id, err)
	}
	if err != nil {
		return nil, err
	}
	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves every stored run, oldest first
func (r *RunRepository) ListRuns() ([]*models.Run, error) {
	iter := r.db.NewPrefixIterator([]byte(runPrefix))
	defer iter.Release()

	var runs []*models.Run
	for iter.Next() {
		var run models.Run
		if err := json.Unmarshal(iter.Value(), &run); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

// DeleteRun removes a run from the archive
func (r *RunRepository) DeleteRun(id string) error {
	return r.db.Delete(runKey(id))
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// sortRuns orders runs by creation time, then ID for equal timestamps.
func sortRuns(runs []*models.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt != runs[j].CreatedAt {
			return runs[i].CreatedAt < runs[j].CreatedAt
		}
		return runs[i].ID < runs[j].ID
	})
}
