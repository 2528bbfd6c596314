package repository

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Memory implements Archive interface with in-memory storage
type Memory struct {
	mu   sync.RWMutex
	runs map[types.RunID]*model.RunRecord
}

var _ interfaces.Archive = (*Memory)(nil)

// NewMemory creates a new memory archive
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[types.RunID]*model.RunRecord),
	}
}

// PutRun saves a run record, replacing a record with the same ID
func (m *Memory) PutRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateRun(run); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[run.ID] = copyRun(run)
	return nil
}

// GetRun retrieves a run record by ID
func (m *Memory) GetRun(ctx context.Context, id types.RunID) (*model.RunRecord, error) {
	if id == "" {
		return nil, goerr.New("run ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrRunNotFound, "run not found in memory", goerr.V("id", id))
	}

	// Return a copy to prevent external modification
	return copyRun(run), nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 or less returns every run.
func (m *Memory) ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*model.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, copyRun(run))
	}
	sortRuns(runs)

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close does nothing for the memory archive
func (m *Memory) Close() error {
	return nil
}

func validateRun(run *model.RunRecord) error {
	if run == nil {
		return goerr.New("run is nil")
	}
	if run.ID == "" {
		return goerr.New("run ID is empty")
	}
	return nil
}

// sortRuns orders runs newest first. IDs break ties so that the order is stable.
func sortRuns(runs []*model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].GeneratedAt.Equal(runs[j].GeneratedAt) {
			return runs[i].GeneratedAt.After(runs[j].GeneratedAt)
		}
		return runs[i].ID > runs[j].ID
	})
}

func copyRun(run *model.RunRecord) *model.RunRecord {
	c := *run
	c.SeverityCounts = maps.Clone(run.SeverityCounts)
	c.ProductCounts = maps.Clone(run.ProductCounts)
	c.Files = append([]string(nil), run.Files...)
	return &c
}
