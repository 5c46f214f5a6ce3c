package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ratecore/rate-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	analyses map[string]*model.Analysis
	order    []string // insertion order, oldest first
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses: make(map[string]*model.Analysis),
	}
}

func (s *MemoryStore) InsertAnalysis(_ context.Context, a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.analyses[a.ID]; exists {
		return fmt.Errorf("analysis %s already exists", a.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *a
	s.analyses[a.ID] = &copy
	s.order = append(s.order, a.ID)
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id string) (*model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s not found", id)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) ListAnalyses(_ context.Context, limit int) ([]model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.order) {
		limit = len(s.order)
	}

	result := make([]model.Analysis, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, *s.analyses[s.order[i]])
	}
	return result, nil
}

func (s *MemoryStore) ListAnalysesByRequester(_ context.Context, requestedBy string) ([]model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Analysis
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.analyses[s.order[i]]
		if a.RequestedBy == requestedBy {
			result = append(result, *a)
		}
	}
	return result, nil
}

// GetStats counts solve outcomes across all stored analyses.
func (s *MemoryStore) GetStats(_ context.Context) (*model.AnalysisStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats model.AnalysisStats
	stats.Total = int64(len(s.analyses))
	for _, a := range s.analyses {
		if a.Converged {
			stats.Converged++
		}
	}

	if stats.Total > 0 {
		stats.ConvergedShare = decimal.NewFromInt(stats.Converged).
			Div(decimal.NewFromInt(stats.Total)).Round(4)
	}
	return &stats, nil
}
