package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ratecore/rate-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate aggregates) ---

func (s *CachedStore) InsertAnalysis(ctx context.Context, a *model.Analysis) error {
	if err := s.primary.InsertAnalysis(ctx, a); err != nil {
		return err
	}
	s.cacheAnalysis(ctx, a)
	// Invalidate stats; next read will re-populate.
	s.rdb.Del(ctx, statsKey())
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, analysisKey(id)).Bytes()
	if err == nil {
		var a model.Analysis
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	// Cache miss: read from primary.
	a, err := s.primary.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheAnalysis(ctx, a)
	return a, nil
}

func (s *CachedStore) GetStats(ctx context.Context) (*model.AnalysisStats, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, statsKey()).Bytes()
	if err == nil {
		var stats model.AnalysisStats
		if json.Unmarshal(data, &stats) == nil {
			return &stats, nil
		}
	}

	// Cache miss.
	stats, err := s.primary.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		s.rdb.Set(ctx, statsKey(), data, s.ttl)
	}
	return stats, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListAnalyses(ctx context.Context, limit int) ([]model.Analysis, error) {
	return s.primary.ListAnalyses(ctx, limit)
}

func (s *CachedStore) ListAnalysesByRequester(ctx context.Context, requestedBy string) ([]model.Analysis, error) {
	return s.primary.ListAnalysesByRequester(ctx, requestedBy)
}

// --- Cache helpers ---

func (s *CachedStore) cacheAnalysis(ctx context.Context, a *model.Analysis) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, analysisKey(a.ID), data, s.ttl)
	}
}

func analysisKey(id string) string { return fmt.Sprintf("analysis:%s", id) }
func statsKey() string             { return "analyses:stats" }
