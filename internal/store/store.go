// Package store defines the persistence interface for the rate engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/ratecore/rate-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Immutable analysis records ---

	// InsertAnalysis appends an immutable solve record.
	InsertAnalysis(ctx context.Context, a *model.Analysis) error

	// GetAnalysis retrieves an analysis by its ID.
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)

	// ListAnalyses returns the most recent analyses, newest first.
	ListAnalyses(ctx context.Context, limit int) ([]model.Analysis, error)

	// ListAnalysesByRequester returns all analyses for a requester, newest first.
	ListAnalysesByRequester(ctx context.Context, requestedBy string) ([]model.Analysis, error)

	// --- Aggregate queries ---

	// GetStats computes solve-outcome aggregates across all analyses.
	GetStats(ctx context.Context) (*model.AnalysisStats, error)
}
