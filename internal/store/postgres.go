package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ratecore/rate-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Cashflow amounts are stored as JSONB arrays of decimal strings so no
// precision is lost; solver outputs (rate, residual) are DOUBLE PRECISION.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertAnalysis(ctx context.Context, a *model.Analysis) error {
	amounts, err := json.Marshal(a.Amounts)
	if err != nil {
		return fmt.Errorf("marshal amounts: %w", err)
	}
	dates, err := json.Marshal(a.Dates)
	if err != nil {
		return fmt.Errorf("marshal dates: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, kind, amounts, dates, guess, tolerance, rate, iterations, converged, residual, requested_by, created_at)
		 VALUES ($1, $2, $3::JSONB, $4::JSONB, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Kind, string(amounts), string(dates),
		a.Guess, a.Tolerance, a.Rate, a.Iterations, a.Converged, a.Residual,
		a.RequestedBy, a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var a model.Analysis
	var amountsS, datesS string

	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, amounts::TEXT, dates::TEXT,
		        guess, tolerance, rate, iterations, converged, residual,
		        requested_by, created_at
		 FROM analyses WHERE id = $1`, id).
		Scan(&a.ID, &a.Kind, &amountsS, &datesS,
			&a.Guess, &a.Tolerance, &a.Rate, &a.Iterations, &a.Converged, &a.Residual,
			&a.RequestedBy, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}

	if err := unmarshalSeries(amountsS, datesS, &a); err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, limit int) ([]model.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, amounts::TEXT, dates::TEXT,
		        guess, tolerance, rate, iterations, converged, residual,
		        requested_by, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

func (s *PostgresStore) ListAnalysesByRequester(ctx context.Context, requestedBy string) ([]model.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, amounts::TEXT, dates::TEXT,
		        guess, tolerance, rate, iterations, converged, residual,
		        requested_by, created_at
		 FROM analyses WHERE requested_by = $1 ORDER BY created_at DESC`, requestedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

func (s *PostgresStore) GetStats(ctx context.Context) (*model.AnalysisStats, error) {
	var stats model.AnalysisStats

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN converged THEN 1 ELSE 0 END), 0)
		 FROM analyses`).
		Scan(&stats.Total, &stats.Converged)
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.ConvergedShare = decimal.NewFromInt(stats.Converged).
			Div(decimal.NewFromInt(stats.Total)).Round(4)
	}
	return &stats, nil
}

// scanAnalyses reads pgx rows into Analysis slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAnalyses(rows pgxRows) ([]model.Analysis, error) {
	var analyses []model.Analysis
	for rows.Next() {
		var a model.Analysis
		var amountsS, datesS string

		if err := rows.Scan(&a.ID, &a.Kind, &amountsS, &datesS,
			&a.Guess, &a.Tolerance, &a.Rate, &a.Iterations, &a.Converged, &a.Residual,
			&a.RequestedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalSeries(amountsS, datesS, &a); err != nil {
			return nil, err
		}

		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// unmarshalSeries decodes the JSONB amount and date columns into the record.
func unmarshalSeries(amountsS, datesS string, a *model.Analysis) error {
	if err := json.Unmarshal([]byte(amountsS), &a.Amounts); err != nil {
		return fmt.Errorf("unmarshal amounts: %w", err)
	}
	if datesS != "" && datesS != "null" {
		var dates []time.Time
		if err := json.Unmarshal([]byte(datesS), &dates); err != nil {
			return fmt.Errorf("unmarshal dates: %w", err)
		}
		a.Dates = dates
	}
	return nil
}
