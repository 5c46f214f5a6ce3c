// Package model defines the core domain types shared across the rate engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Analysis is an immutable record of a completed rate solve.
// Once created, these are never modified or deleted.
// Schema: {kind, amounts, dates, guess, tolerance, rate, iterations, converged, requested_by, timestamp}
type Analysis struct {
	ID          string            `json:"id" db:"id"`
	Kind        string            `json:"kind" db:"kind"` // "irr" or "xirr"
	Amounts     []decimal.Decimal `json:"amounts" db:"amounts"`
	Dates       []time.Time       `json:"dates,omitempty" db:"dates"` // empty for periodic series
	Guess       float64           `json:"guess" db:"guess"`
	Tolerance   float64           `json:"tolerance" db:"tolerance"`
	Rate        *float64          `json:"rate" db:"rate"` // null when the solve did not converge
	Iterations  int               `json:"iterations" db:"iterations"`
	Converged   bool              `json:"converged" db:"converged"`
	Residual    *float64          `json:"residual,omitempty" db:"residual"` // null when non-finite
	RequestedBy string            `json:"requested_by" db:"requested_by"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// AnalysisStats aggregates solver outcomes across stored analyses.
type AnalysisStats struct {
	Total          int64           `json:"total"`
	Converged      int64           `json:"converged"`
	ConvergedShare decimal.Decimal `json:"converged_share"` // converged / total, zero when empty
}
