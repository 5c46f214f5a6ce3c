// Package limits enforces request-size guards on solver and schedule
// inputs.
//
// Every Newton iteration walks the full cashflow series, so cost grows
// linearly with series length, and schedule generation allocates one row
// per period. This package bounds both before any work starts, and caps
// individual cashflow magnitudes so a single entry cannot dominate the
// residual into overflow.
package limits

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrSeriesTooLong is returned when a cashflow series exceeds the
	// maximum entry count.
	ErrSeriesTooLong = errors.New("limits: cashflow series exceeds maximum length")

	// ErrAmountTooLarge is returned when a single cashflow amount exceeds
	// the maximum absolute magnitude.
	ErrAmountTooLarge = errors.New("limits: cashflow amount exceeds maximum magnitude")

	// ErrTermTooLong is returned when an amortization term exceeds the
	// maximum period count.
	ErrTermTooLong = errors.New("limits: term exceeds maximum period count")
)

// RequestGuard bounds the size of solver and schedule requests.
type RequestGuard struct {
	// MaxSeriesLen is the maximum number of entries in a cashflow series.
	MaxSeriesLen int

	// MaxAmount is the maximum absolute magnitude of a single cashflow.
	MaxAmount decimal.Decimal

	// MaxTermPeriods is the maximum number of periods in an amortization
	// schedule.
	MaxTermPeriods int
}

// NewRequestGuard creates a guard with the given caps.
func NewRequestGuard(maxSeriesLen int, maxAmount decimal.Decimal, maxTermPeriods int) *RequestGuard {
	if maxSeriesLen < 1 {
		maxSeriesLen = 1
	}
	if maxTermPeriods < 1 {
		maxTermPeriods = 1
	}
	return &RequestGuard{
		MaxSeriesLen:   maxSeriesLen,
		MaxAmount:      maxAmount,
		MaxTermPeriods: maxTermPeriods,
	}
}

// CheckSeries validates a cashflow series against the length and
// magnitude caps. Returns nil when the series is within limits, or an
// error describing the violation.
func (g *RequestGuard) CheckSeries(amounts []decimal.Decimal) error {
	if len(amounts) > g.MaxSeriesLen {
		return ErrSeriesTooLong
	}
	for _, a := range amounts {
		if a.Abs().GreaterThan(g.MaxAmount) {
			return ErrAmountTooLarge
		}
	}
	return nil
}

// CheckTerm validates an amortization term against the period cap.
func (g *RequestGuard) CheckTerm(periods int) error {
	if periods > g.MaxTermPeriods {
		return ErrTermTooLong
	}
	return nil
}
