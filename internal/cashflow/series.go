// Package cashflow normalizes raw cash-flow input into the (amount,
// time-offset) series consumed by the rate solver.
//
// Two layouts are supported:
//   - Periodic: amounts spaced one period apart; offset[i] = i.
//   - Dated: amounts stamped with calendar dates; offsets are actual day
//     counts from the earliest date divided by 365 (Actual/365).
//
// Sign convention: negative = outflow, positive = inflow. The package does
// not validate the sign pattern; a series with no sign change is accepted
// and will predictably fail to converge in the solver.
package cashflow

import (
	"errors"
	"time"
)

var (
	// ErrNoCashflows is returned when the amount sequence is empty.
	ErrNoCashflows = errors.New("cashflow: amounts must not be empty")

	// ErrLengthMismatch is returned when amounts and dates differ in length.
	ErrLengthMismatch = errors.New("cashflow: amounts and dates must have the same length")
)

// DaysPerYear is the Actual/365 day-count divisor used for dated series.
const DaysPerYear = 365.0

// Entry is one cash flow: a signed amount and its time offset in periods
// (periodic series) or years (dated series) from the reference point.
type Entry struct {
	Amount float64
	Offset float64
}

// Series is an ordered, immutable sequence of cash flows. It is built once
// per solve call and never mutated afterwards.
type Series []Entry

// Periodic builds a series for evenly spaced cash flows: offset[i] = i,
// with period 0 meaning "now".
func Periodic(amounts []float64) (Series, error) {
	if len(amounts) == 0 {
		return nil, ErrNoCashflows
	}

	s := make(Series, len(amounts))
	for i, amount := range amounts {
		s[i] = Entry{Amount: amount, Offset: float64(i)}
	}
	return s, nil
}

// Dated builds a series for irregularly spaced cash flows:
//
//	offset[i] = days(dates[i] − min(dates)) / 365
//
// Dates need not be sorted; the reference date is the earliest date in the
// set, not the positionally first one, so every offset is non-negative.
func Dated(amounts []float64, dates []time.Time) (Series, error) {
	if len(amounts) == 0 {
		return nil, ErrNoCashflows
	}
	if len(amounts) != len(dates) {
		return nil, ErrLengthMismatch
	}

	epoch := dates[0]
	for _, d := range dates[1:] {
		if d.Before(epoch) {
			epoch = d
		}
	}

	s := make(Series, len(amounts))
	for i, amount := range amounts {
		days := dates[i].Sub(epoch).Hours() / 24.0
		s[i] = Entry{Amount: amount, Offset: days / DaysPerYear}
	}
	return s, nil
}
