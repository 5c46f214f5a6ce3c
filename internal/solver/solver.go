// Package solver implements the Newton-Raphson rate finder shared by IRR
// and XIRR: the discount rate that zeroes the net present value of a
// cash-flow series.
//
// Each iteration evaluates the NPV residual and its analytic derivative in
// a single pass over the series:
//
//	f(r)  = Σ cf[i] / (1+r)^t[i]
//	f'(r) = Σ −t[i]·cf[i] / (1+r)^(t[i]+1)
//
// and refines the rate with r' = r − f(r)/f'(r). The (rate, residual,
// derivative) triple produced while advancing one step is carried forward
// as the input of the next, so the work stays linear in steps × flows with
// no closing re-evaluation pass.
//
// The iteration chain is bounded by MaxIterations and exits early once the
// residual magnitude drops below tolerance. Numeric pathologies (a zero
// derivative, a rate at or below −1 making fractional powers undefined, a
// series with no root near the guess) never raise — they terminate the
// chain and surface as a non-converged Result with a nil rate. Only
// malformed input shape is reported as an error.
package solver

import (
	"math"
	"time"

	"github.com/ratecore/rate-engine/internal/cashflow"
)

const (
	// MaxIterations bounds the Newton update chain. The budget is a
	// compile-time constant; callers cannot request more steps.
	MaxIterations = 16

	// DefaultGuess is the starting rate used when the caller has no better
	// estimate.
	DefaultGuess = 0.1

	// DefaultTolerance is the residual magnitude below which a rate counts
	// as a root.
	DefaultTolerance = 1e-7

	// RateDigits is the number of decimal digits a converged rate is
	// rounded to.
	RateDigits = 10
)

// Result is the terminal value of one solve run. Rate is nil unless the
// solver converged; Iterations counts the Newton updates actually
// performed, which is at most MaxIterations.
type Result struct {
	Rate       *float64
	Iterations int
	Converged  bool
	Residual   float64
}

// state is the carry-forward triple for one iterate. Every step builds a
// fresh state from the previous one; nothing is mutated in place.
type state struct {
	rate     float64
	residual float64
	deriv    float64
}

// evaluate computes the NPV residual and its derivative at the given rate
// in one traversal of the series. Rates at or below −1 make (1+rate)
// non-positive and the fractional powers of a dated series undefined, so
// the pair degrades to NaN instead of raising; the NaN propagates through
// the solver to a non-converged result.
func evaluate(rate float64, s cashflow.Series) (f, fp float64) {
	if 1+rate <= 0 {
		return math.NaN(), math.NaN()
	}
	for _, e := range s {
		f += e.Amount / math.Pow(1+rate, e.Offset)
		fp += -e.Offset * e.Amount / math.Pow(1+rate, e.Offset+1)
	}
	return f, fp
}

// Solve runs the bounded Newton iteration over an already-built series.
// Numeric failures are absorbed into the Result; Solve never panics and
// never returns an error.
func Solve(series cashflow.Series, guess, tol float64) Result {
	st := state{rate: guess}
	st.residual, st.deriv = evaluate(guess, series)

	steps := 0
	for ; steps < MaxIterations; steps++ {
		if math.Abs(st.residual) < tol {
			break
		}
		if st.deriv == 0 || math.IsNaN(st.deriv) {
			// The update r − f/f' is undefined; further steps cannot
			// recover, so the chain ends here non-converged.
			break
		}
		next := st.rate - st.residual/st.deriv
		f, fp := evaluate(next, series)
		st = state{rate: next, residual: f, deriv: fp}
	}

	return classify(st, tol, steps)
}

// classify inspects the residual at the final iterate: below tolerance the
// rate is rounded and returned, otherwise the rate stays nil.
func classify(st state, tol float64, steps int) Result {
	if math.Abs(st.residual) < tol {
		rate := roundRate(st.rate)
		return Result{
			Rate:       &rate,
			Iterations: steps,
			Converged:  true,
			Residual:   st.residual,
		}
	}
	return Result{Iterations: steps, Converged: false, Residual: st.residual}
}

func roundRate(r float64) float64 {
	p := math.Pow10(RateDigits)
	return math.Round(r*p) / p
}

// IRR solves for the internal rate of return of evenly spaced cash flows;
// period 0 is "now". The only error condition is an empty amount sequence.
func IRR(amounts []float64, guess, tol float64) (Result, error) {
	series, err := cashflow.Periodic(amounts)
	if err != nil {
		return Result{}, err
	}
	return Solve(series, guess, tol), nil
}

// XIRR solves for the internal rate of return of date-stamped cash flows
// under the Actual/365 day-count convention. Amounts and dates must have
// the same non-zero length; dates need not be sorted.
func XIRR(amounts []float64, dates []time.Time, guess, tol float64) (Result, error) {
	series, err := cashflow.Dated(amounts, dates)
	if err != nil {
		return Result{}, err
	}
	return Solve(series, guess, tol), nil
}
