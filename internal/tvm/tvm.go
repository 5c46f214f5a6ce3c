// Package tvm provides the closed-form time-value-of-money formulas that
// surround the iterative rate solver: future/present value, payment,
// period count, the interest/principal split of a payment, plain and
// date-weighted net present value, and modified IRR.
//
// Semantics follow the spreadsheet conventions: money paid out is
// negative, money received is positive, and every formula has an exact
// zero-rate branch. These are direct algebraic derivations with no
// iterative search; the solver package owns the root finding.
package tvm

import (
	"math"
	"time"

	"github.com/ratecore/rate-engine/internal/cashflow"
)

// When indicates whether payments fall due at the end or at the beginning
// of each period.
type When int

const (
	// End means payments are due at the end of each period (the ordinary
	// annuity convention, and the default in spreadsheets).
	End When = 0

	// Begin means payments are due at the start of each period (annuity
	// due).
	Begin When = 1
)

// annuityFactor is (1+rate*when) · ((1+rate)^nper − 1) / rate, the factor
// that scales a constant payment into its compound value. Callers handle
// the rate == 0 branch.
func annuityFactor(rate float64, nper int, when When) float64 {
	return (1 + rate*float64(when)) * (math.Pow(1+rate, float64(nper)) - 1) / rate
}

// FV returns the future value of an investment after nper periods at the
// given per-period rate, with a constant payment each period and an
// optional present value.
func FV(rate float64, nper int, pmt, pv float64, when When) float64 {
	if rate == 0 {
		return -(pv + pmt*float64(nper))
	}
	return -(pv*math.Pow(1+rate, float64(nper)) + pmt*annuityFactor(rate, nper, when))
}

// PV returns the present value of a series of constant payments plus an
// optional future value, discounted at the given per-period rate.
func PV(rate float64, nper int, pmt, fv float64, when When) float64 {
	if rate == 0 {
		return -(fv + pmt*float64(nper))
	}
	return -(fv + pmt*annuityFactor(rate, nper, when)) / math.Pow(1+rate, float64(nper))
}

// Pmt returns the constant per-period payment that amortizes pv down to
// −fv over nper periods at the given per-period rate. For a conventional
// loan pass the principal as positive pv and zero fv; the result is
// negative (money paid out).
func Pmt(rate float64, nper int, pv, fv float64, when When) float64 {
	if rate == 0 {
		return -(fv + pv) / float64(nper)
	}
	return -(fv + pv*math.Pow(1+rate, float64(nper))) / annuityFactor(rate, nper, when)
}

// Nper returns the number of periods needed to amortize pv down to −fv
// with a constant payment at the given per-period rate. The result is NaN
// when the payment cannot service the balance (e.g. it does not even
// cover the interest).
func Nper(rate, pmt, pv, fv float64, when When) float64 {
	if rate == 0 {
		return -(pv + fv) / pmt
	}
	z := pmt * (1 + rate*float64(when)) / rate
	return math.Log((-fv+z)/(pv+z)) / math.Log(1+rate)
}

// IPmt returns the interest portion of the payment in period per
// (1-based) of a fully amortizing schedule. The interest due in period
// per is the balance after per−1 payments times the rate.
func IPmt(rate float64, per, nper int, pv, fv float64, when When) float64 {
	total := Pmt(rate, nper, pv, fv, when)
	ipmt := FV(rate, per-1, total, pv, when) * rate
	if when == Begin {
		if per == 1 {
			return 0
		}
		ipmt /= 1 + rate
	}
	return ipmt
}

// PPmt returns the principal portion of the payment in period per
// (1-based): the constant payment minus its interest portion.
func PPmt(rate float64, per, nper int, pv, fv float64, when When) float64 {
	return Pmt(rate, nper, pv, fv, when) - IPmt(rate, per, nper, pv, fv, when)
}

// NPV returns the net present value of evenly spaced cash flows at the
// given per-period rate, discounting from period 0:
//
//	NPV = Σ cf[i] / (1+rate)^i
func NPV(rate float64, values []float64) float64 {
	var npv float64
	for i, cf := range values {
		npv += cf / math.Pow(1+rate, float64(i))
	}
	return npv
}

// XNPV returns the date-weighted net present value of irregularly spaced
// cash flows under the Actual/365 day-count convention, discounting from
// the earliest date. It is the independent check for an XIRR result:
// XNPV at the solved rate is within tolerance of zero.
func XNPV(rate float64, values []float64, dates []time.Time) (float64, error) {
	series, err := cashflow.Dated(values, dates)
	if err != nil {
		return 0, err
	}

	var xnpv float64
	for _, e := range series {
		xnpv += e.Amount / math.Pow(1+rate, e.Offset)
	}
	return xnpv, nil
}

// MIRR returns the modified internal rate of return of evenly spaced cash
// flows, compounding inflows at reinvestRate and discounting outflows at
// financeRate:
//
//	MIRR = (|NPV(reinvest, inflows)| / |NPV(finance, outflows)|)^(1/(n−1)) · (1+reinvest) − 1
//
// The result is NaN when the series lacks either an inflow or an outflow.
func MIRR(values []float64, financeRate, reinvestRate float64) float64 {
	inflows := make([]float64, len(values))
	outflows := make([]float64, len(values))
	var hasPos, hasNeg bool

	for i, cf := range values {
		if cf > 0 {
			inflows[i] = cf
			hasPos = true
		} else if cf < 0 {
			outflows[i] = cf
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return math.NaN()
	}

	n := float64(len(values))
	numer := math.Abs(NPV(reinvestRate, inflows))
	denom := math.Abs(NPV(financeRate, outflows))
	return math.Pow(numer/denom, 1/(n-1))*(1+reinvestRate) - 1
}
