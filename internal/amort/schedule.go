// Package amort builds fully amortizing loan schedules: a forward linear
// recurrence over period balances that splits the constant payment into
// interest and principal.
//
// All monetary values use shopspring/decimal — never float64 for money.
// float64 appears only inside the closed-form payment formula, and the
// result is immediately converted to decimal and rounded to cents. The
// final period absorbs the rounding drift so the balance lands on exactly
// zero.
package amort

import (
	"errors"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/shopspring/decimal"

	"github.com/ratecore/rate-engine/internal/tvm"
)

var (
	// ErrNonPositivePrincipal is returned when the loan principal is zero
	// or negative.
	ErrNonPositivePrincipal = errors.New("amort: principal must be positive")

	// ErrNonPositiveTerm is returned when the period count is zero or
	// negative.
	ErrNonPositiveTerm = errors.New("amort: term must be at least one period")

	// ErrNonPositiveFrequency is returned when payments per year is zero
	// or negative.
	ErrNonPositiveFrequency = errors.New("amort: payments per year must be positive")

	// ErrNegativeRate is returned when the annual rate is negative.
	ErrNegativeRate = errors.New("amort: annual rate must not be negative")

	// ErrUnsupportedFrequency is returned when a dated schedule is
	// requested with a payment frequency that does not divide the year
	// into whole months.
	ErrUnsupportedFrequency = errors.New("amort: dated schedules require a frequency dividing 12 months")

	// MoneyScale is the number of decimal places for payment, interest,
	// principal, and balance rounding.
	MoneyScale int32 = 2
)

// Loan describes a fully amortizing loan with a constant payment.
type Loan struct {
	Principal       decimal.Decimal
	AnnualRate      float64 // nominal annual rate, e.g. 0.06 for 6%
	PaymentsPerYear int
	Periods         int
	FirstDueDate    time.Time // zero value = schedule without due dates
}

// Row is one period of an amortization schedule.
type Row struct {
	Period       int             `json:"period"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Payment      decimal.Decimal `json:"payment"`
	Interest     decimal.Decimal `json:"interest"`
	Principal    decimal.Decimal `json:"principal"`
	CumInterest  decimal.Decimal `json:"cumulative_interest"`
	CumPrincipal decimal.Decimal `json:"cumulative_principal"`
	Balance      decimal.Decimal `json:"remaining_balance"`
}

// Schedule is the full per-period table plus its totals.
type Schedule struct {
	Payment       decimal.Decimal `json:"payment"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Rows          []Row           `json:"rows"`
}

// Engine generates amortization schedules. Due dates are rolled forward
// to the next business day on the engine's calendar (weekends by
// default).
type Engine struct {
	calendar *cal.BusinessCalendar
}

// NewEngine creates a schedule engine with a standard Monday–Friday
// business calendar.
func NewEngine() *Engine {
	return &Engine{calendar: cal.NewBusinessCalendar()}
}

// AddHoliday registers extra non-business days on the engine's calendar,
// e.g. market holidays loaded from a reference table.
func (e *Engine) AddHoliday(holidays ...*cal.Holiday) {
	for _, h := range holidays {
		e.calendar.AddHoliday(h)
	}
}

// Build generates the amortization schedule for the loan.
//
// The constant payment comes from the closed-form Pmt formula, rounded to
// cents. Each period's interest is balance × periodRate rounded to cents,
// the principal portion is the remainder of the payment, and the final
// period's principal is forced to the outstanding balance so the schedule
// closes at exactly zero.
func (e *Engine) Build(loan Loan) (*Schedule, error) {
	if !loan.Principal.IsPositive() {
		return nil, ErrNonPositivePrincipal
	}
	if loan.Periods < 1 {
		return nil, ErrNonPositiveTerm
	}
	if loan.PaymentsPerYear < 1 {
		return nil, ErrNonPositiveFrequency
	}
	if loan.AnnualRate < 0 {
		return nil, ErrNegativeRate
	}
	dated := !loan.FirstDueDate.IsZero()
	if dated && 12%loan.PaymentsPerYear != 0 {
		return nil, ErrUnsupportedFrequency
	}

	periodRate := loan.AnnualRate / float64(loan.PaymentsPerYear)
	payment := decimal.NewFromFloat(
		-tvm.Pmt(periodRate, loan.Periods, loan.Principal.InexactFloat64(), 0, tvm.End),
	).Round(MoneyScale)

	rate := decimal.NewFromFloat(periodRate)
	balance := loan.Principal
	cumInterest := decimal.Zero
	cumPrincipal := decimal.Zero

	rows := make([]Row, 0, loan.Periods)
	for period := 1; period <= loan.Periods; period++ {
		interest := balance.Mul(rate).Round(MoneyScale)
		principal := payment.Sub(interest)
		rowPayment := payment
		if period == loan.Periods {
			// Absorb rounding drift: the last payment clears the balance.
			principal = balance
			rowPayment = principal.Add(interest)
		}

		balance = balance.Sub(principal)
		cumInterest = cumInterest.Add(interest)
		cumPrincipal = cumPrincipal.Add(principal)

		row := Row{
			Period:       period,
			Payment:      rowPayment,
			Interest:     interest,
			Principal:    principal,
			CumInterest:  cumInterest,
			CumPrincipal: cumPrincipal,
			Balance:      balance,
		}
		if dated {
			due := e.dueDate(loan, period)
			row.DueDate = &due
		}
		rows = append(rows, row)
	}

	return &Schedule{
		Payment:       payment,
		TotalPaid:     cumPrincipal.Add(cumInterest),
		TotalInterest: cumInterest,
		Rows:          rows,
	}, nil
}

// dueDate returns the business-day-adjusted due date of the given period:
// the first due date advanced by whole months, rolled forward while it
// falls on a non-business day.
func (e *Engine) dueDate(loan Loan, period int) time.Time {
	monthsPerPeriod := 12 / loan.PaymentsPerYear
	due := loan.FirstDueDate.AddDate(0, monthsPerPeriod*(period-1), 0)
	for !e.calendar.IsWorkday(due) {
		due = due.AddDate(0, 0, 1)
	}
	return due
}
