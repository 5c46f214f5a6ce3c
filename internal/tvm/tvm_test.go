package tvm

import (
	"math"
	"testing"
	"time"

	"github.com/ratecore/rate-engine/internal/cashflow"
	"github.com/ratecore/rate-engine/internal/solver"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approx(t *testing.T, got, want, tol float64, label string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: expected %.10f within %g, got %.10f", label, want, tol, got)
	}
}

// --- Future value ---

func TestFV_LumpSum(t *testing.T) {
	// 100 deposited for 10 periods at 5%.
	approx(t, FV(0.05, 10, 0, -100, End), 100*math.Pow(1.05, 10), 1e-9, "fv")
}

func TestFV_MonthlySavings(t *testing.T) {
	// 100/month on top of 100 principal for 10 years at 5%/12.
	approx(t, FV(0.05/12, 120, -100, -100, End), 15692.928894335748, 1e-6, "fv")
}

func TestFV_ZeroRate(t *testing.T) {
	if got := FV(0, 10, -100, -100, End); got != 1100 {
		t.Errorf("zero-rate fv should be 1100, got %f", got)
	}
}

func TestFV_BeginEarnsOneExtraPeriod(t *testing.T) {
	end := FV(0.05, 10, -100, 0, End)
	begin := FV(0.05, 10, -100, 0, Begin)
	approx(t, begin, end*1.05, 1e-9, "fv begin")
}

// --- Present value ---

func TestPV_MonthlySavings(t *testing.T) {
	approx(t, PV(0.05/12, 120, -100, 15692.93, End), -100.00067131625819, 1e-6, "pv")
}

func TestPV_ZeroRate(t *testing.T) {
	if got := PV(0, 10, -100, 1100, End); got != -100 {
		t.Errorf("zero-rate pv should be -100, got %f", got)
	}
}

func TestPV_InvertsFV(t *testing.T) {
	rates := []float64{0.0001, 0.05, 0.05 / 12, 0.2}
	for _, rate := range rates {
		fv := FV(rate, 24, -50, -1000, End)
		approx(t, PV(rate, 24, -50, fv, End), -1000, 1e-8, "pv∘fv")
	}
}

// --- Payment ---

func TestPmt_MortgageExample(t *testing.T) {
	// 200k over 15 years at 7.5% nominal annual.
	approx(t, Pmt(0.075/12, 180, 200000, 0, End), -1854.0247200054619, 1e-6, "pmt")
}

func TestPmt_ZeroRate(t *testing.T) {
	if got := Pmt(0, 12, 1200, 0, End); got != -100 {
		t.Errorf("zero-rate pmt should be -100, got %f", got)
	}
}

func TestPmt_AmortizesToTargetFV(t *testing.T) {
	rate, nper, pv := 0.005, 360, 250000.0
	pmt := Pmt(rate, nper, pv, 0, End)
	approx(t, FV(rate, nper, pmt, pv, End), 0, 1e-6, "fv at pmt")
}

// --- Period count ---

func TestNper_LoanExample(t *testing.T) {
	// 8000 repaid at 150/month, 7% nominal annual.
	approx(t, Nper(0.07/12, -150, 8000, 0, End), 64.07334877066185, 1e-6, "nper")
}

func TestNper_ZeroRate(t *testing.T) {
	if got := Nper(0, -100, 1200, 0, End); got != 12 {
		t.Errorf("zero-rate nper should be 12, got %f", got)
	}
}

func TestNper_InvertsPmt(t *testing.T) {
	rate, nper, pv := 0.01, 48, 15000.0
	pmt := Pmt(rate, nper, pv, 0, End)
	approx(t, Nper(rate, pmt, pv, 0, End), float64(nper), 1e-8, "nper∘pmt")
}

func TestNper_PaymentBelowInterest(t *testing.T) {
	// 10/month never services 8% of 8000: the balance grows forever.
	if got := Nper(0.08, -10, 8000, 0, End); !math.IsNaN(got) {
		t.Errorf("expected NaN for unserviceable loan, got %f", got)
	}
}

// --- Payment split ---

func TestIPmt_FirstPeriodIsRateOnBalance(t *testing.T) {
	rate, nper, pv := 0.0075, 120, 30000.0
	approx(t, IPmt(rate, 1, nper, pv, 0, End), -pv*rate, 1e-9, "ipmt first")
}

func TestIPmt_BeginFirstPeriodIsZero(t *testing.T) {
	if got := IPmt(0.0075, 1, 120, 30000, 0, Begin); got != 0 {
		t.Errorf("begin-mode first-period interest should be 0, got %f", got)
	}
}

func TestIPmt_DecreasesOverLoanLife(t *testing.T) {
	rate, nper, pv := 0.005, 60, 10000.0
	prev := IPmt(rate, 1, nper, pv, 0, End)
	for per := 2; per <= nper; per++ {
		cur := IPmt(rate, per, nper, pv, 0, End)
		// Payments are negative; shrinking interest moves toward zero.
		if cur <= prev {
			t.Fatalf("interest portion should shrink: per %d: %f <= %f", per, cur, prev)
		}
		prev = cur
	}
}

func TestPPmt_SplitsThePayment(t *testing.T) {
	rate, nper, pv := 0.005, 60, 10000.0
	pmt := Pmt(rate, nper, pv, 0, End)
	for per := 1; per <= nper; per++ {
		split := IPmt(rate, per, nper, pv, 0, End) + PPmt(rate, per, nper, pv, 0, End)
		approx(t, split, pmt, 1e-9, "ipmt+ppmt")
	}
}

func TestPPmt_SumsToPrincipal(t *testing.T) {
	rate, nper, pv := 0.005, 60, 10000.0
	var total float64
	for per := 1; per <= nper; per++ {
		total += PPmt(rate, per, nper, pv, 0, End)
	}
	approx(t, total, -pv, 1e-6, "sum ppmt")
}

// --- Net present value ---

func TestNPV_FirstFlowUndiscounted(t *testing.T) {
	if got := NPV(0.1, []float64{100}); got != 100 {
		t.Errorf("period-0 flow should not be discounted, got %f", got)
	}
}

func TestNPV_BreakEven(t *testing.T) {
	approx(t, NPV(0.05, []float64{-100, 105}), 0, 1e-9, "npv")
}

func TestNPV_ZeroRateIsSum(t *testing.T) {
	if got := NPV(0, []float64{-100, 39, 59, 55, 20}); got != 73 {
		t.Errorf("zero-rate npv should be the plain sum 73, got %f", got)
	}
}

func TestNPV_InvestmentExample(t *testing.T) {
	got := NPV(0.08, []float64{-40000, 5000, 8000, 12000, 30000})
	approx(t, got, 3065.22, 0.01, "npv")
}

func TestNPV_ZeroAtSolvedRate(t *testing.T) {
	amounts := []float64{-100, 39, 59, 55, 20}
	res, err := solver.IRR(amounts, solver.DefaultGuess, solver.DefaultTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected convergence")
	}
	approx(t, NPV(*res.Rate, amounts), 0, 1e-5, "npv at irr")
}

// --- Date-weighted net present value ---

func TestXNPV_FullYearMatchesNPV(t *testing.T) {
	values := []float64{-100, 110}
	dates := []time.Time{date(2019, time.January, 1), date(2020, time.January, 1)}

	got, err := XNPV(0.07, values, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, got, NPV(0.07, values), 1e-12, "xnpv vs npv")
}

func TestXNPV_ZeroAtSolvedRate(t *testing.T) {
	values := []float64{-10000, 2750, 4250, 3250, 2750}
	dates := []time.Time{
		date(2008, time.January, 1),
		date(2008, time.March, 1),
		date(2008, time.October, 30),
		date(2009, time.February, 15),
		date(2009, time.April, 1),
	}

	res, err := solver.XIRR(values, dates, solver.DefaultGuess, solver.DefaultTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected convergence")
	}

	got, err := XNPV(*res.Rate, values, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, got, 0, 1e-4, "xnpv at xirr")
}

func TestXNPV_InputErrors(t *testing.T) {
	if _, err := XNPV(0.1, nil, nil); err != cashflow.ErrNoCashflows {
		t.Errorf("expected ErrNoCashflows, got %v", err)
	}
	_, err := XNPV(0.1, []float64{-100, 50}, []time.Time{date(2024, time.January, 1)})
	if err != cashflow.ErrLengthMismatch {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

// --- Modified IRR ---

func TestMIRR_TwoFlowIsSimpleReturn(t *testing.T) {
	// With a single outflow and a single inflow one period later the
	// reinvestment rate cancels: MIRR is the plain return.
	for _, rates := range [][2]float64{{0.08, 0.055}, {0, 0}, {0.2, 0.01}} {
		got := MIRR([]float64{-100, 110}, rates[0], rates[1])
		approx(t, got, 0.1, 1e-12, "mirr")
	}
}

func TestMIRR_DeferredInflow(t *testing.T) {
	// 121 after two periods with 10% reinvestment values the inflow at
	// exactly 100 today.
	got := MIRR([]float64{-100, 0, 121}, 0.12, 0.1)
	approx(t, got, 0.1, 1e-12, "mirr")
}

func TestMIRR_InvestmentExample(t *testing.T) {
	values := []float64{-4500, -800, 800, 800, 600, 600, 800, 800, 700, 3000}
	got := MIRR(values, 0.08, 0.055)
	approx(t, got, 0.0666, 1e-4, "mirr")
}

func TestMIRR_RequiresBothSigns(t *testing.T) {
	if got := MIRR([]float64{100, 110}, 0.08, 0.055); !math.IsNaN(got) {
		t.Errorf("expected NaN without an outflow, got %f", got)
	}
	if got := MIRR([]float64{-100, -110}, 0.08, 0.055); !math.IsNaN(got) {
		t.Errorf("expected NaN without an inflow, got %f", got)
	}
}
