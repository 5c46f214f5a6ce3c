package limits

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func series(amounts ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		out[i] = d(a)
	}
	return out
}

func TestCheckSeries(t *testing.T) {
	g := NewRequestGuard(3, d("1000"), 360)

	cases := []struct {
		name    string
		amounts []decimal.Decimal
		want    error
	}{
		{"within limits", series("-1000", "500", "600"), nil},
		{"at the magnitude cap", series("-1000", "1000"), nil},
		{"empty", nil, nil},
		{"too long", series("-100", "25", "25", "25", "25"), ErrSeriesTooLong},
		{"negative amount too large", series("-1000.01", "500"), ErrAmountTooLarge},
		{"positive amount too large", series("-100", "1000.01"), ErrAmountTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.CheckSeries(tc.amounts); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCheckSeries_LengthBeforeMagnitude(t *testing.T) {
	g := NewRequestGuard(2, d("10"), 360)
	err := g.CheckSeries(series("99999", "99999", "99999"))
	if err != ErrSeriesTooLong {
		t.Errorf("length violation should win, got %v", err)
	}
}

func TestCheckTerm(t *testing.T) {
	g := NewRequestGuard(10, d("1000"), 360)

	if err := g.CheckTerm(360); err != nil {
		t.Errorf("term at the cap should pass, got %v", err)
	}
	if err := g.CheckTerm(361); err != ErrTermTooLong {
		t.Errorf("expected ErrTermTooLong, got %v", err)
	}
	if err := g.CheckTerm(0); err != nil {
		t.Errorf("zero term is the engine's concern, got %v", err)
	}
}

func TestNewRequestGuard_NormalizesCaps(t *testing.T) {
	g := NewRequestGuard(0, d("1000"), -5)
	if g.MaxSeriesLen != 1 {
		t.Errorf("series cap should normalize to 1, got %d", g.MaxSeriesLen)
	}
	if g.MaxTermPeriods != 1 {
		t.Errorf("term cap should normalize to 1, got %d", g.MaxTermPeriods)
	}
}
