package cashflow

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- Periodic series tests ---

func TestPeriodic_OffsetsAreIndices(t *testing.T) {
	s, err := Periodic([]float64{-100, 39, 59, 55, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(s))
	}
	for i, e := range s {
		if e.Offset != float64(i) {
			t.Errorf("entry %d: expected offset %d, got %f", i, i, e.Offset)
		}
	}
	if s[0].Amount != -100 || s[4].Amount != 20 {
		t.Errorf("amounts not preserved: first=%f last=%f", s[0].Amount, s[4].Amount)
	}
}

func TestPeriodic_Empty(t *testing.T) {
	_, err := Periodic(nil)
	if err != ErrNoCashflows {
		t.Errorf("expected ErrNoCashflows for empty input, got %v", err)
	}
}

func TestPeriodic_SingleEntry(t *testing.T) {
	s, err := Periodic([]float64{-100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s[0].Offset != 0 {
		t.Errorf("single entry should sit at offset 0, got %f", s[0].Offset)
	}
}

// --- Dated series tests ---

func TestDated_OffsetsFromEarliestDate(t *testing.T) {
	amounts := []float64{-10000, 2750, 4250}
	dates := []time.Time{
		date(2008, time.January, 1),
		date(2008, time.March, 1),
		date(2008, time.October, 30),
	}

	s, err := Dated(amounts, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s[0].Offset != 0 {
		t.Errorf("earliest date should sit at offset 0, got %f", s[0].Offset)
	}
	// Jan 1 → Mar 1 2008 is 60 days (leap year February).
	if got, want := s[1].Offset, 60.0/365.0; got != want {
		t.Errorf("expected offset %f, got %f", want, got)
	}
	// Jan 1 → Oct 30 2008 is 303 days.
	if got, want := s[2].Offset, 303.0/365.0; got != want {
		t.Errorf("expected offset %f, got %f", want, got)
	}
}

func TestDated_FullYearIsOffsetOne(t *testing.T) {
	s, err := Dated([]float64{-100, 110}, []time.Time{
		date(2019, time.January, 1),
		date(2020, time.January, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s[1].Offset != 1.0 {
		t.Errorf("365 days should be exactly offset 1.0, got %f", s[1].Offset)
	}
}

func TestDated_UnsortedDatesUseMinAsReference(t *testing.T) {
	// The reference is the earliest date in the set, not the first.
	amounts := []float64{2750, -10000, 4250}
	dates := []time.Time{
		date(2008, time.March, 1),
		date(2008, time.January, 1),
		date(2008, time.October, 30),
	}

	s, err := Dated(amounts, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s[1].Offset != 0 {
		t.Errorf("min date should sit at offset 0, got %f", s[1].Offset)
	}
	for i, e := range s {
		if e.Offset < 0 {
			t.Errorf("entry %d: offsets must be non-negative, got %f", i, e.Offset)
		}
	}
}

func TestDated_SameDayFlowsShareOffset(t *testing.T) {
	d0 := date(2024, time.June, 1)
	s, err := Dated([]float64{-100, 40, 70}, []time.Time{d0, d0, date(2025, time.June, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s[0].Offset != 0 || s[1].Offset != 0 {
		t.Errorf("same-day flows should share offset 0: got %f and %f", s[0].Offset, s[1].Offset)
	}
}

func TestDated_Empty(t *testing.T) {
	_, err := Dated(nil, nil)
	if err != ErrNoCashflows {
		t.Errorf("expected ErrNoCashflows for empty input, got %v", err)
	}
}

func TestDated_LengthMismatch(t *testing.T) {
	_, err := Dated([]float64{-100, 50}, []time.Time{date(2024, time.January, 1)})
	if err != ErrLengthMismatch {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}
