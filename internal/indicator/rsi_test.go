package indicator

import (
	"errors"
	"math"
	"testing"
)

func TestRSIWilderSmoothing(t *testing.T) {
	out, err := RSI([]float64{10, 11, 10.5, 11.5}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// deltas +1, -0.5, +1; seed avgGain=0.5 avgLoss=0.25 -> RS=2 -> 66.667
	// then avgGain=(0.5+1)/2=0.75 avgLoss=0.125 -> RS=6 -> 85.714
	want := []float64{100 - 100.0/3, 100 - 100.0/7}
	if len(out) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(out))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("rsi[%d]: expected %v, got %v", i, want[i], out[i])
		}
	}
}

func TestRSIAllGainsReadsHundred(t *testing.T) {
	out, err := RSI([]float64{1, 2, 3, 4, 5, 6}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if v != 100 {
			t.Fatalf("rsi[%d]: expected 100 on a pure uptrend, got %v", i, v)
		}
	}
}

func TestRSIAllLossesReadsZero(t *testing.T) {
	out, err := RSI([]float64{6, 5, 4, 3, 2, 1}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("rsi[%d]: expected 0 on a pure downtrend, got %v", i, v)
		}
	}
}

func TestRSIBounded(t *testing.T) {
	closes := []float64{50, 53, 49, 55, 48, 57, 52, 60, 45, 62, 58, 63, 40, 66}
	out, err := RSI(closes, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] out of range: %v", i, v)
		}
	}
}

func TestRSINeedsPeriodPlusOne(t *testing.T) {
	if _, err := RSI([]float64{1, 2, 3}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 3 closes with period 3, got %v", err)
	}
	if _, err := RSI([]float64{1, 2, 3, 4}, 3); err != nil {
		t.Fatalf("unexpected error with period+1 closes: %v", err)
	}
}
