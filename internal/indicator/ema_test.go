package indicator

import (
	"errors"
	"math"
	"testing"
)

func TestEMASeedIsSimpleAverage(t *testing.T) {
	out, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// seed = (1+2+3)/3 = 2, then with k = 0.5: 4*0.5+2*0.5 = 3, 5*0.5+3*0.5 = 4
	want := []float64{2, 3, 4}
	if len(out) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(out))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("ema[%d]: expected %v, got %v", i, want[i], out[i])
		}
	}
}

func TestEMAOutputLength(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out, err := EMA(closes, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(closes)-12+1 {
		t.Fatalf("expected %d values, got %d", len(closes)-12+1, len(out))
	}
}

func TestEMAInsufficientData(t *testing.T) {
	_, err := EMA([]float64{1, 2}, 3)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEMARejectsShortPeriod(t *testing.T) {
	if _, err := EMA([]float64{1, 2, 3}, 1); err == nil {
		t.Fatal("expected error for period 1")
	}
}
