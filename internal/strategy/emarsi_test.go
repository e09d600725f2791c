package strategy

import (
	"math"
	"testing"
	"time"

	"tradebot/internal/indicator"
)

var signalTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func point(short, long, rsi float64) indicator.Point {
	return indicator.Point{Time: signalTime, EMAShort: short, EMALong: long, RSI: rsi}
}

func TestBullishCrossoverEmitsBuy(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	sig, ok := gen.OnPoint(point(99, 100, 50), point(101, 100, 50), 101)
	if !ok {
		t.Fatal("expected a signal on an upward cross")
	}
	if sig.Direction != Buy {
		t.Fatalf("expected buy, got %s", sig.Direction)
	}
	if sig.Price != 101 {
		t.Fatalf("expected price 101, got %v", sig.Price)
	}
}

func TestBearishCrossoverEmitsSell(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	sig, ok := gen.OnPoint(point(101, 100, 50), point(99, 100, 50), 99)
	if !ok {
		t.Fatal("expected a signal on a downward cross")
	}
	if sig.Direction != Sell {
		t.Fatalf("expected sell, got %s", sig.Direction)
	}
}

func TestNoSignalWithoutCrossover(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	if _, ok := gen.OnPoint(point(101, 100, 25), point(102, 100, 25), 102); ok {
		t.Fatal("expected no signal while short stays above long")
	}
	if _, ok := gen.OnPoint(point(98, 100, 75), point(97, 100, 75), 97); ok {
		t.Fatal("expected no signal while short stays below long")
	}
}

func TestTouchThenCrossCounts(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	// equality on the previous bar still counts as a cross when the current
	// bar moves strictly past
	if _, ok := gen.OnPoint(point(100, 100, 50), point(101, 100, 50), 101); !ok {
		t.Fatal("expected a buy after touching from below")
	}
	if _, ok := gen.OnPoint(point(100, 100, 50), point(99, 100, 50), 99); !ok {
		t.Fatal("expected a sell after touching from above")
	}
}

func TestBuyStrengthClassification(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	cases := []struct {
		rsi  float64
		want Strength
	}{
		{28, Strong},
		{30, Strong},
		{35, Moderate},
		{40, Moderate},
		{41, Weak},
		{65, Weak},
	}
	for _, c := range cases {
		sig, ok := gen.OnPoint(point(99, 100, c.rsi), point(101, 100, c.rsi), 101)
		if !ok {
			t.Fatalf("rsi %v: expected a signal", c.rsi)
		}
		if sig.Strength != c.want {
			t.Fatalf("rsi %v: expected %s, got %s", c.rsi, c.want, sig.Strength)
		}
	}
}

func TestSellStrengthClassification(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	cases := []struct {
		rsi  float64
		want Strength
	}{
		{75, Strong},
		{70, Strong},
		{65, Moderate},
		{60, Moderate},
		{59, Weak},
		{35, Weak},
	}
	for _, c := range cases {
		sig, ok := gen.OnPoint(point(101, 100, c.rsi), point(99, 100, c.rsi), 99)
		if !ok {
			t.Fatalf("rsi %v: expected a signal", c.rsi)
		}
		if sig.Strength != c.want {
			t.Fatalf("rsi %v: expected %s, got %s", c.rsi, c.want, sig.Strength)
		}
	}
}

func TestConfidenceScoring(t *testing.T) {
	gen := NewEMARSICross(70, 30)

	// strong buy: base 50 + strong 30 + 2% separation * 2 = 84
	sig, _ := gen.OnPoint(point(99, 100, 28), point(102, 100, 28), 102)
	if math.Abs(sig.Confidence-84) > 1e-9 {
		t.Fatalf("expected confidence 84, got %v", sig.Confidence)
	}

	// weak buy with the same separation: base 50 + 4 = 54
	sig, _ = gen.OnPoint(point(99, 100, 55), point(102, 100, 55), 102)
	if math.Abs(sig.Confidence-54) > 1e-9 {
		t.Fatalf("expected confidence 54, got %v", sig.Confidence)
	}

	// moderate sell: base 50 + moderate 15 + 4 = 69
	sig, _ = gen.OnPoint(point(101, 100, 62), point(98, 100, 62), 98)
	if math.Abs(sig.Confidence-69) > 1e-9 {
		t.Fatalf("expected confidence 69, got %v", sig.Confidence)
	}
}

func TestConfidenceMagnitudeCapped(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	// 20% separation would add 40 points uncapped; the cap holds it at 20
	sig, _ := gen.OnPoint(point(99, 100, 50), point(120, 100, 50), 120)
	if math.Abs(sig.Confidence-70) > 1e-9 {
		t.Fatalf("expected confidence 70 with capped magnitude, got %v", sig.Confidence)
	}
	// strong signal with the cap saturates at 100
	sig, _ = gen.OnPoint(point(99, 100, 20), point(120, 100, 20), 120)
	if sig.Confidence != 100 {
		t.Fatalf("expected confidence clamped to 100, got %v", sig.Confidence)
	}
}

func TestConfidenceMonotonicInRSI(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	// holding the crossover magnitude fixed, deeper RSI confirmation never
	// lowers confidence
	prevConf := -1.0
	for _, rsi := range []float64{55, 45, 38, 33, 29, 22, 10} {
		sig, ok := gen.OnPoint(point(99, 100, rsi), point(102, 100, rsi), 102)
		if !ok {
			t.Fatalf("rsi %v: expected a signal", rsi)
		}
		if sig.Confidence < prevConf {
			t.Fatalf("rsi %v: confidence %v dropped below %v", rsi, sig.Confidence, prevConf)
		}
		prevConf = sig.Confidence
	}
}

func TestStrongBuyConfidenceFloor(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	sig, ok := gen.OnPoint(point(99, 100, 28), point(101, 100, 28), 101)
	if !ok {
		t.Fatal("expected a signal")
	}
	if sig.Strength != Strong {
		t.Fatalf("expected strong, got %s", sig.Strength)
	}
	if sig.Confidence < 80 {
		t.Fatalf("expected confidence of at least 80 for a strong buy, got %v", sig.Confidence)
	}
}

func TestSignalCarriesIndicatorContext(t *testing.T) {
	gen := NewEMARSICross(70, 30)
	sig, _ := gen.OnPoint(point(99, 100, 28), point(101, 100, 28), 101)
	if sig.EMAShort != 101 || sig.EMALong != 100 || sig.RSI != 28 {
		t.Fatalf("signal did not carry indicator values: %+v", sig)
	}
	if !sig.Time.Equal(signalTime) {
		t.Fatalf("expected signal time %v, got %v", signalTime, sig.Time)
	}
	if sig.Message == "" {
		t.Fatal("expected a human readable message")
	}
}
