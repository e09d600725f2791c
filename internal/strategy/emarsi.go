package strategy

import (
	"fmt"

	"tradebot/internal/indicator"
)

const (
	baseConfidence     = 50.0
	strongBonus        = 30.0
	moderateBonus      = 15.0
	magnitudeGain      = 2.0 // confidence points per percent of EMA separation
	magnitudeCap       = 20.0
	moderateBandPoints = 10.0
)

// EMARSICross emits a signal when the short EMA crosses the long EMA, graded
// by how far the RSI sits past its overbought/oversold threshold.
type EMARSICross struct {
	RSIOverbought float64
	RSIOversold   float64
}

func NewEMARSICross(overbought, oversold float64) EMARSICross {
	return EMARSICross{RSIOverbought: overbought, RSIOversold: oversold}
}

func (g EMARSICross) OnPoint(prev, cur indicator.Point, price float64) (Signal, bool) {
	var dir Direction
	switch {
	case prev.EMAShort <= prev.EMALong && cur.EMAShort > cur.EMALong:
		dir = Buy
	case prev.EMAShort >= prev.EMALong && cur.EMAShort < cur.EMALong:
		dir = Sell
	default:
		return Signal{}, false
	}

	strength := g.classify(dir, cur.RSI)
	return Signal{
		Time:       cur.Time,
		Direction:  dir,
		Strength:   strength,
		Confidence: confidence(strength, cur.EMAShort, cur.EMALong),
		Price:      price,
		EMAShort:   cur.EMAShort,
		EMALong:    cur.EMALong,
		RSI:        cur.RSI,
		Message:    message(dir, strength, cur.RSI, g.RSIOverbought, g.RSIOversold),
	}, true
}

// classify grades the crossover by RSI confirmation: strong past the
// threshold, moderate within ten points of it on the confirming side, weak
// otherwise.
func (g EMARSICross) classify(dir Direction, rsi float64) Strength {
	switch dir {
	case Buy:
		if rsi <= g.RSIOversold {
			return Strong
		}
		if rsi <= g.RSIOversold+moderateBandPoints {
			return Moderate
		}
	case Sell:
		if rsi >= g.RSIOverbought {
			return Strong
		}
		if rsi >= g.RSIOverbought-moderateBandPoints {
			return Moderate
		}
	}
	return Weak
}

func confidence(strength Strength, emaShort, emaLong float64) float64 {
	score := baseConfidence
	switch strength {
	case Strong:
		score += strongBonus
	case Moderate:
		score += moderateBonus
	}
	if emaLong != 0 {
		gapPct := abs(emaShort-emaLong) / emaLong * 100
		m := gapPct * magnitudeGain
		if m > magnitudeCap {
			m = magnitudeCap
		}
		score += m
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func message(dir Direction, strength Strength, rsi, overbought, oversold float64) string {
	var cross, confirm string
	switch dir {
	case Buy:
		cross = "short EMA crossed above long EMA"
		switch strength {
		case Strong:
			confirm = fmt.Sprintf("; RSI %.1f oversold (<= %.0f)", rsi, oversold)
		case Moderate:
			confirm = fmt.Sprintf("; RSI %.1f near oversold", rsi)
		default:
			confirm = fmt.Sprintf("; RSI %.1f unconfirmed", rsi)
		}
	case Sell:
		cross = "short EMA crossed below long EMA"
		switch strength {
		case Strong:
			confirm = fmt.Sprintf("; RSI %.1f overbought (>= %.0f)", rsi, overbought)
		case Moderate:
			confirm = fmt.Sprintf("; RSI %.1f near overbought", rsi)
		default:
			confirm = fmt.Sprintf("; RSI %.1f unconfirmed", rsi)
		}
	}
	return fmt.Sprintf("%s %s signal: %s%s", strength, dir, cross, confirm)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
