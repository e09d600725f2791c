package indicator

import "fmt"

// RSI computes the relative strength index with Wilder's smoothing. The seed
// average gain/loss is the simple mean of the first period deltas, so the
// first output is at input index period (period+1 closes required). Later
// averages follow (prev*(period-1)+cur)/period. Values are clamped to
// [0,100]; a zero average loss reads 100 and a zero average gain reads 0.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("rsi period must be >= 2, got %d", period)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("%w: rsi(%d) needs %d closes, have %d",
			ErrInsufficientData, period, period+1, len(closes))
	}
	out := make([]float64, 0, len(closes)-period)
	s := newRSIStream(period)
	for _, c := range closes {
		if v, ok := s.push(c); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type rsiStream struct {
	period  int
	prev    float64
	seen    int
	gainSum float64
	lossSum float64
	avgGain float64
	avgLoss float64
	warm    bool
}

func newRSIStream(period int) *rsiStream {
	return &rsiStream{period: period}
}

func (s *rsiStream) push(close float64) (float64, bool) {
	if s.seen == 0 {
		s.prev = close
		s.seen = 1
		return 0, false
	}
	delta := close - s.prev
	s.prev = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if !s.warm {
		s.gainSum += gain
		s.lossSum += loss
		s.seen++
		if s.seen < s.period+1 {
			return 0, false
		}
		s.avgGain = s.gainSum / float64(s.period)
		s.avgLoss = s.lossSum / float64(s.period)
		s.warm = true
		return s.value(), true
	}

	p := float64(s.period)
	s.avgGain = (s.avgGain*(p-1) + gain) / p
	s.avgLoss = (s.avgLoss*(p-1) + loss) / p
	return s.value(), true
}

func (s *rsiStream) value() float64 {
	if s.avgLoss == 0 {
		return 100
	}
	if s.avgGain == 0 {
		return 0
	}
	rsi := 100 - 100/(1+s.avgGain/s.avgLoss)
	return clamp(rsi, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
