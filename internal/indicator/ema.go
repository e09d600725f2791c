package indicator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series is shorter than the warm-up
// an indicator needs for the requested period.
var ErrInsufficientData = errors.New("insufficient data")

// EMA computes an exponential moving average over closes. The first output is
// the simple average of the first period closes (at input index period-1);
// every later value is close*k + prev*(1-k) with k = 2/(period+1). Output
// length is len(closes)-period+1.
func EMA(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("ema period must be >= 2, got %d", period)
	}
	if len(closes) < period {
		return nil, fmt.Errorf("%w: ema(%d) needs %d closes, have %d",
			ErrInsufficientData, period, period, len(closes))
	}
	out := make([]float64, 0, len(closes)-period+1)
	s := newEMAStream(period)
	for _, c := range closes {
		if v, ok := s.push(c); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// emaStream is the O(1)-per-bar incremental form of EMA. Feeding the same
// closes always reproduces the batch output bit for bit.
type emaStream struct {
	period int
	k      float64
	seed   float64
	seen   int
	value  float64
	warm   bool
}

func newEMAStream(period int) *emaStream {
	return &emaStream{period: period, k: 2.0 / float64(period+1)}
}

func (s *emaStream) push(close float64) (float64, bool) {
	if !s.warm {
		s.seed += close
		s.seen++
		if s.seen < s.period {
			return 0, false
		}
		s.value = s.seed / float64(s.period)
		s.warm = true
		return s.value, true
	}
	s.value = close*s.k + s.value*(1-s.k)
	return s.value, true
}
