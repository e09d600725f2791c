package indicator

import (
	"fmt"
	"time"
)

// Point is the per-bar indicator snapshot once all three indicators are warm.
type Point struct {
	Time     time.Time `json:"time"`
	EMAShort float64   `json:"ema_short"`
	EMALong  float64   `json:"ema_long"`
	RSI      float64   `json:"rsi"`
}

// WarmupBars is the number of bars consumed before a Series yields its first
// Point: the long EMA needs emaLongPeriod closes and the RSI needs
// rsiPeriod+1.
func WarmupBars(emaLongPeriod, rsiPeriod int) int {
	if emaLongPeriod >= rsiPeriod+1 {
		return emaLongPeriod
	}
	return rsiPeriod + 1
}

// Series feeds one close at a time into short/long EMA and RSI streams and
// yields an aligned Point per bar after warm-up. State is carried forward, so
// each push is O(1). There is no entropy anywhere: pushing the same closes
// reproduces the same points.
type Series struct {
	emaShort *emaStream
	emaLong  *emaStream
	rsi      *rsiStream
	warmup   int
	last     Point
	ready    bool
}

func NewSeries(emaShortPeriod, emaLongPeriod, rsiPeriod int) *Series {
	return &Series{
		emaShort: newEMAStream(emaShortPeriod),
		emaLong:  newEMAStream(emaLongPeriod),
		rsi:      newRSIStream(rsiPeriod),
		warmup:   WarmupBars(emaLongPeriod, rsiPeriod),
	}
}

// Push consumes one bar close. ok is false during warm-up.
func (s *Series) Push(t time.Time, close float64) (Point, bool) {
	short, _ := s.emaShort.push(close)
	long, longOK := s.emaLong.push(close)
	rsi, rsiOK := s.rsi.push(close)
	if !longOK || !rsiOK {
		return Point{}, false
	}
	s.last = Point{Time: t, EMAShort: short, EMALong: long, RSI: rsi}
	s.ready = true
	return s.last, true
}

// Last returns the most recent point.
func (s *Series) Last() (Point, bool) { return s.last, s.ready }

// Warmup returns the number of bars the series consumes before producing.
func (s *Series) Warmup() int { return s.warmup }

// Compute runs a whole close series through a fresh Series and returns one
// Point per bar from warm-up onward. times must align with closes.
func Compute(times []time.Time, closes []float64, emaShortPeriod, emaLongPeriod, rsiPeriod int) ([]Point, error) {
	if len(times) != len(closes) {
		return nil, fmt.Errorf("times/closes length mismatch: %d vs %d", len(times), len(closes))
	}
	warmup := WarmupBars(emaLongPeriod, rsiPeriod)
	if len(closes) < warmup {
		return nil, fmt.Errorf("%w: need %d bars for ema(%d)/rsi(%d), have %d",
			ErrInsufficientData, warmup, emaLongPeriod, rsiPeriod, len(closes))
	}
	s := NewSeries(emaShortPeriod, emaLongPeriod, rsiPeriod)
	out := make([]Point, 0, len(closes)-warmup+1)
	for i := range closes {
		if p, ok := s.Push(times[i], closes[i]); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
