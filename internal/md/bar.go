package md

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange covers malformed date ranges and out-of-order bar series.
	ErrInvalidRange = errors.New("invalid range")
	// ErrDataUnavailable means a provider could not serve the requested range.
	ErrDataUnavailable = errors.New("market data unavailable")
)

// Bar is one OHLCV candle.
type Bar struct {
	Symbol string    `json:"symbol,omitempty"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateBars checks that timestamps are strictly increasing. Gaps are
// tolerated, duplicates and reordering are not.
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d timestamp %s not after %s",
				ErrInvalidRange, i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// ValidateRange rejects empty or inverted date ranges before any data is fetched.
func ValidateRange(start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s must be before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// Closes extracts the close series from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
