package md

import (
	"fmt"
	"time"
)

// Timeframe is a bar cadence label ("1m", "5m", "15m", "1h", "4h", "1d").
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// ParseTimeframe validates a timeframe label.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case TF1m, TF5m, TF15m, TF1h, TF4h, TF1d:
		return tf, nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", s)
	}
}

// Duration returns the length of one bar.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}

// BarsPerYear is the annualization factor for per-bar return statistics.
// Daily bars use trading days; intraday cadences assume a 24/7 market,
// which is what the bot trades.
func (tf Timeframe) BarsPerYear() float64 {
	if tf == TF1d {
		return 252
	}
	return float64(365 * 24 * time.Hour / tf.Duration())
}

func (tf Timeframe) String() string { return string(tf) }
