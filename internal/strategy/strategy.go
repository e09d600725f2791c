package strategy

import (
	"time"

	"tradebot/internal/indicator"
)

type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

type Strength string

const (
	Weak     Strength = "weak"
	Moderate Strength = "moderate"
	Strong   Strength = "strong"
)

// Signal is an immutable trade signal emitted on a crossover bar.
type Signal struct {
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol,omitempty"`
	Direction  Direction `json:"direction"`
	Strength   Strength  `json:"strength"`
	Confidence float64   `json:"confidence"`
	Price      float64   `json:"price"`
	EMAShort   float64   `json:"ema_short"`
	EMALong    float64   `json:"ema_long"`
	RSI        float64   `json:"rsi"`
	Message    string    `json:"message"`
}

// Generator turns consecutive indicator points into signals. OnPoint is called
// once per bar with the previous and current point; most bars produce nothing.
type Generator interface {
	OnPoint(prev, cur indicator.Point, price float64) (Signal, bool)
}
