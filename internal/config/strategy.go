package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig marks a strategy parameter constraint violation. It is
// raised before any bar is processed.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Strategy holds the parameters of the EMA-crossover + RSI-threshold rule
// system. Values are validated once and the struct is passed around as an
// immutable value.
type Strategy struct {
	EMAShortPeriod int     `json:"ema_short_period"`
	EMALongPeriod  int     `json:"ema_long_period"`
	RSIPeriod      int     `json:"rsi_period"`
	RSIOverbought  float64 `json:"rsi_overbought"`
	RSIOversold    float64 `json:"rsi_oversold"`
	MinConfidence  float64 `json:"min_confidence"`

	TradeAmountPercent float64         `json:"trade_amount_percent"`
	MaxTradeAmount     decimal.Decimal `json:"max_trade_amount"` // zero disables the cap
	StopLossPercent    float64         `json:"stop_loss_percent"`
	TakeProfitPercent  float64         `json:"take_profit_percent"`

	MinTimeBetweenTrades time.Duration `json:"min_time_between_trades"`
}

// DefaultStrategy mirrors the stock 12/26 crossover with RSI(14) at 70/30.
func DefaultStrategy() Strategy {
	return Strategy{
		EMAShortPeriod:       12,
		EMALongPeriod:        26,
		RSIPeriod:            14,
		RSIOverbought:        70,
		RSIOversold:          30,
		MinConfidence:        60,
		TradeAmountPercent:   10,
		StopLossPercent:      2,
		TakeProfitPercent:    4,
		MinTimeBetweenTrades: time.Hour,
	}
}

func (s Strategy) Validate() error {
	if s.EMAShortPeriod < 2 {
		return fmt.Errorf("%w: ema short period must be >= 2, got %d", ErrInvalidConfig, s.EMAShortPeriod)
	}
	if s.EMALongPeriod < 2 {
		return fmt.Errorf("%w: ema long period must be >= 2, got %d", ErrInvalidConfig, s.EMALongPeriod)
	}
	if s.EMAShortPeriod >= s.EMALongPeriod {
		return fmt.Errorf("%w: ema short period %d must be below long period %d",
			ErrInvalidConfig, s.EMAShortPeriod, s.EMALongPeriod)
	}
	if s.RSIPeriod < 2 {
		return fmt.Errorf("%w: rsi period must be >= 2, got %d", ErrInvalidConfig, s.RSIPeriod)
	}
	if s.RSIOverbought <= s.RSIOversold {
		return fmt.Errorf("%w: rsi overbought %.1f must exceed oversold %.1f",
			ErrInvalidConfig, s.RSIOverbought, s.RSIOversold)
	}
	if s.RSIOverbought > 100 || s.RSIOversold < 0 {
		return fmt.Errorf("%w: rsi thresholds must lie in [0,100]", ErrInvalidConfig)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 100 {
		return fmt.Errorf("%w: min confidence must lie in [0,100], got %.1f", ErrInvalidConfig, s.MinConfidence)
	}
	if s.TradeAmountPercent <= 0 || s.TradeAmountPercent > 100 {
		return fmt.Errorf("%w: trade amount percent must lie in (0,100], got %.1f",
			ErrInvalidConfig, s.TradeAmountPercent)
	}
	if s.MaxTradeAmount.IsNegative() {
		return fmt.Errorf("%w: max trade amount must not be negative", ErrInvalidConfig)
	}
	if s.StopLossPercent < 0 || s.StopLossPercent >= 100 {
		return fmt.Errorf("%w: stop loss percent must lie in [0,100), got %.1f", ErrInvalidConfig, s.StopLossPercent)
	}
	if s.TakeProfitPercent < 0 {
		return fmt.Errorf("%w: take profit percent must not be negative, got %.1f", ErrInvalidConfig, s.TakeProfitPercent)
	}
	if s.MinTimeBetweenTrades < 0 {
		return fmt.Errorf("%w: min time between trades must be >= 0", ErrInvalidConfig)
	}
	return nil
}
