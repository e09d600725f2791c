package risk

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/config"
	"tradebot/internal/strategy"
)

// Position is an open long position. At most one exists per strategy
// instance; it is closed exactly once before another opens.
type Position struct {
	OpenedAt   time.Time       `json:"opened_at"`
	Symbol     string          `json:"symbol,omitempty"`
	EntryPrice float64         `json:"entry_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	StopLoss   float64         `json:"stop_loss"`
	TakeProfit float64         `json:"take_profit"`
	Confidence float64         `json:"confidence"`
}

type Action string

const (
	Enter Action = "enter"
	Exit  Action = "exit"
)

// Decision is an accepted signal: either a sized entry or an exit of the
// open position.
type Decision struct {
	Action   Action
	Position Position // populated for entries
	Reason   string
}

// RiskContext is the mutable trading state the gate evaluates against. The
// gate itself is pure; callers advance LastTradeTime only after acting on an
// accepted decision, never on a rejection.
type RiskContext struct {
	Balance       decimal.Decimal
	LastTradeTime time.Time
	Position      *Position
}

type Gate struct{}

// Evaluate gates and sizes a signal. Rejections come back as errors carrying
// the reason. The engine is long-only: a sell while flat is rejected rather
// than opening a short, and a sell while long is an exit.
func (g Gate) Evaluate(sig strategy.Signal, cfg config.Strategy, ctx RiskContext) (Decision, error) {
	if sig.Confidence < cfg.MinConfidence {
		slog.Debug("risk rejected", "reason", "below_min_confidence", "confidence", sig.Confidence, "min", cfg.MinConfidence)
		return Decision{}, fmt.Errorf("below_min_confidence: %.1f < %.1f", sig.Confidence, cfg.MinConfidence)
	}
	if elapsed := sig.Time.Sub(ctx.LastTradeTime); !ctx.LastTradeTime.IsZero() && elapsed < cfg.MinTimeBetweenTrades {
		slog.Debug("risk rejected", "reason", "cooldown_active", "elapsed", elapsed, "cooldown", cfg.MinTimeBetweenTrades)
		return Decision{}, fmt.Errorf("cooldown_active: %s since last trade", elapsed)
	}

	switch sig.Direction {
	case strategy.Buy:
		if ctx.Position != nil {
			slog.Debug("risk rejected", "reason", "position_already_open")
			return Decision{}, fmt.Errorf("position_already_open")
		}
		pos, err := g.size(sig, cfg, ctx.Balance)
		if err != nil {
			return Decision{}, err
		}
		slog.Info("risk approved entry",
			"price", sig.Price, "qty", pos.Quantity, "stop", pos.StopLoss, "take", pos.TakeProfit)
		return Decision{Action: Enter, Position: pos, Reason: "entry_approved"}, nil

	case strategy.Sell:
		if ctx.Position == nil {
			slog.Debug("risk rejected", "reason", "no_position_to_sell")
			return Decision{}, fmt.Errorf("no_position_to_sell")
		}
		slog.Info("risk approved exit", "price", sig.Price, "qty", ctx.Position.Quantity)
		return Decision{Action: Exit, Reason: "exit_approved"}, nil

	default:
		return Decision{}, fmt.Errorf("unknown_direction: %s", sig.Direction)
	}
}

// size allocates TradeAmountPercent of the balance (capped by MaxTradeAmount
// when set) and derives the protective levels from the entry price.
func (g Gate) size(sig strategy.Signal, cfg config.Strategy, balance decimal.Decimal) (Position, error) {
	if sig.Price <= 0 {
		return Position{}, fmt.Errorf("invalid_price: %.4f", sig.Price)
	}
	amount := balance.Mul(decimal.NewFromFloat(cfg.TradeAmountPercent)).Div(decimal.NewFromInt(100))
	if cfg.MaxTradeAmount.IsPositive() && amount.GreaterThan(cfg.MaxTradeAmount) {
		amount = cfg.MaxTradeAmount
	}
	if !amount.IsPositive() {
		return Position{}, fmt.Errorf("insufficient_balance: %s", balance)
	}
	price := decimal.NewFromFloat(sig.Price)
	pos := Position{
		OpenedAt:   sig.Time,
		Symbol:     sig.Symbol,
		EntryPrice: sig.Price,
		Quantity:   amount.Div(price),
		Amount:     amount,
		Confidence: sig.Confidence,
	}
	// A zero percent leaves the level at zero, which disables the check.
	if cfg.StopLossPercent > 0 {
		pos.StopLoss = sig.Price * (1 - cfg.StopLossPercent/100)
	}
	if cfg.TakeProfitPercent > 0 {
		pos.TakeProfit = sig.Price * (1 + cfg.TakeProfitPercent/100)
	}
	return pos, nil
}
