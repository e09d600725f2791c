package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/md"
	"tradebot/internal/risk"
)

// ExitReason records what closed a trade.
type ExitReason string

const (
	ExitSignal     ExitReason = "signal"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Trade is a closed round trip. Money is decimal so replays are byte-identical.
type Trade struct {
	Symbol        string          `json:"symbol,omitempty"`
	EntryTime     time.Time       `json:"entry_time"`
	EntryPrice    float64         `json:"entry_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	StopLoss      float64         `json:"stop_loss,omitempty"`
	TakeProfit    float64         `json:"take_profit,omitempty"`
	Confidence    float64         `json:"confidence"`
	ExitTime      time.Time       `json:"exit_time"`
	ExitPrice     float64         `json:"exit_price"`
	ExitReason    ExitReason      `json:"exit_reason"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent float64         `json:"profit_percent"`
}

// EquityPoint is the account value after one bar. The curve has one point per
// processed bar, not only per trade, so drawdown is continuous.
type EquityPoint struct {
	Time    time.Time       `json:"time"`
	Balance decimal.Decimal `json:"balance"`
}

// Stats are the summary statistics derived from trades and the equity curve.
type Stats struct {
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent float64         `json:"total_return_percent"`
	TotalTrades        int             `json:"total_trades"`
	WinningTrades      int             `json:"winning_trades"`
	LosingTrades       int             `json:"losing_trades"`
	WinRate            float64         `json:"win_rate"` // percent of closed trades with positive profit
	MaxDrawdownPercent float64         `json:"max_drawdown_percent"`
	SharpeRatio        float64         `json:"sharpe_ratio"`
}

// Result is a complete backtest run.
type Result struct {
	Symbol         string          `json:"symbol"`
	Timeframe      md.Timeframe    `json:"timeframe"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
	Trades         []Trade         `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equity_curve"`
	Stats          Stats           `json:"stats"`
}

func tradeFromPosition(pos *risk.Position, exitTime time.Time, exitPrice float64, reason ExitReason) Trade {
	exitValue := pos.Quantity.Mul(decimal.NewFromFloat(exitPrice))
	profit := exitValue.Sub(pos.Amount)
	profitPct := 0.0
	if pos.Amount.IsPositive() {
		profitPct, _ = profit.Div(pos.Amount).Mul(decimal.NewFromInt(100)).Float64()
	}
	return Trade{
		Symbol:        pos.Symbol,
		EntryTime:     pos.OpenedAt,
		EntryPrice:    pos.EntryPrice,
		Quantity:      pos.Quantity,
		Amount:        pos.Amount,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		Confidence:    pos.Confidence,
		ExitTime:      exitTime,
		ExitPrice:     exitPrice,
		ExitReason:    reason,
		Profit:        profit,
		ProfitPercent: profitPct,
	}
}
