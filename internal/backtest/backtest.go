package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/config"
	"tradebot/internal/indicator"
	"tradebot/internal/md"
	"tradebot/internal/risk"
	"tradebot/internal/strategy"
)

// runState is the per-instance position machine. Transitions are the only way
// a position opens or closes, so a second entry while holding is impossible.
type runState int

const (
	stateFlat runState = iota
	stateInPosition
)

// Runner replays a bar series through the indicator series, signal generator
// and risk gate, simulating fills and accumulating the equity curve and trade
// ledger. One Runner handles one run; it carries no shared state, so
// independent runs may execute in parallel.
type Runner struct {
	cfg  config.Strategy
	gen  strategy.EMARSICross
	gate risk.Gate

	state         runState
	balance       decimal.Decimal
	position      *risk.Position
	lastTradeTime time.Time

	series *indicator.Series
	prev   indicator.Point
	prevOK bool
	trades []Trade
	equity []EquityPoint
}

// RunRange validates the request, fetches bars from the provider and replays
// them. Validation failures surface before any data is touched.
func RunRange(ctx context.Context, p md.Provider, symbol string, tf md.Timeframe, start, end time.Time, initialBalance decimal.Decimal, cfg config.Strategy) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := md.ValidateRange(start, end); err != nil {
		return nil, err
	}
	bars, err := p.GetBars(ctx, symbol, tf, start, end)
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Symbol = symbol
	}
	return Run(ctx, bars, tf, initialBalance, cfg)
}

// Run replays bars that are already in hand. The bar series must be strictly
// increasing in time and at least warm-up length; a series of exactly warm-up
// length produces an empty trade ledger. Cancelling ctx aborts cleanly at a
// bar boundary with no partial result.
func Run(ctx context.Context, bars []md.Bar, tf md.Timeframe, initialBalance decimal.Decimal, cfg config.Strategy) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := md.ValidateBars(bars); err != nil {
		return nil, err
	}
	warmup := indicator.WarmupBars(cfg.EMALongPeriod, cfg.RSIPeriod)
	if len(bars) < warmup {
		return nil, fmt.Errorf("%w: backtest needs %d bars for warm-up, have %d",
			indicator.ErrInsufficientData, warmup, len(bars))
	}
	if !initialBalance.IsPositive() {
		return nil, fmt.Errorf("%w: initial balance must be positive", config.ErrInvalidConfig)
	}

	r := &Runner{
		cfg:     cfg,
		gen:     strategy.NewEMARSICross(cfg.RSIOverbought, cfg.RSIOversold),
		gate:    risk.Gate{},
		balance: initialBalance,
		series:  indicator.NewSeries(cfg.EMAShortPeriod, cfg.EMALongPeriod, cfg.RSIPeriod),
		equity:  make([]EquityPoint, 0, len(bars)),
	}

	for i := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.step(bars[i])
	}

	// Force-close whatever is still open on the last close.
	last := bars[len(bars)-1]
	if r.state == stateInPosition {
		r.closePosition(last.Time, last.Close, ExitEndOfData)
		r.equity[len(r.equity)-1] = EquityPoint{Time: last.Time, Balance: r.balance}
	}

	result := &Result{
		Symbol:         last.Symbol,
		Timeframe:      tf,
		Start:          bars[0].Time,
		End:            last.Time,
		InitialBalance: initialBalance,
		FinalBalance:   r.balance,
		Trades:         r.trades,
		EquityCurve:    r.equity,
	}
	result.Stats = ComputeStats(initialBalance, result.Trades, result.EquityCurve, tf)
	slog.Debug("backtest finished",
		"symbol", result.Symbol, "bars", len(bars), "trades", len(result.Trades),
		"final_balance", result.FinalBalance)
	return result, nil
}

// step advances the state machine by one bar: indicators first, then protective
// exits, then fresh signals, then the equity point.
func (r *Runner) step(bar md.Bar) {
	cur, warm := r.series.Push(bar.Time, bar.Close)

	exited := false
	if r.state == stateInPosition {
		exited = r.checkProtectiveExits(bar)
	}

	// Stop-loss and take-profit outrank a new signal on the same bar.
	if !exited && warm && r.prevOK {
		if sig, ok := r.gen.OnPoint(r.prev, cur, bar.Close); ok {
			sig.Symbol = bar.Symbol
			r.onSignal(sig)
		}
	}

	if warm {
		r.prev = cur
		r.prevOK = true
	}
	r.equity = append(r.equity, EquityPoint{Time: bar.Time, Balance: r.markToMarket(bar.Close)})
}

// checkProtectiveExits applies the stop-loss and take-profit levels against
// the bar's extremes. When both are crossed within one bar the stop-loss is
// assumed to have triggered first, the conservative reading.
func (r *Runner) checkProtectiveExits(bar md.Bar) bool {
	pos := r.position
	if pos.StopLoss > 0 && bar.Low <= pos.StopLoss {
		r.closePosition(bar.Time, pos.StopLoss, ExitStopLoss)
		return true
	}
	if pos.TakeProfit > 0 && bar.High >= pos.TakeProfit {
		r.closePosition(bar.Time, pos.TakeProfit, ExitTakeProfit)
		return true
	}
	return false
}

func (r *Runner) onSignal(sig strategy.Signal) {
	decision, err := r.gate.Evaluate(sig, r.cfg, risk.RiskContext{
		Balance:       r.balance,
		LastTradeTime: r.lastTradeTime,
		Position:      r.position,
	})
	if err != nil {
		return
	}
	switch decision.Action {
	case risk.Enter:
		pos := decision.Position
		r.balance = r.balance.Sub(pos.Amount)
		r.position = &pos
		r.state = stateInPosition
		r.lastTradeTime = sig.Time
	case risk.Exit:
		r.closePosition(sig.Time, sig.Price, ExitSignal)
	}
}

func (r *Runner) closePosition(t time.Time, price float64, reason ExitReason) {
	pos := r.position
	r.balance = r.balance.Add(pos.Quantity.Mul(decimal.NewFromFloat(price)))
	r.trades = append(r.trades, tradeFromPosition(pos, t, price, reason))
	r.position = nil
	r.state = stateFlat
	r.lastTradeTime = t
}

// markToMarket values the account at a close price: cash plus open position.
func (r *Runner) markToMarket(close float64) decimal.Decimal {
	if r.position == nil {
		return r.balance
	}
	return r.balance.Add(r.position.Quantity.Mul(decimal.NewFromFloat(close)))
}
