package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"tradebot/internal/broker"
	"tradebot/internal/config"
	"tradebot/internal/indicator"
	"tradebot/internal/md"
	"tradebot/internal/risk"
	"tradebot/internal/state"
	"tradebot/internal/strategy"
)

// Engine drives one live strategy instance. Bars are processed strictly in
// order on a single goroutine: each step depends on the indicator state and
// open position carried forward from the previous bar. Run several instances
// for several symbols; they share nothing.
type Engine struct {
	cfg         config.Config
	gen         strategy.EMARSICross
	gate        risk.Gate
	broker      *broker.Client
	state       *state.Store
	decisions   *DecisionLogger
	series      *indicator.Series
	prev        indicator.Point
	prevOK      bool
	runID       string
	orderSeqNum uint64
}

func New(cfg config.Config, brokerClient *broker.Client, stateStore *state.Store, decisions *DecisionLogger) *Engine {
	return &Engine{
		cfg:       cfg,
		gen:       strategy.NewEMARSICross(cfg.Strategy.RSIOverbought, cfg.Strategy.RSIOversold),
		gate:      risk.Gate{},
		broker:    brokerClient,
		state:     stateStore,
		decisions: decisions,
		series:    indicator.NewSeries(cfg.Strategy.EMAShortPeriod, cfg.Strategy.EMALongPeriod, cfg.Strategy.RSIPeriod),
		runID:     decisions.RunID(),
	}
}

// OnBar advances the instance by one bar. An order failure is logged and
// surfaced in the decision record; the engine keeps evaluating the next bar.
func (e *Engine) OnBar(ctx context.Context, bar md.Bar) {
	e.state.SetLastBarTime(bar.Time)
	cur, warm := e.series.Push(bar.Time, bar.Close)

	decision := Decision{
		RunID:   e.runID,
		BarTime: bar.Time,
		Symbol:  bar.Symbol,
		Close:   bar.Close,
	}
	if warm {
		decision.EMAShort = cur.EMAShort
		decision.EMALong = cur.EMALong
		decision.RSI = cur.RSI
	}

	snapshot := e.state.Snapshot()

	// Protective exits outrank new signals on the same bar; when both levels
	// are crossed the stop-loss is assumed first.
	if pos := snapshot.Position; pos != nil {
		if exited, reason := e.checkProtectiveExit(ctx, bar, pos, &decision); exited {
			decision.Result = reason
			e.decisions.Append(decision)
			return
		}
	}

	if !warm {
		decision.Result = "warming_up"
		e.decisions.Append(decision)
		return
	}
	if !e.prevOK {
		e.prev = cur
		e.prevOK = true
		decision.Result = "first_point"
		e.decisions.Append(decision)
		return
	}

	sig, ok := e.gen.OnPoint(e.prev, cur, bar.Close)
	e.prev = cur
	if !ok {
		decision.Result = "no_signal"
		e.decisions.Append(decision)
		return
	}
	sig.Symbol = bar.Symbol
	decision.Signal = string(sig.Direction)
	decision.Strength = string(sig.Strength)
	decision.Confidence = sig.Confidence
	slog.Info("signal", "direction", sig.Direction, "strength", sig.Strength,
		"confidence", sig.Confidence, "price", sig.Price, "message", sig.Message)

	balance := e.balance(ctx)
	approved, err := e.gate.Evaluate(sig, e.cfg.Strategy, risk.RiskContext{
		Balance:       balance,
		LastTradeTime: snapshot.LastTradeTime,
		Position:      snapshot.Position,
	})
	if err != nil {
		decision.Result = "rejected"
		decision.RejectReason = err.Error()
		e.decisions.Append(decision)
		return
	}

	if e.cfg.Mode == config.ModeStream || e.cfg.KillSwitch {
		decision.Result = "dry_run"
		decision.ApprovalReason = approved.Reason
		e.decisions.Append(decision)
		return
	}

	switch approved.Action {
	case risk.Enter:
		e.enter(ctx, sig, approved.Position, &decision)
	case risk.Exit:
		e.exit(ctx, bar.Time, snapshot.Position, "signal", &decision)
	}
	e.decisions.Append(decision)
}

func (e *Engine) checkProtectiveExit(ctx context.Context, bar md.Bar, pos *risk.Position, decision *Decision) (bool, string) {
	if pos.StopLoss > 0 && bar.Low <= pos.StopLoss {
		e.exit(ctx, bar.Time, pos, "stop_loss", decision)
		return true, "stop_loss"
	}
	if pos.TakeProfit > 0 && bar.High >= pos.TakeProfit {
		e.exit(ctx, bar.Time, pos, "take_profit", decision)
		return true, "take_profit"
	}
	return false, ""
}

func (e *Engine) enter(ctx context.Context, sig strategy.Signal, pos risk.Position, decision *Decision) {
	ref, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:        sig.Symbol,
		Qty:           pos.Quantity,
		Side:          alpaca.Buy,
		ClientOrderID: e.nextClientOrderID(),
	})
	if err != nil {
		decision.Result = "order_failed"
		decision.RejectReason = err.Error()
		return
	}
	decision.Result = "entered"
	decision.OrderID = ref.ID
	decision.ClientOrderID = ref.ClientOrderID
	e.state.SetPosition(&pos)
	e.state.SetLastTradeTime(sig.Time)
	e.trackOrder(ref)
}

func (e *Engine) exit(ctx context.Context, at time.Time, pos *risk.Position, reason string, decision *Decision) {
	ref, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:        pos.Symbol,
		Qty:           pos.Quantity,
		Side:          alpaca.Sell,
		ClientOrderID: e.nextClientOrderID(),
	})
	if err != nil {
		decision.Result = "order_failed"
		decision.RejectReason = err.Error()
		return
	}
	decision.Result = "exited_" + reason
	decision.OrderID = ref.ID
	decision.ClientOrderID = ref.ClientOrderID
	e.state.SetPosition(nil)
	e.state.SetLastTradeTime(at)
	e.trackOrder(ref)
}

// balance asks the broker in paper mode; stream mode trades a nominal account
// so sizing still produces sensible dry-run quantities.
func (e *Engine) balance(ctx context.Context) decimal.Decimal {
	if e.cfg.Mode == config.ModeStream {
		return decimal.NewFromInt(10000)
	}
	account, err := e.broker.Account(ctx)
	if err != nil {
		slog.Error("fetch account for sizing failed", "error", err)
		return decimal.Zero
	}
	return account.BuyingPower
}

func (e *Engine) trackOrder(ref broker.OrderRef) {
	snapshot := e.state.Snapshot()
	snapshot.OpenOrders[ref.ClientOrderID] = state.OpenOrder{
		ClientOrderID: ref.ClientOrderID,
		OrderID:       ref.ID,
		Status:        ref.Status,
	}
	e.state.SetOpenOrders(snapshot.OpenOrders)
}

func (e *Engine) nextClientOrderID() string {
	seq := atomic.AddUint64(&e.orderSeqNum, 1)
	return fmt.Sprintf("%s-%d", e.runID, seq)
}
