package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/config"
	"tradebot/internal/indicator"
	"tradebot/internal/md"
	"tradebot/internal/risk"
)

var barBase = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

// fastStrategy uses short periods so crossovers fire within a handful of
// bars: warm-up is max(5, 3+1) = 5 bars.
func fastStrategy() config.Strategy {
	cfg := config.DefaultStrategy()
	cfg.EMAShortPeriod = 3
	cfg.EMALongPeriod = 5
	cfg.RSIPeriod = 3
	cfg.MinConfidence = 0
	cfg.MinTimeBetweenTrades = 0
	return cfg
}

func barsFromCloses(closes []float64) []md.Bar {
	bars := make([]md.Bar, len(closes))
	for i, c := range closes {
		bars[i] = md.Bar{
			Symbol: "AAPL",
			Time:   barBase.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// vShape declines from 100 to 90 and rallies back through the long EMA.
// With 3/5 EMAs the short crosses above the long on the 100 close.
func vShape(tail ...float64) []md.Bar {
	closes := append([]float64{100, 98, 96, 94, 92, 90, 95, 100}, tail...)
	return barsFromCloses(closes)
}

type stubProvider struct {
	bars []md.Bar
	err  error
}

func (p stubProvider) GetBars(ctx context.Context, symbol string, tf md.Timeframe, start, end time.Time) ([]md.Bar, error) {
	return p.bars, p.err
}

func TestRunRangeRejectsInvertedRange(t *testing.T) {
	start := barBase
	_, err := RunRange(context.Background(), stubProvider{}, "AAPL", md.TF1h,
		start, start, decimal.NewFromInt(10000), fastStrategy())
	if !errors.Is(err, md.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestRunRangePropagatesProviderError(t *testing.T) {
	provider := stubProvider{err: md.ErrDataUnavailable}
	_, err := RunRange(context.Background(), provider, "AAPL", md.TF1h,
		barBase, barBase.Add(time.Hour), decimal.NewFromInt(10000), fastStrategy())
	if !errors.Is(err, md.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestRunRejectsShortSeries(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102})
	_, err := Run(context.Background(), bars, md.TF1h, decimal.NewFromInt(10000), fastStrategy())
	if !errors.Is(err, indicator.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunAcceptsExactWarmupLength(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102, 103, 104})
	res, err := Run(context.Background(), bars, md.TF1h, decimal.NewFromInt(10000), fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected empty trade ledger, got %d trades", len(res.Trades))
	}
	if len(res.EquityCurve) != len(bars) {
		t.Fatalf("expected %d equity points, got %d", len(bars), len(res.EquityCurve))
	}
	if !res.FinalBalance.Equal(res.InitialBalance) {
		t.Fatalf("balance changed without trades: %s", res.FinalBalance)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := fastStrategy()
	cfg.EMAShortPeriod = 5
	bars := vShape(101)
	_, err := Run(context.Background(), bars, md.TF1h, decimal.NewFromInt(10000), cfg)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunRejectsNonPositiveBalance(t *testing.T) {
	bars := vShape(101)
	_, err := Run(context.Background(), bars, md.TF1h, decimal.Zero, fastStrategy())
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunRejectsUnsortedBars(t *testing.T) {
	bars := vShape(101)
	bars[2].Time = bars[1].Time
	_, err := Run(context.Background(), bars, md.TF1h, decimal.NewFromInt(10000), fastStrategy())
	if !errors.Is(err, md.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bars := vShape(101)
	_, err := Run(ctx, bars, md.TF1h, decimal.NewFromInt(10000), fastStrategy())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunFlatSeriesTradesNothing(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	bars := barsFromCloses(closes)
	balance := decimal.NewFromInt(10000)

	result, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trades) != 0 {
		t.Fatalf("expected no trades on a flat series, got %d", len(result.Trades))
	}
	if !result.FinalBalance.Equal(balance) {
		t.Fatalf("expected untouched balance, got %s", result.FinalBalance)
	}
	if len(result.EquityCurve) != len(bars) {
		t.Fatalf("expected one equity point per bar, got %d for %d bars",
			len(result.EquityCurve), len(bars))
	}
	if result.Stats.SharpeRatio != 0 || result.Stats.MaxDrawdownPercent != 0 {
		t.Fatalf("expected zero sharpe and drawdown, got %v / %v",
			result.Stats.SharpeRatio, result.Stats.MaxDrawdownPercent)
	}
}

func TestRunForceClosesAtEndOfData(t *testing.T) {
	// entry at 100, then one quiet bar; the run ends holding
	bars := vShape(101)
	balance := decimal.NewFromInt(10000)

	result, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != ExitEndOfData {
		t.Fatalf("expected end_of_data exit, got %s", trade.ExitReason)
	}
	if trade.EntryPrice != 100 || trade.ExitPrice != 101 {
		t.Fatalf("expected entry 100 exit 101, got %v / %v", trade.EntryPrice, trade.ExitPrice)
	}
	// 10% of 10000 buys 10 shares at 100; closing at 101 yields +10
	if !trade.Profit.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected profit 10, got %s", trade.Profit)
	}
	if !result.FinalBalance.Equal(decimal.NewFromInt(10010)) {
		t.Fatalf("expected final balance 10010, got %s", result.FinalBalance)
	}
	last := result.EquityCurve[len(result.EquityCurve)-1]
	if !last.Balance.Equal(result.FinalBalance) {
		t.Fatalf("expected final equity point to match balance, got %s", last.Balance)
	}
}

func TestRunTakeProfitExit(t *testing.T) {
	// entry at 100 with take profit at 104; the 105 bar's high reaches it
	bars := vShape(105, 106)
	balance := decimal.NewFromInt(10000)

	result, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	trade := result.Trades[0]
	if trade.ExitReason != ExitTakeProfit {
		t.Fatalf("expected take_profit exit, got %s", trade.ExitReason)
	}
	if trade.ExitPrice != 104 {
		t.Fatalf("expected fill at the take profit level 104, got %v", trade.ExitPrice)
	}
	if !trade.Profit.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected profit 40, got %s", trade.Profit)
	}
}

func TestRunStopLossExit(t *testing.T) {
	// entry at 100 with stop loss at 98; the 95 bar's low breaches it
	bars := vShape(95, 94)
	balance := decimal.NewFromInt(10000)

	result, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	trade := result.Trades[0]
	if trade.ExitReason != ExitStopLoss {
		t.Fatalf("expected stop_loss exit, got %s", trade.ExitReason)
	}
	if trade.ExitPrice != 98 {
		t.Fatalf("expected fill at the stop level 98, got %v", trade.ExitPrice)
	}
	if !trade.Profit.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected loss of 20, got %s", trade.Profit)
	}
}

func TestStopLossOutranksTakeProfitSameBar(t *testing.T) {
	r := &Runner{
		state:   stateInPosition,
		balance: decimal.NewFromInt(9000),
		position: &risk.Position{
			EntryPrice: 100,
			Quantity:   decimal.NewFromInt(10),
			Amount:     decimal.NewFromInt(1000),
			StopLoss:   98,
			TakeProfit: 104,
		},
	}
	// a wide bar that sweeps both levels
	bar := md.Bar{Time: barBase, Open: 100, High: 105, Low: 97, Close: 101}
	if !r.checkProtectiveExits(bar) {
		t.Fatal("expected a protective exit")
	}
	if len(r.trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(r.trades))
	}
	if r.trades[0].ExitReason != ExitStopLoss {
		t.Fatalf("expected the stop loss to win the bar, got %s", r.trades[0].ExitReason)
	}
	if r.state != stateFlat {
		t.Fatal("expected the position machine back in flat")
	}
}

func TestRunDeterministic(t *testing.T) {
	bars := vShape(105, 106, 103, 99, 96, 98, 102, 107)
	balance := decimal.NewFromInt(10000)

	a, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Run(context.Background(), bars, md.TF1h, balance, fastStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a.Trades) != len(b.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(a.Trades), len(b.Trades))
	}
	for i := range a.Trades {
		if !a.Trades[i].Profit.Equal(b.Trades[i].Profit) ||
			a.Trades[i].ExitReason != b.Trades[i].ExitReason ||
			!a.Trades[i].EntryTime.Equal(b.Trades[i].EntryTime) {
			t.Fatalf("trade %d differs between identical runs", i)
		}
	}
	if !a.FinalBalance.Equal(b.FinalBalance) {
		t.Fatalf("final balances differ: %s vs %s", a.FinalBalance, b.FinalBalance)
	}
	if len(a.EquityCurve) != len(b.EquityCurve) {
		t.Fatalf("equity curve lengths differ: %d vs %d", len(a.EquityCurve), len(b.EquityCurve))
	}
	for i := range a.EquityCurve {
		if !a.EquityCurve[i].Balance.Equal(b.EquityCurve[i].Balance) {
			t.Fatalf("equity point %d differs between identical runs", i)
		}
	}
}
