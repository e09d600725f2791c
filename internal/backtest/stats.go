package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"tradebot/internal/md"
)

// ComputeStats derives the summary statistics from a trade ledger and equity
// curve. Numeric edge cases have defined values: no trades means a zero win
// rate and zero return volatility means a zero Sharpe ratio.
func ComputeStats(initialBalance decimal.Decimal, trades []Trade, curve []EquityPoint, tf md.Timeframe) Stats {
	stats := Stats{TotalTrades: len(trades)}

	final := initialBalance
	if len(curve) > 0 {
		final = curve[len(curve)-1].Balance
	}
	stats.TotalReturn = final.Sub(initialBalance)
	if initialBalance.IsPositive() {
		stats.TotalReturnPercent, _ = stats.TotalReturn.Div(initialBalance).Mul(decimal.NewFromInt(100)).Float64()
	}

	for _, t := range trades {
		if t.Profit.IsPositive() {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}
	if len(trades) > 0 {
		stats.WinRate = 100 * float64(stats.WinningTrades) / float64(len(trades))
	}

	stats.MaxDrawdownPercent = maxDrawdown(curve)
	stats.SharpeRatio = sharpe(curve, tf)
	return stats
}

// maxDrawdown is the deepest excursion below the running equity peak, in
// percent. The value is zero or negative.
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Balance
	worst := 0.0
	for _, p := range curve {
		if p.Balance.GreaterThan(peak) {
			peak = p.Balance
		}
		if !peak.IsPositive() {
			continue
		}
		dd, _ := p.Balance.Sub(peak).Div(peak).Mul(decimal.NewFromInt(100)).Float64()
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// sharpe is the mean per-bar return over its standard deviation, annualized
// by the timeframe's bar count per year.
func sharpe(curve []EquityPoint, tf md.Timeframe) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Balance.Float64()
		cur, _ := curve[i].Balance.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tf.BarsPerYear())
}
