package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/backtest"
	"tradebot/internal/barstore"
	"tradebot/internal/config"
	"tradebot/internal/md"
)

func main() {
	var (
		file           = flag.String("file", "", "bar file (.csv or .parquet); overrides -source")
		source         = flag.String("source", "alpaca", "bar source: alpaca or clickhouse")
		symbol         = flag.String("symbol", "AAPL", "trading symbol")
		timeframe      = flag.String("timeframe", "1h", "bar timeframe")
		startStr       = flag.String("start", "", "range start (RFC3339 or 2006-01-02)")
		endStr         = flag.String("end", "", "range end (RFC3339 or 2006-01-02)")
		initialBalance = flag.Float64("balance", 10000, "initial balance")
		tradesOut      = flag.String("trades-out", "", "optional CSV path for the trade ledger")
		cacheOut       = flag.String("cache-out", "", "optional parquet path to cache fetched bars")
		feed           = flag.String("feed", "iex", "alpaca data feed")
		chAddr         = flag.String("ch-addr", "localhost:9000", "clickhouse address")
		chDatabase     = flag.String("ch-database", "tradebot", "clickhouse database")
	)
	strat := config.DefaultStrategy()
	var maxTradeAmount float64
	flag.IntVar(&strat.EMAShortPeriod, "ema-short", strat.EMAShortPeriod, "short EMA period")
	flag.IntVar(&strat.EMALongPeriod, "ema-long", strat.EMALongPeriod, "long EMA period")
	flag.IntVar(&strat.RSIPeriod, "rsi-period", strat.RSIPeriod, "RSI period")
	flag.Float64Var(&strat.RSIOverbought, "rsi-overbought", strat.RSIOverbought, "RSI overbought threshold")
	flag.Float64Var(&strat.RSIOversold, "rsi-oversold", strat.RSIOversold, "RSI oversold threshold")
	flag.Float64Var(&strat.MinConfidence, "min-confidence", strat.MinConfidence, "minimum signal confidence")
	flag.Float64Var(&strat.TradeAmountPercent, "trade-amount-pct", strat.TradeAmountPercent, "percent of balance per trade")
	flag.Float64Var(&maxTradeAmount, "max-trade-amount", 0, "absolute cap per trade, 0 disables")
	flag.Float64Var(&strat.StopLossPercent, "stop-loss-pct", strat.StopLossPercent, "stop loss percent")
	flag.Float64Var(&strat.TakeProfitPercent, "take-profit-pct", strat.TakeProfitPercent, "take profit percent")
	flag.DurationVar(&strat.MinTimeBetweenTrades, "cooldown", strat.MinTimeBetweenTrades, "minimum time between trades")
	flag.Parse()

	if maxTradeAmount > 0 {
		strat.MaxTradeAmount = decimal.NewFromFloat(maxTradeAmount)
	}

	tf, err := md.ParseTimeframe(*timeframe)
	if err != nil {
		log.Fatalf("timeframe: %v", err)
	}
	start, end, err := parseRange(*startStr, *endStr)
	if err != nil {
		log.Fatalf("range: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := buildProvider(ctx, *file, *source, *feed, *chAddr, *chDatabase)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	if *cacheOut != "" {
		bars, err := provider.GetBars(ctx, *symbol, tf, start, end)
		if err != nil {
			log.Fatalf("fetch bars: %v", err)
		}
		if err := md.WriteParquet(*cacheOut, bars); err != nil {
			log.Fatalf("cache bars: %v", err)
		}
		log.Printf("cached %d bars to %s", len(bars), *cacheOut)
	}

	result, err := backtest.RunRange(ctx, provider, *symbol, tf, start, end, decimal.NewFromFloat(*initialBalance), strat)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	printSummary(result)

	if *tradesOut != "" {
		if err := writeTrades(*tradesOut, result.Trades); err != nil {
			log.Fatalf("write trades: %v", err)
		}
		log.Printf("wrote %d trades to %s", len(result.Trades), *tradesOut)
	}
}

func buildProvider(ctx context.Context, file, source, feed, chAddr, chDatabase string) (md.Provider, error) {
	if file != "" {
		return md.FileProvider{Path: file}, nil
	}
	switch source {
	case "alpaca":
		return md.NewAlpacaProvider(os.Getenv("APCA_API_KEY_ID"), os.Getenv("APCA_API_SECRET_KEY"), feed), nil
	case "clickhouse":
		return barstore.Open(ctx, barstore.Options{
			Addr:     chAddr,
			Database: chDatabase,
			Username: os.Getenv("CH_USER"),
			Password: os.Getenv("CH_PASSWORD"),
		})
	default:
		return nil, fmt.Errorf("unknown source: %s", source)
	}
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-start and -end are required")
	}
	start, err := parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func printSummary(result *backtest.Result) {
	stats := result.Stats
	fmt.Printf("Backtest %s %s  %s -> %s\n", result.Symbol, result.Timeframe,
		result.Start.Format("2006-01-02 15:04"), result.End.Format("2006-01-02 15:04"))
	fmt.Printf("  balance:       %s -> %s\n", result.InitialBalance, result.FinalBalance)
	fmt.Printf("  total return:  %s (%.2f%%)\n", stats.TotalReturn, stats.TotalReturnPercent)
	fmt.Printf("  trades:        %d (%d wins, %d losses, %.1f%% win rate)\n",
		stats.TotalTrades, stats.WinningTrades, stats.LosingTrades, stats.WinRate)
	fmt.Printf("  max drawdown:  %.2f%%\n", stats.MaxDrawdownPercent)
	fmt.Printf("  sharpe ratio:  %.2f\n", stats.SharpeRatio)
}

func writeTrades(path string, trades []backtest.Trade) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"entry_time", "entry_price", "quantity", "exit_time", "exit_price", "exit_reason", "profit", "profit_pct", "confidence"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		rec := []string{
			t.EntryTime.Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			t.Quantity.String(),
			t.ExitTime.Format(time.RFC3339),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			string(t.ExitReason),
			t.Profit.String(),
			strconv.FormatFloat(t.ProfitPercent, 'f', 2, 64),
			strconv.FormatFloat(t.Confidence, 'f', 1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
