package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	// ModeStream evaluates live bars but never places orders.
	ModeStream Mode = "stream"
	// ModePaper places orders against the paper trading API.
	ModePaper Mode = "paper"
)

// Config is the live bot's runtime configuration: flags for tunables, env for
// credentials, .env honored when present.
type Config struct {
	Mode              Mode
	Symbol            string
	Feed              string
	Timeframe         string
	Strategy          Strategy
	ReconcileInterval time.Duration
	KillSwitch        bool
	DecisionsPath     string
	CheckpointPath    string
	PaperBaseURL      string
	APIKey            string
	APISecret         string
}

func Load() (Config, error) {
	var cfg Config
	var mode string
	var maxTradeAmount float64
	var minConfidence float64
	var cooldown time.Duration

	loadDotEnvIfPresent(".env")

	flag.StringVar(&mode, "mode", string(ModeStream), "run mode: stream or paper")
	flag.StringVar(&cfg.Symbol, "symbol", "AAPL", "trading symbol")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flag.StringVar(&cfg.Timeframe, "timeframe", "1m", "bar timeframe")
	flag.IntVar(&cfg.Strategy.EMAShortPeriod, "ema-short", 12, "short EMA period")
	flag.IntVar(&cfg.Strategy.EMALongPeriod, "ema-long", 26, "long EMA period")
	flag.IntVar(&cfg.Strategy.RSIPeriod, "rsi-period", 14, "RSI period")
	flag.Float64Var(&cfg.Strategy.RSIOverbought, "rsi-overbought", 70, "RSI overbought threshold")
	flag.Float64Var(&cfg.Strategy.RSIOversold, "rsi-oversold", 30, "RSI oversold threshold")
	flag.Float64Var(&minConfidence, "min-confidence", 60, "minimum signal confidence to trade")
	flag.Float64Var(&cfg.Strategy.TradeAmountPercent, "trade-amount-pct", 10, "percent of balance per trade")
	flag.Float64Var(&maxTradeAmount, "max-trade-amount", 0, "absolute cap per trade, 0 disables")
	flag.Float64Var(&cfg.Strategy.StopLossPercent, "stop-loss-pct", 2, "stop loss percent below entry")
	flag.Float64Var(&cfg.Strategy.TakeProfitPercent, "take-profit-pct", 4, "take profit percent above entry")
	flag.DurationVar(&cooldown, "cooldown", 2*time.Minute, "minimum time between trades")
	flag.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", 10*time.Second, "reconciliation interval")
	flag.BoolVar(&cfg.KillSwitch, "kill-switch", false, "if true, never place orders")
	flag.StringVar(&cfg.DecisionsPath, "decisions-path", "decisions.ndjson", "path to decisions log")
	flag.StringVar(&cfg.CheckpointPath, "checkpoint-path", "checkpoint.json", "path to checkpoint file")
	flag.StringVar(&cfg.PaperBaseURL, "paper-base-url", "https://paper-api.alpaca.markets", "paper trading base URL")
	flag.Parse()

	cfg.Mode = Mode(mode)
	cfg.Strategy.MinConfidence = minConfidence
	cfg.Strategy.MinTimeBetweenTrades = cooldown
	if maxTradeAmount > 0 {
		cfg.Strategy.MaxTradeAmount = decimal.NewFromFloat(maxTradeAmount)
	}
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Mode != ModeStream && cfg.Mode != ModePaper {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if cfg.Mode == ModePaper && (cfg.APIKey == "" || cfg.APISecret == "") {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in paper mode")
	}
	if cfg.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile-interval must be > 0")
	}
	return cfg.Strategy.Validate()
}
