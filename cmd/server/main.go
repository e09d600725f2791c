// Package main serves backtests over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebot/internal/backtest"
	"tradebot/internal/barstore"
	"tradebot/internal/config"
	"tradebot/internal/indicator"
	"tradebot/internal/md"
)

type backtestRequest struct {
	Symbol         string          `json:"symbol" binding:"required"`
	Timeframe      string          `json:"timeframe" binding:"required"`
	Start          time.Time       `json:"start" binding:"required"`
	End            time.Time       `json:"end" binding:"required"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Strategy       *strategyParams `json:"strategy"`
}

type strategyParams struct {
	EMAShortPeriod       *int     `json:"ema_short_period"`
	EMALongPeriod        *int     `json:"ema_long_period"`
	RSIPeriod            *int     `json:"rsi_period"`
	RSIOverbought        *float64 `json:"rsi_overbought"`
	RSIOversold          *float64 `json:"rsi_oversold"`
	MinConfidence        *float64 `json:"min_confidence"`
	TradeAmountPercent   *float64 `json:"trade_amount_percent"`
	MaxTradeAmount       *float64 `json:"max_trade_amount"`
	StopLossPercent      *float64 `json:"stop_loss_percent"`
	TakeProfitPercent    *float64 `json:"take_profit_percent"`
	MinTimeBetweenTrades *string  `json:"min_time_between_trades"`
}

type backtestResponse struct {
	JobID string `json:"job_id"`
	*backtest.Result
}

type server struct {
	provider md.Provider
	logger   *zap.Logger
}

func (s *server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tf, err := md.ParseTimeframe(req.Timeframe)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := config.DefaultStrategy()
	if req.Strategy != nil {
		if err := applyParams(&cfg, req.Strategy); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	balance := req.InitialBalance
	if balance.IsZero() {
		balance = decimal.NewFromInt(10000)
	}

	jobID := uuid.New().String()
	started := time.Now()
	s.logger.Info("backtest started",
		zap.String("job_id", jobID),
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", string(tf)),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
	)

	result, err := backtest.RunRange(c.Request.Context(), s.provider, req.Symbol, tf, req.Start, req.End, balance, cfg)
	if err != nil {
		s.logger.Error("backtest failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("backtest completed",
		zap.String("job_id", jobID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("trades", result.Stats.TotalTrades),
	)
	c.JSON(http.StatusOK, backtestResponse{JobID: jobID, Result: result})
}

// statusFor maps domain errors onto HTTP status codes. Bad inputs are
// the caller's fault, a thin bar series is unprocessable, and an
// unreachable data source is a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, md.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, indicator.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, md.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func applyParams(cfg *config.Strategy, p *strategyParams) error {
	if p.EMAShortPeriod != nil {
		cfg.EMAShortPeriod = *p.EMAShortPeriod
	}
	if p.EMALongPeriod != nil {
		cfg.EMALongPeriod = *p.EMALongPeriod
	}
	if p.RSIPeriod != nil {
		cfg.RSIPeriod = *p.RSIPeriod
	}
	if p.RSIOverbought != nil {
		cfg.RSIOverbought = *p.RSIOverbought
	}
	if p.RSIOversold != nil {
		cfg.RSIOversold = *p.RSIOversold
	}
	if p.MinConfidence != nil {
		cfg.MinConfidence = *p.MinConfidence
	}
	if p.TradeAmountPercent != nil {
		cfg.TradeAmountPercent = *p.TradeAmountPercent
	}
	if p.MaxTradeAmount != nil {
		cfg.MaxTradeAmount = decimal.NewFromFloat(*p.MaxTradeAmount)
	}
	if p.StopLossPercent != nil {
		cfg.StopLossPercent = *p.StopLossPercent
	}
	if p.TakeProfitPercent != nil {
		cfg.TakeProfitPercent = *p.TakeProfitPercent
	}
	if p.MinTimeBetweenTrades != nil {
		d, err := time.ParseDuration(*p.MinTimeBetweenTrades)
		if err != nil {
			return err
		}
		cfg.MinTimeBetweenTrades = d
	}
	return nil
}

func (s *server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().Unix()})
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		source     = flag.String("source", "alpaca", "bar source: alpaca or clickhouse")
		feed       = flag.String("feed", "iex", "alpaca data feed")
		chAddr     = flag.String("ch-addr", "localhost:9000", "clickhouse address")
		chDatabase = flag.String("ch-database", "tradebot", "clickhouse database")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var provider md.Provider
	switch *source {
	case "alpaca":
		provider = md.NewAlpacaProvider(os.Getenv("APCA_API_KEY_ID"), os.Getenv("APCA_API_SECRET_KEY"), *feed)
	case "clickhouse":
		store, err := barstore.Open(ctx, barstore.Options{
			Addr:     *chAddr,
			Database: *chDatabase,
			Username: os.Getenv("CH_USER"),
			Password: os.Getenv("CH_PASSWORD"),
		})
		if err != nil {
			logger.Fatal("clickhouse", zap.Error(err))
		}
		defer store.Close()
		provider = store
	default:
		logger.Fatal("unknown source", zap.String("source", *source))
	}

	srv := &server{provider: provider, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", srv.handleHealthz)
	api := router.Group("/api/v1")
	{
		api.POST("/backtests", srv.handleBacktest)
	}

	httpServer := &http.Server{Addr: *addr, Handler: router}
	go func() {
		logger.Info("http server listening", zap.String("addr", *addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
