package md

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

type BarHandler func(Bar)

// StartStream subscribes to live bars for one symbol and invokes handler for
// each bar until ctx is cancelled. Bars arrive in timestamp order; the caller
// owns all per-bar state.
func StartStream(ctx context.Context, apiKey, apiSecret, feed, symbol string, handler BarHandler) error {
	client := stream.NewStocksClient(
		parseFeed(feed),
		stream.WithCredentials(apiKey, apiSecret),
	)

	// Connect must be called before subscribing in this SDK version.
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}

	if err := client.SubscribeToBars(func(bar stream.Bar) {
		handler(Bar{
			Symbol: bar.Symbol,
			Time:   bar.Timestamp.UTC(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: float64(bar.Volume),
		})
	}, symbol); err != nil {
		return fmt.Errorf("subscribe to bars: %w", err)
	}

	slog.Info("subscribed to bar stream", "symbol", symbol, "feed", feed)

	<-ctx.Done()
	return ctx.Err()
}
