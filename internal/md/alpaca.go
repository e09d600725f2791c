package md

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// AlpacaProvider serves historical bars from the alpaca data API.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

func NewAlpacaProvider(apiKey, apiSecret, feed string) *AlpacaProvider {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return &AlpacaProvider{client: client, feed: parseFeed(feed)}
}

func (p *AlpacaProvider) GetBars(ctx context.Context, symbol string, tf Timeframe, start, end time.Time) ([]Bar, error) {
	raw, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: alpacaTimeFrame(tf),
		Start:     start,
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca bars %s: %v", ErrDataUnavailable, symbol, err)
	}
	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, Bar{
			Symbol: symbol,
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func alpacaTimeFrame(tf Timeframe) marketdata.TimeFrame {
	switch tf {
	case TF1m:
		return marketdata.OneMin
	case TF5m:
		return marketdata.NewTimeFrame(5, marketdata.Min)
	case TF15m:
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case TF1h:
		return marketdata.OneHour
	case TF4h:
		return marketdata.NewTimeFrame(4, marketdata.Hour)
	case TF1d:
		return marketdata.OneDay
	default:
		return marketdata.OneMin
	}
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
