package md

import (
	"context"
	"time"
)

// Provider serves ordered historical bars for a symbol. Implementations wrap
// failures in ErrDataUnavailable; callers validate the range first with
// ValidateRange.
type Provider interface {
	GetBars(ctx context.Context, symbol string, tf Timeframe, start, end time.Time) ([]Bar, error)
}
