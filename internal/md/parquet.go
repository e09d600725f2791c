package md

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// parquetBar is the flat row schema used for cached bar files.
type parquetBar struct {
	Timestamp int64   `parquet:"t"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    float64 `parquet:"v"`
}

// WriteParquet caches bars to a parquet file.
func WriteParquet(path string, bars []Bar) error {
	rows := make([]parquetBar, len(bars))
	for i, b := range bars {
		rows[i] = parquetBar{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return parquet.WriteFile(path, rows)
}

// LoadParquet reads bars cached by WriteParquet.
func LoadParquet(path string) ([]Bar, error) {
	rows, err := parquet.ReadFile[parquetBar](path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, path, err)
	}
	bars := make([]Bar, len(rows))
	for i, r := range rows {
		bars[i] = Bar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}
