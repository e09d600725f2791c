package md

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads bars from a timestamp,open,high,low,close,volume file.
// Timestamps are Unix milliseconds; a header row is tolerated.
func LoadCSV(path string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDataUnavailable, path, err)
	}
	defer file.Close()

	r := csv.NewReader(bufio.NewReader(file))
	r.FieldsPerRecord = -1

	var bars []Bar
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s line %d: %v", ErrDataUnavailable, path, line+1, err)
		}
		line++
		if len(rec) < 6 {
			return nil, fmt.Errorf("%w: parse %s line %d: expected 6 fields, got %d", ErrDataUnavailable, path, line, len(rec))
		}
		tsField := strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff")
		if line == 1 && strings.EqualFold(tsField, "timestamp") {
			continue
		}
		ts, err := strconv.ParseInt(tsField, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s line %d: timestamp: %v", ErrDataUnavailable, path, line, err)
		}
		var vals [5]float64
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: parse %s line %d field %d: %v", ErrDataUnavailable, path, line, i+1, err)
			}
			vals[i] = v
		}
		bars = append(bars, Bar{
			Time:   time.UnixMilli(ts).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// WriteCSV writes bars in the format LoadCSV reads.
func WriteCSV(path string, bars []Bar) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			strconv.FormatInt(b.Time.UnixMilli(), 10),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// FileProvider serves bars from a local CSV or parquet file, filtered to the
// requested range. The symbol argument is ignored; the file is the symbol.
type FileProvider struct {
	Path string
}

func (p FileProvider) GetBars(ctx context.Context, symbol string, tf Timeframe, start, end time.Time) ([]Bar, error) {
	var bars []Bar
	var err error
	if strings.HasSuffix(p.Path, ".parquet") {
		bars, err = LoadParquet(p.Path)
	} else {
		bars, err = LoadCSV(p.Path)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Time.Before(start) || !b.Time.Before(end) {
			continue
		}
		b.Symbol = symbol
		out = append(out, b)
	}
	return out, nil
}
