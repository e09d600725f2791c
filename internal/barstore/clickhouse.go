// Package barstore persists OHLCV history in ClickHouse and serves it back as
// an md.Provider. The engine only ever reads from it during a backtest.
package barstore

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"

	"tradebot/internal/md"
)

const ddl = `
CREATE TABLE IF NOT EXISTS %s (
    symbol    LowCardinality(String),
    timeframe LowCardinality(String),
    ts        DateTime64(3, 'UTC'),
    open      Float64,
    high      Float64,
    low       Float64,
    close     Float64,
    volume    Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, timeframe, ts)`

type Options struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

type Store struct {
	conn  clickhouse.Conn
	table string
}

// Open connects, pings and bootstraps the bar table.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Table == "" {
		opts.Table = "bars"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if err := conn.Exec(ctx, fmt.Sprintf(ddl, opts.Table)); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return &Store{conn: conn, table: opts.Table}, nil
}

// GetBars serves an ordered bar range, satisfying md.Provider.
func (s *Store) GetBars(ctx context.Context, symbol string, tf md.Timeframe, start, end time.Time) ([]md.Bar, error) {
	query := fmt.Sprintf(`
SELECT ts, open, high, low, close, volume FROM %s FINAL
WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts < ?
ORDER BY ts`, s.table)
	rows, err := s.conn.Query(ctx, query, symbol, string(tf), start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: clickhouse query %s: %v", md.ErrDataUnavailable, symbol, err)
	}
	defer rows.Close()

	var bars []md.Bar
	for rows.Next() {
		var b md.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("%w: clickhouse scan: %v", md.ErrDataUnavailable, err)
		}
		b.Symbol = symbol
		b.Time = b.Time.UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: clickhouse rows: %v", md.ErrDataUnavailable, err)
	}
	if err := md.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// SaveBars batch-inserts bars; the ReplacingMergeTree deduplicates reruns.
func (s *Store) SaveBars(ctx context.Context, symbol string, tf md.Timeframe, bars []md.Bar) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("clickhouse prepare batch: %w", err)
	}
	for _, b := range bars {
		if err := batch.Append(symbol, string(tf), b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("clickhouse batch append: %w", err)
		}
	}
	return batch.Send()
}

func (s *Store) Close() error { return s.conn.Close() }
