// Command ingest loads bars from a CSV or parquet file into ClickHouse so
// backtests can run against the bar store instead of flat files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tradebot/internal/barstore"
	"tradebot/internal/md"
)

func main() {
	var (
		file       = flag.String("file", "", "bar file (.csv or .parquet)")
		symbol     = flag.String("symbol", "", "trading symbol to store the bars under")
		timeframe  = flag.String("timeframe", "1h", "bar timeframe")
		chAddr     = flag.String("ch-addr", "localhost:9000", "clickhouse address")
		chDatabase = flag.String("ch-database", "tradebot", "clickhouse database")
	)
	flag.Parse()

	if *file == "" || *symbol == "" {
		log.Fatal("-file and -symbol are required")
	}
	tf, err := md.ParseTimeframe(*timeframe)
	if err != nil {
		log.Fatalf("timeframe: %v", err)
	}

	var bars []md.Bar
	if strings.HasSuffix(*file, ".parquet") {
		bars, err = md.LoadParquet(*file)
	} else {
		bars, err = md.LoadCSV(*file)
	}
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars in %s", *file)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := barstore.Open(ctx, barstore.Options{
		Addr:     *chAddr,
		Database: *chDatabase,
		Username: os.Getenv("CH_USER"),
		Password: os.Getenv("CH_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer store.Close()

	if err := store.SaveBars(ctx, *symbol, tf, bars); err != nil {
		log.Fatalf("save bars: %v", err)
	}
	log.Printf("ingested %d %s bars for %s from %s", len(bars), tf, *symbol, *file)
}
