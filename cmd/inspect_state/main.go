package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"btcTrendAnalyzer/config"
	"btcTrendAnalyzer/internal/adapters/logger"
	"btcTrendAnalyzer/internal/adapters/redisstore"
	"btcTrendAnalyzer/internal/adapters/sqlite"
	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
	"btcTrendAnalyzer/internal/publisher"
)

// inspect_state reads the records the analyzer published and prints them the
// way a downstream consumer would see them.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.New(cfg.LogFormat, logger.LevelWarn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store ports.StateStore
	switch cfg.StoreBackend {
	case config.BackendRedis:
		store, err = redisstore.NewStore(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   appLogger,
		})
	case config.BackendSQLite:
		store, err = sqlite.NewStore(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	default:
		log.Fatalf("Store backend %q cannot be inspected from another process", cfg.StoreBackend)
	}
	if err != nil {
		log.Fatalf("Error opening state store: %v", err)
	}
	defer store.Close()

	codec, err := publisher.CodecFor(cfg.StateEncoding)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	r := reader{ctx: ctx, store: store, codec: codec, keys: publisher.Keys{Prefix: cfg.KeyPrefix}}

	var status domain.StatusRecord
	if !r.load(publisher.StatusKey, &status) {
		log.Println("No analyzer_status record found. Is the analyzer running?")
		return
	}
	fmt.Println("## Analyzer Status")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	fmt.Fprintf(w, "Producer\t%s\t\n", status.ProducerID)
	fmt.Fprintf(w, "Updated\t%s (%s ago)\t\n", status.Timestamp.Format(time.RFC3339), time.Since(status.Timestamp).Round(time.Second))
	fmt.Fprintf(w, "Ticks\t%d\t\n", status.Ticks)
	fmt.Fprintf(w, "Observations\t%d (dropped out-of-order %d)\t\n", status.Observations, status.DroppedOutOfOrder)
	fmt.Fprintf(w, "Feed failures\t%d\t\n", status.FeedFailures)
	fmt.Fprintf(w, "Publish failures\t%d (degraded=%v)\t\n", status.ConsecutivePublishFailures, status.Degraded)
	fmt.Fprintf(w, "History size\t%d\t\n", status.HistorySize)
	w.Flush()

	var price domain.PriceRecord
	if r.load(publisher.CurrentPriceKey, &price) {
		fmt.Printf("\nPrice: %.2f (observed %s, stale=%v)\n", price.Price, price.ObservedAt.Format(time.RFC3339), price.Stale)
	}

	fmt.Println("\n## Trends")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Timeframe\tTrend\tChange%\tCandles\tLastClose\t")
	for _, tf := range cfg.Timeframes {
		var trend domain.TrendRecord
		if !r.load(publisher.TrendKey(tf), &trend) {
			continue
		}
		var candles domain.CandlesRecord
		count, lastClose := 0, 0.0
		if r.load(publisher.CandlesKey(tf), &candles) && len(candles.Candles) > 0 {
			count = len(candles.Candles)
			lastClose = candles.Candles[count-1].Close
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%.2f\t\n", tf, trend.Label, trend.ChangePct, count, lastClose)
	}
	w.Flush()

	var fib domain.FibonacciRecord
	if r.load(publisher.FibonacciKey, &fib) {
		fmt.Printf("\n## Fibonacci Levels (high %.2f, low %.2f, bootstrapped=%v)\n", fib.High, fib.Low, fib.Bootstrapped)
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
		for _, ratio := range domain.FibonacciRatios {
			key := domain.RatioKey(ratio)
			marker := ""
			if key == status.NearestFibonacciRatio {
				marker = "<- nearest"
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", key, fib.Levels[key], marker)
		}
		w.Flush()
	}
}

type reader struct {
	ctx   context.Context
	store ports.StateStore
	codec publisher.Codec
	keys  publisher.Keys
}

// load decodes the record under key into v. Missing keys are skipped quietly.
func (r reader) load(key string, v interface{}) bool {
	raw, err := r.store.Get(r.ctx, r.keys.Format(key))
	if errors.Is(err, ports.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Printf("Error reading %s: %v", key, err)
		return false
	}
	if err := r.codec.Unmarshal(raw, v); err != nil {
		log.Printf("Error decoding %s: %v", key, err)
		return false
	}
	return true
}
