package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"btcTrendAnalyzer/config"
	"btcTrendAnalyzer/internal/adapters/logger"
	"btcTrendAnalyzer/internal/adapters/memstore"
	"btcTrendAnalyzer/internal/adapters/sqlite"
	"btcTrendAnalyzer/internal/app"
	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
	"btcTrendAnalyzer/internal/publisher"
	"btcTrendAnalyzer/internal/utils"
)

var (
	input     = flag.String("in", "", "replay CSV (timestamp,price,volume); defaults to REPLAY_FILE")
	tickEvery = flag.Duration("tick", time.Minute, "simulated time between analysis ticks")
	dbPath    = flag.String("db", "", "also persist the final state into this SQLite file")
)

// replayClock reports the timestamp of the observation being replayed.
type replayClock struct {
	now time.Time
}

func (c *replayClock) Now() time.Time { return c.now }

func main() {
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)

	filename := *input
	if filename == "" {
		filename = cfg.ReplayFile
	}
	if filename == "" {
		log.Fatalf("FATAL: no replay file given (-in or REPLAY_FILE)")
	}

	// 2. Load observations
	observations, err := utils.ReadObservationsFromCSV(filename)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error loading observations", map[string]interface{}{"file": filename})
		log.Fatalf("Error loading observations: %v", err)
	}
	appLogger.Info(context.Background(), "Loaded observations", map[string]interface{}{"file": filename, "count": len(observations)})
	if len(observations) == 0 {
		log.Println("Replay file is empty, nothing to analyze.")
		return
	}

	// 3. Wire the analyzer against a simulated clock
	var store ports.StateStore = memstore.New()
	if *dbPath != "" {
		sqliteStore, err := sqlite.NewStore(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open SQLite store: %v", err)
		}
		store = sqliteStore
	}
	defer store.Close()

	codec, err := publisher.CodecFor(cfg.StateEncoding)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	pub, err := publisher.New(publisher.Config{
		Store:       store,
		Logger:      appLogger,
		Codec:       codec,
		KeyPrefix:   cfg.KeyPrefix,
		MaxFailures: cfg.MaxPublisherFailures,
		BackoffMin:  cfg.PublishBackoffMin,
		BackoffMax:  cfg.PublishBackoffMax,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize publisher: %v", err)
	}

	clock := &replayClock{now: observations[0].Timestamp}
	analyzer, err := app.NewAnalyzerService(cfg, appLogger, nil, pub, clock)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analyzer service: %v", err)
	}

	// 4. Replay
	ctx := context.Background()
	started := time.Now()
	nextTick := observations[0].Timestamp
	for _, obs := range observations {
		_ = analyzer.Ingest(obs) // Rejections are counted and logged by the service
		if obs.Timestamp.Before(nextTick) {
			continue
		}
		clock.now = obs.Timestamp
		if err := analyzer.Tick(ctx); err != nil {
			log.Fatalf("Replay stopped: %v", err)
		}
		nextTick = obs.Timestamp.Add(*tickEvery)
	}
	if err := pub.Flush(ctx, analyzer.Snapshot()); err != nil && !errors.Is(err, ports.ErrPublishDeferred) {
		appLogger.Error(ctx, err, "Final flush failed")
	}

	appLogger.Info(ctx, "Replay finished", map[string]interface{}{
		"observations": len(observations),
		"elapsed":      time.Since(started).String(),
	})
	printSnapshot(analyzer.Snapshot())
}

func printSnapshot(snap domain.Snapshot) {
	fmt.Printf("\n## State at %s\n", snap.Timestamp.Format(time.RFC3339))
	if snap.HasPrice {
		fmt.Printf("Price: %.2f (observed %s, stale=%v)\n", snap.Price, snap.ObservedAt.Format(time.RFC3339), snap.Stale)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Timeframe\tTrend\tChange%\tCandles\tLastClose\t")
	for _, tr := range snap.Trends {
		series := snap.Candles[tr.Timeframe]
		lastClose := 0.0
		if len(series) > 0 {
			lastClose = series[len(series)-1].Close
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%.2f\t\n", tr.Timeframe, tr.Label, tr.ChangePct, len(series), lastClose)
	}
	w.Flush()

	fmt.Println("\n## Fibonacci Levels")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintf(w, "High\t%.2f\t\nLow\t%.2f\t\nBootstrapped\t%v\t\n", snap.Fibonacci.High, snap.Fibonacci.Low, snap.Fibonacci.Bootstrapped)
	for _, level := range snap.Fibonacci.Levels {
		marker := ""
		if domain.RatioKey(level.Ratio) == snap.NearestRatio {
			marker = "<- nearest"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\n", domain.RatioKey(level.Ratio), level.Price, marker)
	}
	w.Flush()
}
