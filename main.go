package main

import (
	"context"
	"errors"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"btcTrendAnalyzer/config"
	"btcTrendAnalyzer/internal/adapters/binanceclient"
	"btcTrendAnalyzer/internal/adapters/csvfeed"
	"btcTrendAnalyzer/internal/adapters/logger"
	"btcTrendAnalyzer/internal/adapters/memstore"
	"btcTrendAnalyzer/internal/adapters/redisstore"
	"btcTrendAnalyzer/internal/adapters/sqlite"
	"btcTrendAnalyzer/internal/app"
	"btcTrendAnalyzer/internal/ports"
	"btcTrendAnalyzer/internal/publisher"
)

// Exit codes
const (
	exitOK           = 0
	exitInitFailure  = 1
	exitStoreFailure = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
		return exitInitFailure
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize State Store
	store, err := newStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize state store", map[string]interface{}{"backend": cfg.StoreBackend})
		return exitInitFailure
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing state store")
		}
	}()
	appLogger.Info(ctx, "State store initialized", map[string]interface{}{"backend": cfg.StoreBackend})

	// 4. Initialize Publisher
	codec, err := publisher.CodecFor(cfg.StateEncoding)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Unsupported state encoding")
		return exitInitFailure
	}
	pub, err := publisher.New(publisher.Config{
		Store:        store,
		Logger:       appLogger,
		Codec:        codec,
		KeyPrefix:    cfg.KeyPrefix,
		WriteTimeout: cfg.PublishTimeout,
		MaxFailures:  cfg.MaxPublisherFailures,
		BackoffMin:   cfg.PublishBackoffMin,
		BackoffMax:   cfg.PublishBackoffMax,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize publisher")
		return exitInitFailure
	}
	appLogger.Info(ctx, "Publisher initialized", map[string]interface{}{
		"producerId": pub.ProducerID(),
		"encoding":   codec.Name(),
		"keyPrefix":  cfg.KeyPrefix,
	})

	// 5. Initialize Observation Feed
	feed, err := newFeed(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize observation feed", map[string]interface{}{"source": cfg.FeedSource})
		return exitInitFailure
	}
	appLogger.Info(ctx, "Observation feed initialized", map[string]interface{}{"feed": feed.Name()})

	// 6. Initialize Application Service
	analyzer, err := app.NewAnalyzerService(cfg, appLogger, feed, pub, ports.SystemClock{})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize analyzer service")
		return exitInitFailure
	}

	// 7. Start the Service
	if err := analyzer.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Analyzer service exited with error")
		if errors.Is(err, ports.ErrStorePersistent) {
			return exitStoreFailure
		}
		return exitInitFailure
	}

	appLogger.Info(ctx, "Application finished gracefully.")
	return exitOK
}

func newStore(ctx context.Context, cfg *config.Config, appLogger ports.Logger) (ports.StateStore, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return redisstore.NewStore(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   appLogger,
		})
	case config.BackendSQLite:
		return sqlite.NewStore(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", cfg.StoreBackend, ports.ErrConfigInvalid)
	}
}

func newFeed(cfg *config.Config, appLogger ports.Logger) (ports.ObservationFeed, error) {
	switch cfg.FeedSource {
	case config.SourceBinance:
		return binanceclient.New(binanceclient.Config{
			Symbol:          cfg.Symbol,
			APIKey:          cfg.APIKey,
			SecretKey:       cfg.SecretKey,
			UseTestnet:      cfg.IsTestnet,
			BackfillMinutes: cfg.BackfillMinutes,
			Logger:          appLogger,
		})
	case config.SourceCSV:
		return csvfeed.Open(cfg.ReplayFile, cfg.ReplayPace)
	default:
		return nil, fmt.Errorf("unknown feed source %q: %w", cfg.FeedSource, ports.ErrConfigInvalid)
	}
}
