package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"btcTrendAnalyzer/config"
	"btcTrendAnalyzer/internal/adapters/binanceclient"
	"btcTrendAnalyzer/internal/adapters/logger"
	"btcTrendAnalyzer/internal/utils"
)

var (
	days   = flag.Int("days", 7, "how many days of 1m closes to fetch")
	output = flag.String("out", "", "output CSV path (default data/<symbol>_<start>_to_<end>.csv)")
)

func main() {
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		Symbol:     cfg.Symbol,
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	fmt.Printf("Fetching 1m observations for %s from %s to %s...\n", cfg.Symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
	observations, err := binanceClient.FetchObservations(context.Background(), start, end)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching observations")
		log.Fatalf("Error fetching observations: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched observations", map[string]interface{}{"count": len(observations)})

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_to_%s.csv", cfg.Symbol, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteObservationsToCSV(observations, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
