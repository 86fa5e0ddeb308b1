package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"binanceTracker/config"
	"binanceTracker/internal/adapters/logger"
	"binanceTracker/internal/adapters/provider"
	"binanceTracker/internal/series"
	"binanceTracker/internal/utils"
)

func main() {
	out := flag.String("out", "", "output CSV file (default stdout)")
	symbol := flag.String("symbol", "", "override SYMBOL")
	interval := flag.String("interval", "", "override CANDLE_INTERVAL")
	limit := flag.Int("limit", 0, "override CANDLE_LIMIT")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *symbol != "" {
		cfg.Symbol = *symbol
	}
	if *interval != "" {
		cfg.CandleInterval = *interval
	}
	if *limit > 0 {
		cfg.CandleLimit = *limit
	}

	// 2. Initialize Logger (stderr, so CSV on stdout stays clean)
	appLogger := logger.NewStdLogger(cfg.LogLevel).WithComponent("export")

	// 3. Initialize Market Data Client
	market, err := provider.New(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize market data client")
		log.Fatalf("FATAL: Failed to initialize market data client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appLogger.Info(ctx, "Fetching candles", map[string]interface{}{
		"provider": market.Name(),
		"symbol":   cfg.Symbol,
		"interval": cfg.CandleInterval,
		"limit":    cfg.CandleLimit,
	})
	raw, err := market.GetRecentCandles(ctx, cfg.Symbol, cfg.CandleInterval, cfg.CandleLimit)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}

	samples := series.NewNormalizer(series.Config{Lookback: cfg.CandleLimit}).Normalize(raw)
	appLogger.Info(ctx, "Normalized candles", map[string]interface{}{"fetched": len(raw), "kept": len(samples)})

	if *out == "" {
		err = utils.WriteSeriesCSV(os.Stdout, samples)
	} else {
		err = utils.WriteSeriesCSVFile(*out, samples)
	}
	if err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	if *out != "" {
		appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": *out})
	}
}
