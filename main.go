package main

import (
	"context"
	"fmt"
	"io"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"sync"

	"binanceTracker/config"
	"binanceTracker/internal/adapters/console"
	"binanceTracker/internal/adapters/dashboard"
	"binanceTracker/internal/adapters/httpapi"
	"binanceTracker/internal/adapters/logger"
	"binanceTracker/internal/adapters/provider"
	"binanceTracker/internal/app"
	"binanceTracker/internal/depth"
	"binanceTracker/internal/ports"
	"binanceTracker/internal/series"
)

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

// run wires and runs the application; deferred cleanup completes before main exits.
func run() int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, closeLog, err := newAppLogger(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to open log file: %v", err)
	}
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("Error closing log file: %v", err)
		}
	}()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Market Data Client
	market, err := provider.New(cfg, appLogger.WithComponent(cfg.Provider))
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize market data client")
		log.Fatalf("FATAL: Failed to initialize market data client: %v", err)
	}
	appLogger.Info(context.Background(), "Market data client initialized", map[string]interface{}{"provider": market.Name()})

	// 4. Initialize Depth Bucketer and Series Normalizer
	bucketer, err := depth.NewBucketer(cfg.Buckets)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Invalid depth bucket table")
		log.Fatalf("FATAL: Invalid depth bucket table: %v", err)
	}
	normalizer := series.NewNormalizer(series.Config{Lookback: cfg.CandleLimit})
	maType, err := series.ParseMovingAverageType(cfg.MAType)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 5. Initialize Presenters
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var presenters []ports.SnapshotPresenter
	var dash *dashboard.Dashboard
	if cfg.DashboardEnabled {
		dash, err = dashboard.New(dashboard.Config{
			Symbol:   cfg.Symbol,
			Buckets:  cfg.Buckets,
			Colors:   cfg.BucketColors,
			MAPeriod: cfg.MAPeriod,
			MAType:   maType,
			Logger:   appLogger.WithComponent("dashboard"),
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize dashboard")
			log.Fatalf("FATAL: Failed to initialize dashboard: %v", err)
		}
		presenters = append(presenters, dash)
	} else {
		presenters = append(presenters, console.NewPresenter(os.Stdout))
	}

	var store *httpapi.SnapshotStore
	if cfg.HTTPAddr != "" {
		store = httpapi.NewSnapshotStore()
		presenters = append(presenters, store)
	}

	// 6. Initialize Application Service
	tracker, err := app.NewTrackerService(cfg, appLogger.WithComponent("tracker"), market, bucketer, normalizer, presenters...)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize tracker service")
		log.Fatalf("FATAL: Failed to initialize tracker service: %v", err)
	}
	appLogger.Info(ctx, "Tracker service initialized")
	if dash != nil {
		dash.SetRefresher(tracker) // The "Refresh now" button
	}

	// 7. Start the Service and its views
	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	start := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
			cancel() // Any component stopping stops the rest
		}()
	}

	start("tracker", func() error { return tracker.Start(ctx) })
	if store != nil {
		api := httpapi.NewAPIHandler(store, tracker, appLogger.WithComponent("api"))
		start("http api", func() error { return api.StartServer(ctx, cfg.HTTPAddr) })
	}
	if dash != nil {
		start("dashboard", func() error { return dashboard.Run(ctx, dash, cancel) })
	}

	wg.Wait()
	close(errCh)
	exitCode := 0
	for err := range errCh {
		appLogger.Error(context.Background(), err, "Component exited with error")
		exitCode = 1
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
	return exitCode
}

// newAppLogger builds the application logger. The returned func closes the
// log file, if one was opened.
func newAppLogger(cfg *config.Config) (*logger.StdLogger, func() error, error) {
	noop := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, err
		}
		return logger.NewStdLoggerTo(f, cfg.LogLevel), f.Close, nil
	}
	if cfg.DashboardEnabled {
		// The dashboard owns the terminal.
		log.Printf("Dashboard enabled without LOG_FILE; application logs are discarded")
		return logger.NewStdLoggerTo(io.Discard, cfg.LogLevel), noop, nil
	}
	return logger.NewStdLogger(cfg.LogLevel), noop, nil
}
