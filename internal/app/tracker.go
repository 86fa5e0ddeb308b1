package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binanceTracker/config"
	"binanceTracker/internal/depth"
	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
	"binanceTracker/internal/series"
)

const (
	// maxCycleTimeout bounds one fetch cycle regardless of the refresh interval.
	maxCycleTimeout = 30 * time.Second
)

// TrackerService polls market data on a fixed interval (or on demand), turns
// it into a MarketSnapshot and hands the result to every presenter.
type TrackerService struct {
	cfg        *config.Config
	logger     ports.Logger
	market     ports.MarketDataClient
	bucketer   *depth.Bucketer
	normalizer *series.Normalizer
	presenters []ports.SnapshotPresenter
	refreshCh  chan struct{}
	now        func() time.Time
}

// NewTrackerService creates a new application service instance.
func NewTrackerService(
	cfg *config.Config,
	logger ports.Logger,
	market ports.MarketDataClient,
	bucketer *depth.Bucketer,
	normalizer *series.Normalizer,
	presenters ...ports.SnapshotPresenter,
) (*TrackerService, error) {
	// Validate dependencies
	if cfg == nil || logger == nil || market == nil || bucketer == nil || normalizer == nil {
		return nil, fmt.Errorf("missing required dependencies for TrackerService")
	}

	// Validate config values needed by service
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("configuration Symbol must be set")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("configuration RefreshInterval must be positive")
	}
	if cfg.OrderBookLimit <= 0 || cfg.CandleLimit <= 0 {
		return nil, fmt.Errorf("configuration OrderBookLimit and CandleLimit must be positive")
	}

	return &TrackerService{
		cfg:        cfg,
		logger:     logger,
		market:     market,
		bucketer:   bucketer,
		normalizer: normalizer,
		presenters: presenters,
		refreshCh:  make(chan struct{}, 1),
		now:        time.Now,
	}, nil
}

// RequestRefresh asks for an immediate poll cycle. Requests made while one is
// already pending are coalesced; it never blocks.
func (s *TrackerService) RequestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// BuildSnapshot runs one fetch cycle: ticker, order book and candle history,
// then depth bucketing and series normalization.
//
// An empty order book or empty history is not an error; the snapshot is
// marked with HasDepth/HasHistory false instead. Any fetch failure fails the
// whole cycle with the adapter's typed error.
func (s *TrackerService) BuildSnapshot(ctx context.Context) (*domain.MarketSnapshot, error) {
	symbol := s.cfg.Symbol
	fields := map[string]interface{}{"provider": s.market.Name(), "symbol": symbol}

	ticker, err := s.market.GetTicker(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker: %w", err)
	}
	if ticker == nil {
		return nil, fmt.Errorf("fetching ticker: %w: empty response", ports.ErrMalformedPayload)
	}

	book, err := s.market.GetOrderBook(ctx, symbol, s.cfg.OrderBookLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching order book: %w", err)
	}
	if book == nil {
		book = &domain.OrderBook{}
	}

	raw, err := s.market.GetRecentCandles(ctx, symbol, s.cfg.CandleInterval, s.cfg.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching candles: %w", err)
	}

	candles := s.normalizer.Normalize(raw)
	snapshot := &domain.MarketSnapshot{
		Provider:   s.market.Name(),
		Symbol:     symbol,
		FetchedAt:  s.now().UTC(),
		Ticker:     *ticker,
		Depth:      s.bucketer.Profile(book),
		Candles:    candles,
		HasDepth:   !book.IsEmpty(),
		HasHistory: len(candles) > 0,
	}

	if !snapshot.HasDepth {
		s.logger.Warn(ctx, "Order book is empty", fields)
	}
	if !snapshot.HasHistory {
		s.logger.Warn(ctx, "No price history available", fields)
	}
	if rejected := snapshot.Depth.Bids.Rejected + snapshot.Depth.Asks.Rejected; rejected > 0 {
		s.logger.Warn(ctx, "Rejected malformed order book levels", map[string]interface{}{"symbol": symbol, "rejected": rejected})
	}

	s.logger.Debug(ctx, "Snapshot built", map[string]interface{}{
		"symbol":       symbol,
		"lastPrice":    snapshot.Ticker.LastPrice,
		"bids":         len(book.Bids),
		"asks":         len(book.Asks),
		"candles":      len(snapshot.Candles),
		"bidsExcluded": snapshot.Depth.Bids.Excluded,
		"asksExcluded": snapshot.Depth.Asks.Excluded,
	})
	return snapshot, nil
}

// RunCycle builds one snapshot under a per-cycle timeout and delivers the
// result (or the failure) to every presenter.
func (s *TrackerService) RunCycle(ctx context.Context) error {
	timeout := s.cfg.RefreshInterval * 3
	if timeout > maxCycleTimeout {
		timeout = maxCycleTimeout
	}
	cycleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := s.BuildSnapshot(cycleCtx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; nothing to present.
			return ctx.Err()
		}
		s.logger.Error(ctx, err, "Poll cycle failed", map[string]interface{}{"symbol": s.cfg.Symbol, "reason": ports.Describe(err)})
		for _, p := range s.presenters {
			p.PresentFailure(ctx, err)
		}
		return err
	}

	for _, p := range s.presenters {
		p.Present(ctx, snapshot)
	}
	return nil
}

// Start runs the poll loop until ctx is canceled or a shutdown signal arrives.
// Cycles run one at a time on this goroutine, so they never overlap.
func (s *TrackerService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Tracker Service...", map[string]interface{}{
		"provider": s.market.Name(),
		"symbol":   s.cfg.Symbol,
		"interval": s.cfg.RefreshInterval.String(),
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel() // Cancel the main context
		case <-ctx.Done():
		}
	}()

	// Connectivity check; a failure is reported but polling still starts.
	if err := s.market.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "Initial connectivity check failed", map[string]interface{}{"reason": ports.Describe(err)})
	} else {
		s.logger.Info(ctx, "Exchange reachable", map[string]interface{}{"provider": s.market.Name()})
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Tracker Service stopped.")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.runAndLog(ctx)
		case <-s.refreshCh:
			s.logger.Debug(ctx, "Manual refresh requested")
			s.runAndLog(ctx)
			ticker.Reset(s.cfg.RefreshInterval)
		}
	}
}

func (s *TrackerService) runAndLog(ctx context.Context) {
	if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Debug(ctx, "Cycle finished with error", map[string]interface{}{"reason": ports.Describe(err)})
	}
}
