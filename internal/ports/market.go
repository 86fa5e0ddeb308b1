package ports

import (
	"context"

	"binanceTracker/internal/domain"
)

// MarketDataClient defines the interface for polling public market data from an exchange.
// Each provider gets its own implementation; all of them hand back the same
// provider-neutral records so nothing downstream sees field names or units
// specific to one exchange.
type MarketDataClient interface {
	// Name returns the provider name (e.g., "binance", "kraken").
	Name() string

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetTicker retrieves the last price and 24h quote volume for a symbol.
	GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error)

	// GetOrderBook retrieves up to limit levels per side of the order book.
	// Levels with non-positive or non-finite price/quantity are filtered out.
	GetOrderBook(ctx context.Context, symbol string, limit int) (*domain.OrderBook, error)

	// GetRecentCandles retrieves at most limit of the most recent candles for the interval.
	GetRecentCandles(ctx context.Context, symbol string, interval string, limit int) ([]domain.RawCandle, error)
}
