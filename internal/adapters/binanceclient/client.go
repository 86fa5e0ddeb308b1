package binanceclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	spotURLProduction    = "https://api.binance.com"
	spotURLTestnet       = "https://testnet.binance.vision"
	futuresURLProduction = "https://fapi.binance.com"
	futuresURLTestnet    = "https://testnet.binancefuture.com"

	// Request limits enforced by the exchange.
	maxSpotKlines    = 1000
	maxFuturesKlines = 1500
	MaxDepthLimit    = 5000 // Largest order book limit the exchange accepts
)

// Market selects which Binance API family the client polls.
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

// ParseMarket converts a config string to a Market.
func ParseMarket(s string) (Market, error) {
	switch Market(strings.ToLower(strings.TrimSpace(s))) {
	case MarketSpot, "":
		return MarketSpot, nil
	case MarketFutures, "usdm":
		return MarketFutures, nil
	default:
		return "", fmt.Errorf("unsupported binance market %q", s)
	}
}

// Client implements the ports.MarketDataClient interface using the go-binance library.
type Client struct {
	market        Market
	spotClient    *binance.Client
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string // Optional, public endpoints only
	SecretKey  string // Optional, public endpoints only
	Market     Market
	UseTestnet bool
	BaseURL    string        // Overrides the production/testnet URL when set
	Timeout    time.Duration // HTTP timeout per request
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.Market == "" {
		cfg.Market = MarketSpot
	}

	c := &Client{market: cfg.Market, logger: cfg.Logger}

	switch cfg.Market {
	case MarketSpot:
		client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
		client.BaseURL = pickURL(cfg, spotURLProduction, spotURLTestnet)
		client.HTTPClient = newHTTPClient(cfg.Timeout)
		c.spotClient = client
		cfg.Logger.Info(context.Background(), "Binance spot client configured", map[string]interface{}{"baseURL": client.BaseURL})
	case MarketFutures:
		client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
		client.BaseURL = pickURL(cfg, futuresURLProduction, futuresURLTestnet)
		client.HTTPClient = newHTTPClient(cfg.Timeout)
		c.futuresClient = client
		cfg.Logger.Info(context.Background(), "Binance futures client configured", map[string]interface{}{"baseURL": client.BaseURL})
	default:
		return nil, fmt.Errorf("%w: unsupported binance market %q", ports.ErrConfigurationError, cfg.Market)
	}

	return c, nil
}

// newHTTPClient avoids mutating http.DefaultClient, which go-binance uses by default.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func pickURL(cfg Config, production, testnet string) string {
	switch {
	case cfg.BaseURL != "":
		return strings.TrimRight(cfg.BaseURL, "/")
	case cfg.UseTestnet:
		return testnet
	default:
		return production
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	if c.market == MarketFutures {
		return "binance-futures"
	}
	return "binance"
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case 0: // Non-JSON error body, usually a gateway failure
			mappedErr = ports.ErrExchangeUnavailable
		case -1000, -1001, -1008: // Unknown / disconnected / server busy
			mappedErr = ports.ErrExchangeUnavailable
		case -1003, -1015: // Too many requests / too many orders
			mappedErr = ports.ErrRateLimited
		case -1007, -1021: // Backend timeout / timestamp outside recvWindow
			mappedErr = ports.ErrTimeout
		case -1121: // Invalid symbol
			mappedErr = ports.ErrSymbolNotFound
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, payload parsing)
	var (
		finalErr  error
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, ports.ErrMalformedPayload):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrMalformedPayload, err)
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.As(err, &netErr),
		strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "no such host"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	var err error
	if c.market == MarketFutures {
		err = c.futuresClient.NewPingService().Do(ctx)
	} else {
		err = c.spotClient.NewPingService().Do(ctx)
	}
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetTicker retrieves the last price and 24h quote volume for a given symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	op := "GetTicker"

	var lastPrice, quoteVolume string
	if c.market == MarketFutures {
		stats, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(stats) == 0 {
			return nil, c.handleError(ctx, fmt.Errorf("%w: no ticker data returned for symbol %s", ports.ErrMalformedPayload, symbol), op)
		}
		lastPrice, quoteVolume = stats[0].LastPrice, stats[0].QuoteVolume
	} else {
		stats, err := c.spotClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(stats) == 0 {
			return nil, c.handleError(ctx, fmt.Errorf("%w: no ticker data returned for symbol %s", ports.ErrMalformedPayload, symbol), op)
		}
		lastPrice, quoteVolume = stats[0].LastPrice, stats[0].QuoteVolume
	}

	ticker, err := translateTicker(lastPrice, quoteVolume)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return ticker, nil
}

// GetOrderBook retrieves up to limit levels per side of the order book.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) (*domain.OrderBook, error) {
	op := "GetOrderBook"
	if limit <= 0 || limit > MaxDepthLimit {
		return nil, fmt.Errorf("%s failed: %w: limit %d out of range (1-%d)", op, ports.ErrInvalidRequest, limit, MaxDepthLimit)
	}

	var bids, asks [][2]string
	if c.market == MarketFutures {
		res, err := c.futuresClient.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		bids = rawLevels(res.Bids, func(b futures.Bid) (string, string) { return b.Price, b.Quantity })
		asks = rawLevels(res.Asks, func(a futures.Ask) (string, string) { return a.Price, a.Quantity })
	} else {
		res, err := c.spotClient.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		bids = rawLevels(res.Bids, func(b binance.Bid) (string, string) { return b.Price, b.Quantity })
		asks = rawLevels(res.Asks, func(a binance.Ask) (string, string) { return a.Price, a.Quantity })
	}

	bidLevels, droppedBids, err := translateLevels(bids)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("failed to translate bids: %w", err), op)
	}
	askLevels, droppedAsks, err := translateLevels(asks)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("failed to translate asks: %w", err), op)
	}
	if droppedBids+droppedAsks > 0 {
		c.logger.Debug(ctx, op+": filtered invalid levels", map[string]interface{}{"symbol": symbol, "bids": droppedBids, "asks": droppedAsks})
	}
	return &domain.OrderBook{Bids: bidLevels, Asks: askLevels}, nil
}

// GetRecentCandles retrieves the most recent klines for the given symbol.
// Binance reports quote asset volume directly, so candles carry quote units.
func (c *Client) GetRecentCandles(ctx context.Context, symbol string, interval string, limit int) ([]domain.RawCandle, error) {
	op := "GetRecentCandles"
	maxLimit := maxSpotKlines
	if c.market == MarketFutures {
		maxLimit = maxFuturesKlines
	}
	if limit <= 0 || limit > maxLimit {
		return nil, fmt.Errorf("%s failed: %w: limit %d out of range (1-%d)", op, ports.ErrInvalidRequest, limit, maxLimit)
	}

	var raw []rawKline
	if c.market == MarketFutures {
		klines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		raw = make([]rawKline, 0, len(klines))
		for _, k := range klines {
			if k == nil {
				continue
			}
			raw = append(raw, rawKline{openTime: k.OpenTime, close: k.Close, quoteVolume: k.QuoteAssetVolume})
		}
	} else {
		klines, err := c.spotClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		raw = make([]rawKline, 0, len(klines))
		for _, k := range klines {
			if k == nil {
				continue
			}
			raw = append(raw, rawKline{openTime: k.OpenTime, close: k.Close, quoteVolume: k.QuoteAssetVolume})
		}
	}

	candles := make([]domain.RawCandle, 0, len(raw))
	for _, k := range raw {
		candle, err := translateKline(k)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		candles = append(candles, candle)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(candles)})
	return candles, nil
}

// --- Translation Helpers ---

// rawKline is the subset of a kline both API families share.
type rawKline struct {
	openTime    int64
	close       string
	quoteVolume string
}

func rawLevels[T any](levels []T, fields func(T) (string, string)) [][2]string {
	out := make([][2]string, len(levels))
	for i, l := range levels {
		out[i][0], out[i][1] = fields(l)
	}
	return out
}

func parseNumber(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing %s '%s': %v", ports.ErrMalformedPayload, field, s, err)
	}
	return v, nil
}

func translateTicker(lastPrice, quoteVolume string) (*domain.Ticker, error) {
	price, err := parseNumber("last price", lastPrice)
	if err != nil {
		return nil, err
	}
	volume, err := parseNumber("quote volume", quoteVolume)
	if err != nil {
		return nil, err
	}
	if !finite(price) || !finite(volume) {
		return nil, fmt.Errorf("%w: non-finite ticker value (price %s, quote volume %s)", ports.ErrMalformedPayload, lastPrice, quoteVolume)
	}
	return &domain.Ticker{LastPrice: price, QuoteVolume24h: volume}, nil
}

// translateLevels parses price levels, dropping (and counting) any level that
// is not strictly positive and finite. Unparseable numbers fail the whole payload.
func translateLevels(levels [][2]string) ([]domain.OrderBookLevel, int, error) {
	out := make([]domain.OrderBookLevel, 0, len(levels))
	dropped := 0
	for _, l := range levels {
		price, err := parseNumber("price", l[0])
		if err != nil {
			return nil, 0, err
		}
		qty, err := parseNumber("quantity", l[1])
		if err != nil {
			return nil, 0, err
		}
		if !positiveFinite(price) || !positiveFinite(qty) {
			dropped++
			continue
		}
		out = append(out, domain.OrderBookLevel{Price: price, Quantity: qty})
	}
	return out, dropped, nil
}

func translateKline(k rawKline) (domain.RawCandle, error) {
	cls, err := parseNumber("close price", k.close)
	if err != nil {
		return domain.RawCandle{}, err
	}
	vol, err := parseNumber("quote volume", k.quoteVolume)
	if err != nil {
		return domain.RawCandle{}, err
	}
	return domain.RawCandle{
		OpenTime: time.UnixMilli(k.openTime).UTC(),
		Close:    cls,
		Volume:   vol,
		Unit:     domain.VolumeQuote,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
