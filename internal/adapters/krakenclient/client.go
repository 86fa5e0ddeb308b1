package krakenclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	baseURLProduction = "https://api.kraken.com"

	// MaxDepthCount is the largest order book depth Kraken serves per side.
	MaxDepthCount = 500
	maxOHLCCount  = 720 // Kraken returns at most 720 candles per request
	maxBodyBytes  = 8 << 20
)

// intervalMinutes maps exchange-neutral interval names to Kraken's OHLC minutes.
var intervalMinutes = map[string]int{
	"1m": 1, "5m": 5, "15m": 15, "30m": 30,
	"1h": 60, "4h": 240, "1d": 1440, "1w": 10080, "2w": 21600,
}

// Client implements the ports.MarketDataClient interface against Kraken's public REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Kraken client adapter.
type Config struct {
	BaseURL string        // Defaults to the production API
	Timeout time.Duration // HTTP timeout per request
	Logger  ports.Logger
}

// New creates a new Kraken client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Kraken client")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = baseURLProduction
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid Kraken base URL %q: %v", ports.ErrConfigurationError, cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cfg.Logger.Info(context.Background(), "Kraken client configured", map[string]interface{}{"baseURL": baseURL})
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "kraken"
}

// envelope is the common wrapper of every Kraken public response.
type envelope struct {
	Error  []string               `json:"error"`
	Result map[string]interface{} `json:"result"`
}

type tickerInfo struct {
	Close  []string `json:"c"` // [price, lot volume]
	Volume []string `json:"v"` // [today, last 24 hours], base asset
	VWAP   []string `json:"p"` // [today, last 24 hours]
}

type tickerEnvelope struct {
	Error  []string              `json:"error"`
	Result map[string]tickerInfo `json:"result"`
}

// handleError translates transport and Kraken API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var netErr net.Error
	var finalErr error
	switch {
	case errors.Is(err, ports.ErrSymbolNotFound), errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrMalformedPayload), errors.Is(err, ports.ErrExchangeUnavailable),
		errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrUnknown):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.As(err, &netErr):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// apiError maps the "error" array of a Kraken response to a ports error.
func apiError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	joined := strings.Join(messages, "; ")
	switch {
	case strings.Contains(joined, "Unknown asset pair"):
		return fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, joined)
	case strings.Contains(joined, "Rate limit"), strings.Contains(joined, "Too many requests"):
		return fmt.Errorf("%w: %s", ports.ErrRateLimited, joined)
	case strings.HasPrefix(joined, "EService:"):
		return fmt.Errorf("%w: %s", ports.ErrExchangeUnavailable, joined)
	case strings.HasPrefix(joined, "EGeneral:Invalid arguments"):
		return fmt.Errorf("%w: %s", ports.ErrInvalidRequest, joined)
	default:
		return fmt.Errorf("%w: %s", ports.ErrUnknown, joined)
	}
}

// get performs a GET against a public endpoint and returns the raw body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", ports.ErrRateLimited, res.StatusCode)
	case res.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: HTTP %d", ports.ErrExchangeUnavailable, res.StatusCode)
	case res.StatusCode >= http.StatusBadRequest:
		// Kraken reports most errors with 200 and an error array, but keep any body details.
		var env envelope
		if sonic.Unmarshal(body, &env) == nil && len(env.Error) > 0 {
			return nil, apiError(env.Error)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ports.ErrInvalidRequest, res.StatusCode)
	}
	return body, nil
}

// pairResult decodes a generic envelope and returns the result entry for the pair.
// Kraken keys results by its canonical pair name (e.g. XXBTZUSD for XBTUSD), so
// the first non-"last" key is used.
func (c *Client) pairResult(body []byte) (interface{}, error) {
	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ports.ErrMalformedPayload, err)
	}
	if err := apiError(env.Error); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(env.Result))
	for k := range env.Result {
		if k != "last" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: empty result", ports.ErrSymbolNotFound)
	}
	sort.Strings(keys)
	return env.Result[keys[0]], nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	body, err := c.get(ctx, "/0/public/SystemStatus", nil)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return c.handleError(ctx, fmt.Errorf("%w: %v", ports.ErrMalformedPayload, err), op)
	}
	if err := apiError(env.Error); err != nil {
		return c.handleError(ctx, err, op)
	}
	if status, _ := env.Result["status"].(string); status != "" && status != "online" {
		return c.handleError(ctx, fmt.Errorf("%w: system status %q", ports.ErrExchangeUnavailable, status), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetTicker retrieves the last price and 24h quote volume for a pair.
// Kraken only reports base volume, so quote volume is base volume × 24h VWAP.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	op := "GetTicker"
	body, err := c.get(ctx, "/0/public/Ticker", url.Values{"pair": {symbol}})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	var env tickerEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("%w: decoding ticker: %v", ports.ErrMalformedPayload, err), op)
	}
	if err := apiError(env.Error); err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(env.Result) == 0 {
		return nil, c.handleError(ctx, fmt.Errorf("%w: no ticker for %s", ports.ErrSymbolNotFound, symbol), op)
	}

	keys := make([]string, 0, len(env.Result))
	for k := range env.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	info := env.Result[keys[0]]

	ticker, err := translateTicker(info)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return ticker, nil
}

// GetOrderBook retrieves up to limit levels per side of the order book.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) (*domain.OrderBook, error) {
	op := "GetOrderBook"
	if limit <= 0 || limit > MaxDepthCount {
		return nil, fmt.Errorf("%s failed: %w: limit %d out of range (1-%d)", op, ports.ErrInvalidRequest, limit, MaxDepthCount)
	}

	body, err := c.get(ctx, "/0/public/Depth", url.Values{"pair": {symbol}, "count": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	result, err := c.pairResult(body)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	book, ok := result.(map[string]interface{})
	if !ok {
		return nil, c.handleError(ctx, fmt.Errorf("%w: depth result is %T", ports.ErrMalformedPayload, result), op)
	}

	bids, droppedBids, err := translateLevels(book["bids"])
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("failed to translate bids: %w", err), op)
	}
	asks, droppedAsks, err := translateLevels(book["asks"])
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("failed to translate asks: %w", err), op)
	}
	if droppedBids+droppedAsks > 0 {
		c.logger.Debug(ctx, op+": filtered invalid levels", map[string]interface{}{"symbol": symbol, "bids": droppedBids, "asks": droppedAsks})
	}
	return &domain.OrderBook{Bids: bids, Asks: asks}, nil
}

// GetRecentCandles retrieves the most recent OHLC candles. Kraken volumes are
// in the base asset, so candles carry base units.
func (c *Client) GetRecentCandles(ctx context.Context, symbol string, interval string, limit int) ([]domain.RawCandle, error) {
	op := "GetRecentCandles"
	minutes, ok := intervalMinutes[interval]
	if !ok {
		return nil, fmt.Errorf("%s failed: %w: unsupported interval %q", op, ports.ErrInvalidRequest, interval)
	}
	if limit <= 0 || limit > maxOHLCCount {
		return nil, fmt.Errorf("%s failed: %w: limit %d out of range (1-%d)", op, ports.ErrInvalidRequest, limit, maxOHLCCount)
	}

	body, err := c.get(ctx, "/0/public/OHLC", url.Values{"pair": {symbol}, "interval": {strconv.Itoa(minutes)}})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	result, err := c.pairResult(body)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	rows, ok := result.([]interface{})
	if !ok {
		return nil, c.handleError(ctx, fmt.Errorf("%w: OHLC result is %T", ports.ErrMalformedPayload, result), op)
	}

	candles := make([]domain.RawCandle, 0, len(rows))
	for i, row := range rows {
		candle, err := translateOHLC(row)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate candle %d: %w", i, err), op)
		}
		candles = append(candles, candle)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(candles)})
	return candles, nil
}

// --- Translation Helpers ---

// parseDecimal parses a Kraken numeric field, which arrives as a string or a JSON number.
func parseDecimal(field string, v interface{}) (float64, error) {
	var d decimal.Decimal
	var err error
	switch x := v.(type) {
	case string:
		d, err = decimal.NewFromString(x)
	case float64:
		d = decimal.NewFromFloat(x)
	default:
		return 0, fmt.Errorf("%w: %s has unexpected type %T", ports.ErrMalformedPayload, field, v)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: parsing %s %v: %v", ports.ErrMalformedPayload, field, v, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func translateTicker(info tickerInfo) (*domain.Ticker, error) {
	if len(info.Close) < 1 || len(info.Volume) < 2 || len(info.VWAP) < 2 {
		return nil, fmt.Errorf("%w: ticker is missing price or volume fields", ports.ErrMalformedPayload)
	}
	last, err := parseDecimal("last price", info.Close[0])
	if err != nil {
		return nil, err
	}
	volume, err := decimal.NewFromString(info.Volume[1])
	if err != nil {
		return nil, fmt.Errorf("%w: parsing 24h volume %q: %v", ports.ErrMalformedPayload, info.Volume[1], err)
	}
	vwap, err := decimal.NewFromString(info.VWAP[1])
	if err != nil {
		return nil, fmt.Errorf("%w: parsing 24h vwap %q: %v", ports.ErrMalformedPayload, info.VWAP[1], err)
	}
	quoteVolume, _ := volume.Mul(vwap).Float64()
	if !finite(last) || !finite(quoteVolume) {
		return nil, fmt.Errorf("%w: non-finite ticker value", ports.ErrMalformedPayload)
	}
	return &domain.Ticker{LastPrice: last, QuoteVolume24h: quoteVolume}, nil
}

// translateLevels converts Kraken [price, volume, timestamp] entries, dropping
// (and counting) levels that are not strictly positive and finite.
func translateLevels(v interface{}) ([]domain.OrderBookLevel, int, error) {
	if v == nil {
		return []domain.OrderBookLevel{}, 0, nil
	}
	entries, ok := v.([]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("%w: levels are %T", ports.ErrMalformedPayload, v)
	}

	out := make([]domain.OrderBookLevel, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		fields, ok := e.([]interface{})
		if !ok || len(fields) < 2 {
			return nil, 0, fmt.Errorf("%w: malformed level %v", ports.ErrMalformedPayload, e)
		}
		price, err := parseDecimal("price", fields[0])
		if err != nil {
			return nil, 0, err
		}
		qty, err := parseDecimal("volume", fields[1])
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

// translateOHLC converts a [time, open, high, low, close, vwap, volume, count] row.
func translateOHLC(row interface{}) (domain.RawCandle, error) {
	fields, ok := row.([]interface{})
	if !ok || len(fields) < 7 {
		return domain.RawCandle{}, fmt.Errorf("%w: malformed OHLC row %v", ports.ErrMalformedPayload, row)
	}
	ts, ok := fields[0].(float64)
	if !ok {
		return domain.RawCandle{}, fmt.Errorf("%w: OHLC time is %T", ports.ErrMalformedPayload, fields[0])
	}
	cls, err := parseDecimal("close price", fields[4])
	if err != nil {
		return domain.RawCandle{}, err
	}
	vol, err := parseDecimal("volume", fields[6])
	if err != nil {
		return domain.RawCandle{}, err
	}
	return domain.RawCandle{
		OpenTime: time.Unix(int64(ts), 0).UTC(),
		Close:    cls,
		Volume:   vol,
		Unit:     domain.VolumeBase,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
