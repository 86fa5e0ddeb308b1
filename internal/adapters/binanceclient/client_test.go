package binanceclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const (
	tickerBody = `{"symbol":"BTCUSDT","priceChange":"100.00","priceChangePercent":"0.15","weightedAvgPrice":"65000.00",
"prevClosePrice":"64900.00","lastPrice":"65012.34","lastQty":"0.01","bidPrice":"65012.33","askPrice":"65012.34",
"openPrice":"64912.34","highPrice":"65500.00","lowPrice":"64000.00","volume":"20000.5","quoteVolume":"1300000000.25",
"openTime":1700000000000,"closeTime":1700086400000,"firstId":1,"lastId":2,"count":2}`

	depthBody = `{"lastUpdateId":42,
"bids":[["65000.00","0.5"],["64990.00","0.00000000"],["64980.00","2.0"]],
"asks":[["65010.00","1.5"],["65020.00","-1"]]}`

	klinesBody = `[
[1700000000000,"64000.0","65000.0","63000.0","64500.0","100.0",1700003599999,"6450000.0",1000,"50.0","3225000.0","0"],
[1700003600000,"64500.0","66000.0","64400.0","65500.0","200.0",1700007199999,"13100000.0",2000,"100.0","6550000.0","0"]
]`
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			w.Write([]byte(tickerBody))
		case "BADPRICE":
			w.Write([]byte(`{"symbol":"BADPRICE","lastPrice":"abc","quoteVolume":"1"}`))
		case "BUSY":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	})
	mux.HandleFunc("/api/v3/depth", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		w.Write([]byte(depthBody))
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Write([]byte(klinesBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{Market: MarketSpot, BaseURL: baseURL, Timeout: 2 * time.Second, Logger: &mockLogger{}})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "logger is required")

	_, err = New(Config{Logger: &mockLogger{}, Market: "options"})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, "binance", c.Name())
	assert.Equal(t, spotURLProduction, c.spotClient.BaseURL)

	c, err = New(Config{Logger: &mockLogger{}, Market: MarketFutures, UseTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, "binance-futures", c.Name())
	assert.Equal(t, futuresURLTestnet, c.futuresClient.BaseURL)
}

func TestParseMarket(t *testing.T) {
	m, err := ParseMarket("")
	require.NoError(t, err)
	assert.Equal(t, MarketSpot, m)

	m, err = ParseMarket("USDM")
	require.NoError(t, err)
	assert.Equal(t, MarketFutures, m)

	_, err = ParseMarket("margin")
	assert.Error(t, err)
}

func TestClient_Ping(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_GetTicker(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	ticker, err := c.GetTicker(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, &domain.Ticker{LastPrice: 65012.34, QuoteVolume24h: 1300000000.25}, ticker)

	tests := []struct {
		symbol  string
		wantErr error
	}{
		{symbol: "NOPE", wantErr: ports.ErrSymbolNotFound},
		{symbol: "BUSY", wantErr: ports.ErrRateLimited},
		{symbol: "BADPRICE", wantErr: ports.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			_, err := c.GetTicker(ctx, tt.symbol)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_GetOrderBook(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL)

	book, err := c.GetOrderBook(context.Background(), "BTCUSDT", 100)
	require.NoError(t, err)

	// Zero and negative quantities are filtered by the adapter.
	assert.Equal(t, []domain.OrderBookLevel{{Price: 65000, Quantity: 0.5}, {Price: 64980, Quantity: 2}}, book.Bids)
	assert.Equal(t, []domain.OrderBookLevel{{Price: 65010, Quantity: 1.5}}, book.Asks)

	_, err = c.GetOrderBook(context.Background(), "BTCUSDT", 0)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClient_GetRecentCandles(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL)

	candles, err := c.GetRecentCandles(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, domain.RawCandle{
		OpenTime: time.UnixMilli(1700000000000).UTC(),
		Close:    64500,
		Volume:   6450000,
		Unit:     domain.VolumeQuote,
	}, candles[0])
	assert.True(t, candles[0].OpenTime.Before(candles[1].OpenTime))

	_, err = c.GetRecentCandles(context.Background(), "BTCUSDT", "1h", maxSpotKlines+1)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClient_ConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // Nothing listens on url any more

	c := newTestClient(t, url)
	_, err := c.GetTicker(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
	assert.Equal(t, "network error", ports.Describe(err))
}

func TestTranslateLevels(t *testing.T) {
	levels, dropped, err := translateLevels([][2]string{{"10", "1"}, {"NaN", "1"}, {"0", "3"}, {"5", "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []domain.OrderBookLevel{{Price: 10, Quantity: 1}, {Price: 5, Quantity: 2}}, levels)

	_, _, err = translateLevels([][2]string{{"ten", "1"}})
	assert.ErrorIs(t, err, ports.ErrMalformedPayload)
}

func TestTranslateTicker(t *testing.T) {
	tests := []struct {
		name        string
		lastPrice   string
		quoteVolume string
		want        *domain.Ticker
		wantErr     bool
	}{
		{name: "valid", lastPrice: "42000.5", quoteVolume: "1500000000", want: &domain.Ticker{LastPrice: 42000.5, QuoteVolume24h: 1.5e9}},
		{name: "NaN price", lastPrice: "NaN", quoteVolume: "1", wantErr: true},
		{name: "infinite volume", lastPrice: "1", quoteVolume: "Inf", wantErr: true},
		{name: "overflowing volume", lastPrice: "1", quoteVolume: "1e400", wantErr: true},
		{name: "not a number", lastPrice: "abc", quoteVolume: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := translateTicker(tt.lastPrice, tt.quoteVolume)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrMalformedPayload)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
