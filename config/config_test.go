package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binanceTracker/internal/adapters/logger"
	"binanceTracker/internal/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderBinance, cfg.Provider)
	assert.Equal(t, "spot", cfg.BinanceMarket)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 100, cfg.OrderBookLimit)
	assert.Equal(t, "1w", cfg.CandleInterval)
	assert.Equal(t, 100, cfg.CandleLimit)
	assert.Equal(t, domain.DefaultBuckets(), cfg.Buckets)
	assert.Equal(t, domain.DefaultBucketColors(), cfg.BucketColors)
	assert.Equal(t, 20, cfg.MAPeriod)
	assert.Equal(t, "SMA", cfg.MAType)
	assert.True(t, cfg.DashboardEnabled)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
}

func TestLoadConfig_KrakenDefaultSymbol(t *testing.T) {
	t.Setenv("PROVIDER", "Kraken")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ProviderKraken, cfg.Provider)
	assert.Equal(t, "XBTUSD", cfg.Symbol)
}

func TestLoadConfig_CustomBuckets(t *testing.T) {
	t.Setenv("DEPTH_BUCKETS", "100:1000:A, 1000:10000:B")
	t.Setenv("DEPTH_COLORS", "#ff0000,#00ff00")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []domain.Bucket{{Low: 100, High: 1000, Label: "A"}, {Low: 1000, High: 10000, Label: "B"}}, cfg.Buckets)
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, cfg.BucketColors)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{name: "unknown provider", env: map[string]string{"PROVIDER": "ftx"}, wantMsg: "PROVIDER must be"},
		{name: "overlapping buckets", env: map[string]string{"DEPTH_BUCKETS": "100:2000:A,1000:10000:B", "DEPTH_COLORS": "#000000,#ffffff"}, wantMsg: "invalid depth bucket table"},
		{name: "unsorted buckets", env: map[string]string{"DEPTH_BUCKETS": "1000:10000:B,100:1000:A", "DEPTH_COLORS": "#000000,#ffffff"}, wantMsg: "invalid depth bucket table"},
		{name: "bad bucket syntax", env: map[string]string{"DEPTH_BUCKETS": "100-1000-A"}, wantMsg: "invalid DEPTH_BUCKETS"},
		{name: "too few colours", env: map[string]string{"DEPTH_COLORS": "#000000"}, wantMsg: "DEPTH_COLORS needs one colour per bucket"},
		{name: "bad colour", env: map[string]string{"DEPTH_COLORS": "red,#2ca02c,#d62728,#9467bd,#8c564b"}, wantMsg: "invalid colour"},
		{name: "zero refresh", env: map[string]string{"REFRESH_INTERVAL_SECONDS": "0"}, wantMsg: "REFRESH_INTERVAL_SECONDS must be positive"},
		{name: "non-numeric limit", env: map[string]string{"ORDER_BOOK_LIMIT": "lots"}, wantMsg: "invalid ORDER_BOOK_LIMIT"},
		{name: "binance depth too deep", env: map[string]string{"ORDER_BOOK_LIMIT": "5001"}, wantMsg: "ORDER_BOOK_LIMIT must be between 1 and 5000 for binance"},
		{name: "kraken depth too deep", env: map[string]string{"PROVIDER": "kraken", "ORDER_BOOK_LIMIT": "501"}, wantMsg: "ORDER_BOOK_LIMIT must be between 1 and 500 for kraken"},
		{name: "bad MA type", env: map[string]string{"MA_TYPE": "WMA"}, wantMsg: "MA_TYPE must be SMA or EMA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseBuckets(t *testing.T) {
	buckets, err := ParseBuckets("1:2:x,2:3:y")
	require.NoError(t, err)
	assert.Len(t, buckets, 2)

	_, err = ParseBuckets(" , ")
	assert.Error(t, err)

	_, err = ParseBuckets("a:2:x")
	assert.Error(t, err)
}

func TestLoadConfig_OrderBookLimitPerProvider(t *testing.T) {
	t.Setenv("PROVIDER", "kraken")
	t.Setenv("ORDER_BOOK_LIMIT", "500")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.OrderBookLimit)

	t.Setenv("PROVIDER", "binance")
	t.Setenv("ORDER_BOOK_LIMIT", "5000")

	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.OrderBookLimit)
}
