package provider

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binanceTracker/config"
	"binanceTracker/internal/adapters/logger"
	"binanceTracker/internal/ports"
)

func TestNew(t *testing.T) {
	log := logger.NewStdLoggerTo(io.Discard, logger.LevelError)

	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  error
	}{
		{name: "binance spot", cfg: config.Config{Provider: config.ProviderBinance, BinanceMarket: "spot"}, wantName: "binance"},
		{name: "binance futures", cfg: config.Config{Provider: config.ProviderBinance, BinanceMarket: "futures"}, wantName: "binance-futures"},
		{name: "kraken", cfg: config.Config{Provider: config.ProviderKraken, KrakenBaseURL: "https://api.kraken.com"}, wantName: "kraken"},
		{name: "bad market", cfg: config.Config{Provider: config.ProviderBinance, BinanceMarket: "options"}, wantErr: ports.ErrConfigurationError},
		{name: "unknown provider", cfg: config.Config{Provider: "coinbase"}, wantErr: ports.ErrConfigurationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.HTTPTimeout = time.Second
			client, err := New(&tt.cfg, log)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Name())
		})
	}
}

func TestNew_ClientsHonourContext(t *testing.T) {
	log := logger.NewStdLoggerTo(io.Discard, logger.LevelError)
	client, err := New(&config.Config{Provider: config.ProviderKraken, KrakenBaseURL: "http://127.0.0.1:1", HTTPTimeout: time.Second}, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.Ping(ctx))
}
