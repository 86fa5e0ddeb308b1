// Package provider selects the market data adapter named by the configuration.
package provider

import (
	"fmt"

	"binanceTracker/config"
	"binanceTracker/internal/adapters/binanceclient"
	"binanceTracker/internal/adapters/krakenclient"
	"binanceTracker/internal/ports"
)

// New builds the MarketDataClient for cfg.Provider.
func New(cfg *config.Config, logger ports.Logger) (ports.MarketDataClient, error) {
	switch cfg.Provider {
	case config.ProviderBinance, "":
		market, err := binanceclient.ParseMarket(cfg.BinanceMarket)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
		}
		return binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			Market:     market,
			UseTestnet: cfg.IsTestnet,
			Timeout:    cfg.HTTPTimeout,
			Logger:     logger,
		})
	case config.ProviderKraken:
		return krakenclient.New(krakenclient.Config{
			BaseURL: cfg.KrakenBaseURL,
			Timeout: cfg.HTTPTimeout,
			Logger:  logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ports.ErrConfigurationError, cfg.Provider)
	}
}
