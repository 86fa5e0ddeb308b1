package domain

import "time"

// Ticker is the current price and rolling 24h volume of a symbol.
type Ticker struct {
	LastPrice      float64 `json:"last_price"`
	QuoteVolume24h float64 `json:"quote_volume_24h"`
}

// MarketSnapshot is everything one poll cycle produced for rendering.
// HasDepth and HasHistory are false when the provider returned no order book
// levels or no candles; that is "no data", not zero.
type MarketSnapshot struct {
	Provider   string         `json:"provider"`
	Symbol     string         `json:"symbol"`
	FetchedAt  time.Time      `json:"fetched_at"`
	Ticker     Ticker         `json:"ticker"`
	Depth      DepthProfile   `json:"depth"`
	Candles    []CandleSample `json:"candles"`
	HasDepth   bool           `json:"has_depth"`
	HasHistory bool           `json:"has_history"`
}

// Complete reports whether both depth and history were available.
func (s *MarketSnapshot) Complete() bool {
	return s != nil && s.HasDepth && s.HasHistory
}
