package domain

import "time"

// VolumeUnit tells which asset a provider's candle volume is denominated in.
type VolumeUnit string

const (
	VolumeBase  VolumeUnit = "base"
	VolumeQuote VolumeUnit = "quote"
)

// RawCandle is the provider-neutral historical candle record produced by adapters.
type RawCandle struct {
	OpenTime time.Time  // Start time of the interval
	Close    float64    // Closing price
	Volume   float64    // Traded volume, denominated per Unit
	Unit     VolumeUnit // Unit of Volume
}

// CandleSample is one normalized point of the price/volume history.
type CandleSample struct {
	Time        time.Time `json:"time"`
	Close       float64   `json:"close"`
	QuoteVolume float64   `json:"quote_volume"`
}
