// Package series turns provider candle history into a uniform time series.
package series

import (
	"math"
	"sort"

	"binanceTracker/internal/domain"
)

// Config holds configuration for the Normalizer.
type Config struct {
	// Lookback caps the number of samples kept, newest first. Zero or negative keeps everything.
	Lookback int
}

// Normalizer converts raw provider candles into CandleSamples.
type Normalizer struct {
	lookback int
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{lookback: cfg.Lookback}
}

// Normalize converts raw candles to samples in ascending time order.
//
// Quote volume is taken as-is for quote-denominated candles and computed as
// volume × close otherwise. Provider order is kept when it is already
// ascending; anything else is stable-sorted by open time. Candles with a
// non-finite close, volume or quote volume are dropped. An empty input yields an empty,
// non-nil slice.
func (n *Normalizer) Normalize(raw []domain.RawCandle) []domain.CandleSample {
	samples := make([]domain.CandleSample, 0, len(raw))
	for _, c := range raw {
		if !finite(c.Close) || !finite(c.Volume) {
			continue
		}
		qv := QuoteVolume(c)
		if !finite(qv) {
			continue
		}
		samples = append(samples, domain.CandleSample{
			Time:        c.OpenTime,
			Close:       c.Close,
			QuoteVolume: qv,
		})
	}

	if !IsAscending(samples) {
		sort.SliceStable(samples, func(i, j int) bool {
			return samples[i].Time.Before(samples[j].Time)
		})
	}

	if n.lookback > 0 && len(samples) > n.lookback {
		samples = samples[len(samples)-n.lookback:]
	}
	return samples
}

// QuoteVolume returns the candle volume expressed in quote currency.
func QuoteVolume(c domain.RawCandle) float64 {
	if c.Unit == domain.VolumeQuote {
		return c.Volume
	}
	return c.Volume * c.Close
}

// IsAscending reports whether samples are in non-decreasing time order.
func IsAscending(samples []domain.CandleSample) bool {
	for i := 1; i < len(samples); i++ {
		if samples[i].Time.Before(samples[i-1].Time) {
			return false
		}
	}
	return true
}

// Closes extracts the close prices of the samples.
func Closes(samples []domain.CandleSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Close
	}
	return out
}

// QuoteVolumes extracts the quote volumes of the samples.
func QuoteVolumes(samples []domain.CandleSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.QuoteVolume
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
