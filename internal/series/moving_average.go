package series

import (
	"fmt"
	"math"
	"strings"

	"binanceTracker/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// ParseMovingAverageType converts a string such as "sma" or "EMA" to a MovingAverageType.
func ParseMovingAverageType(s string) (MovingAverageType, error) {
	switch MovingAverageType(strings.ToUpper(strings.TrimSpace(s))) {
	case SimpleMovingAverage:
		return SimpleMovingAverage, nil
	case ExponentialMovingAverage:
		return ExponentialMovingAverage, nil
	default:
		return "", fmt.Errorf("unsupported moving average type: %s", s)
	}
}

// MovingAverage computes a rolling moving average of close prices aligned with
// samples. Positions before the first full window are NaN so the overlay
// starts where the average becomes defined.
func MovingAverage(samples []domain.CandleSample, period int, maType MovingAverageType) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("moving average period must be positive, got %d", period)
	}

	out := make([]float64, len(samples))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(samples) < period {
		return out, nil
	}

	switch maType {
	case SimpleMovingAverage:
		rollingSMA(samples, period, out)
	case ExponentialMovingAverage:
		rollingEMA(samples, period, out)
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", maType)
	}
	return out, nil
}

func rollingSMA(samples []domain.CandleSample, period int, out []float64) {
	total := 0.0
	for i, s := range samples {
		total += s.Close
		if i >= period {
			total -= samples[i-period].Close
		}
		if i >= period-1 {
			out[i] = total / float64(period)
		}
	}
}

// rollingEMA seeds with the SMA of the first period closes.
func rollingEMA(samples []domain.CandleSample, period int, out []float64) {
	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += samples[i].Close
	}
	ema := seed / float64(period)
	out[period-1] = ema

	for i := period; i < len(samples); i++ {
		ema = (samples[i].Close-ema)*multiplier + ema
		out[i] = ema
	}
}
