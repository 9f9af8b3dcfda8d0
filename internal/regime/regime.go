// Package regime classifies a candle series into a market regime.
package regime

import (
	"math"

	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/models"
)

const (
	minCandles = 50

	highVolatilityThreshold = 0.02
	lowLiquidityThreshold   = 0.0003
	trendSeparationRatio    = 0.001
)

// Classifier infers a market regime from closing prices.
type Classifier struct{}

// NewClassifier creates a stateless regime classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Infer maps a candle window to a regime. Under 50 candles it returns
// CHAOS as the insufficient-data sentinel; with no candles at all the
// regime is unknown.
func (c *Classifier) Infer(candles []models.Candle) models.Regime {
	if len(candles) == 0 {
		return models.RegimeUnknown
	}
	closes := make([]float64, len(candles))
	for i, candle := range candles {
		closes[i] = candle.Close
	}
	if len(closes) < minCandles {
		return models.RegimeChaos
	}

	mean := calculate.Mean(closes)
	volatility := calculate.StdDev(closes)
	if mean != 0 {
		// relative volatility so thresholds hold across price scales
		volatility /= math.Abs(mean)
	}

	if volatility > highVolatilityThreshold {
		return models.RegimeHighVolatility
	}
	if volatility < lowLiquidityThreshold {
		return models.RegimeLowLiquidity
	}

	// EMA 50/200 when enough history, else 20/50
	fastPeriod, slowPeriod := 20, 50
	if len(closes) >= 200 {
		fastPeriod, slowPeriod = 50, 200
	}

	emaFast := calculate.CalculateEMA(closes, fastPeriod)
	emaSlow := calculate.CalculateEMA(closes, slowPeriod)
	if len(emaFast) > 0 && len(emaSlow) > 0 {
		lastFast := emaFast[len(emaFast)-1]
		lastSlow := emaSlow[len(emaSlow)-1]

		diff := math.Abs(lastFast - lastSlow)
		threshold := math.Abs(lastSlow) * trendSeparationRatio
		if diff > threshold {
			return models.RegimeTrend
		}
	}

	return models.RegimeRange
}
