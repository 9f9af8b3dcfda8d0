// Package calculate holds the indicator math shared by strategies, regime
// classification and scoring. Everything is computed from scratch on the
// candle window of the current snapshot.
package calculate

import (
	"math"

	"github.com/fxpilot/advisor/models"
)

// CalculateRSI computes the Wilder-smoothed Relative Strength Index over
// closing prices. Returns the neutral 50 when there is not enough data.
func CalculateRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// Wilder smoothing for the remainder of the series
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CalculateEMA returns the exponential moving average series, seeded with a
// simple moving average of the first period. Empty when the series is too
// short.
func CalculateEMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	multiplier := 2.0 / float64(period+1)
	sma := 0.0
	for _, p := range prices[:period] {
		sma += p
	}
	sma /= float64(period)

	ema := make([]float64, 0, len(prices)-period+1)
	ema = append(ema, sma)
	for _, price := range prices[period:] {
		prev := ema[len(ema)-1]
		ema = append(ema, (price-prev)*multiplier+prev)
	}
	return ema
}

// CalculateSMA returns the simple moving average of the last period prices,
// or of the whole series when it is shorter.
func CalculateSMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period > len(prices) {
		period = len(prices)
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// CalculateATR computes the Wilder-smoothed Average True Range:
// TR = max(high-low, |high-prevClose|, |low-prevClose|).
func CalculateATR(candles []models.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		curr, prev := candles[i], candles[i-1]
		tr := math.Max(curr.High-curr.Low,
			math.Max(math.Abs(curr.High-prev.Close), math.Abs(curr.Low-prev.Close)))
		trs = append(trs, tr)
	}

	if len(trs) < period {
		sum := 0.0
		for _, tr := range trs {
			sum += tr
		}
		return sum / float64(len(trs))
	}

	atr := 0.0
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// StdDev returns the population standard deviation.
func StdDev(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	avg := 0.0
	for _, p := range prices {
		avg += p
	}
	avg /= float64(len(prices))

	variance := 0.0
	for _, p := range prices {
		variance += (p - avg) * (p - avg)
	}
	variance /= float64(len(prices))
	return math.Sqrt(variance)
}

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// IsPinbar reports whether the candle shows a long-wick rejection in the
// given direction.
func IsPinbar(candle models.Candle, direction models.TradeDirection) bool {
	body := math.Abs(candle.Close - candle.Open)
	total := candle.High - candle.Low
	if total == 0 {
		return false
	}

	lowerWick := math.Min(candle.Close, candle.Open) - candle.Low
	upperWick := candle.High - math.Max(candle.Close, candle.Open)

	if direction == models.DirectionLong {
		return lowerWick > 2*body && lowerWick > 2*upperWick
	}
	return upperWick > 2*body && upperWick > 2*lowerWick
}
