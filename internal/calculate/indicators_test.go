package calculate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fxpilot/advisor/models"
)

func TestCalculateRSI(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}

	assert.Equal(t, 100.0, CalculateRSI(rising, 14))
	assert.Equal(t, 0.0, CalculateRSI(falling, 14))
	assert.Equal(t, 50.0, CalculateRSI([]float64{1, 2, 3}, 14), "short series is neutral")
}

func TestCalculateEMA(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	ema := CalculateEMA(flat, 4)
	assert.NotEmpty(t, ema)
	for _, v := range ema {
		assert.InDelta(t, 5.0, v, 1e-9)
	}

	assert.Nil(t, CalculateEMA([]float64{1, 2}, 4), "series shorter than period")
	assert.Nil(t, CalculateEMA(flat, 0), "invalid period")
}

func TestCalculateSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, CalculateSMA(prices, 3), 1e-9)
	assert.InDelta(t, 3.0, CalculateSMA(prices, 10), 1e-9, "period longer than series uses everything")
	assert.Equal(t, 0.0, CalculateSMA(nil, 3))
}

func TestCalculateATRConstantRange(t *testing.T) {
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = models.Candle{Open: 100, High: 100.5, Low: 99.5, Close: 100}
	}
	assert.InDelta(t, 1.0, CalculateATR(candles, 14), 1e-9)
	assert.Equal(t, 0.0, CalculateATR(candles[:1], 14), "needs at least two candles")
}

func TestStdDevAndMean(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{3, 3, 3}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 3}), 1e-9)
	assert.Equal(t, 0.0, StdDev(nil))

	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
}

func TestIsPinbar(t *testing.T) {
	hammer := models.Candle{Open: 10.0, Close: 10.1, High: 10.15, Low: 9.0}
	assert.True(t, IsPinbar(hammer, models.DirectionLong))
	assert.False(t, IsPinbar(hammer, models.DirectionShort))

	shootingStar := models.Candle{Open: 10.1, Close: 10.0, High: 11.1, Low: 9.95}
	assert.True(t, IsPinbar(shootingStar, models.DirectionShort))
	assert.False(t, IsPinbar(shootingStar, models.DirectionLong))

	doji := models.Candle{Open: 10, Close: 10, High: 10, Low: 10}
	assert.False(t, IsPinbar(doji, models.DirectionLong), "zero range is never a pinbar")
}
