package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxpilot/advisor/models"
)

// flatSnapshot builds n candles pinned at price with a small constant range,
// then lets the caller distort the tail.
func flatSnapshot(n int, price float64, regime models.Regime) *models.MarketDataSnapshot {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Open:  price,
			High:  price + 0.001,
			Low:   price - 0.001,
			Close: price,
		}
	}
	return &models.MarketDataSnapshot{
		Instrument: "EUR/USD",
		Timeframe:  "M5",
		Candles:    candles,
		Regime:     regime,
	}
}

func setLastClose(snapshot *models.MarketDataSnapshot, close float64) {
	last := &snapshot.Candles[len(snapshot.Candles)-1]
	last.Close = close
	if close > last.High {
		last.High = close + 0.001
	}
	if close < last.Low {
		last.Low = close - 0.001
	}
}

func TestTrendFollowingLong(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeTrend)
	setLastClose(snapshot, 1.01)

	signal := NewTrendFollowing().Evaluate(snapshot)
	require.NotNil(t, signal)

	assert.Equal(t, "trend_following_simple", signal.StrategyID)
	assert.Equal(t, models.SignalBuy, signal.SignalType)
	assert.Less(t, signal.StopLossPrice, 1.01)
	assert.Greater(t, signal.TakeProfitPrice, 1.01)
	// strong deviation + trend regime + EMA alignment on top of the base 50
	assert.Equal(t, 75.0, signal.Confidence)
}

func TestTrendFollowingShort(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeUnknown)
	setLastClose(snapshot, 0.99)

	signal := NewTrendFollowing().Evaluate(snapshot)
	require.NotNil(t, signal)

	assert.Equal(t, models.SignalSell, signal.SignalType)
	assert.Greater(t, signal.StopLossPrice, 0.99)
	assert.Less(t, signal.TakeProfitPrice, 0.99)
}

func TestTrendFollowingNoSignalOnFlatTape(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeRange)
	assert.Nil(t, NewTrendFollowing().Evaluate(snapshot))
}

func TestTrendFollowingNeedsHistory(t *testing.T) {
	snapshot := flatSnapshot(10, 1.0, models.RegimeTrend)
	assert.Nil(t, NewTrendFollowing().Evaluate(snapshot))
}

func TestMomentumBreakoutLong(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeHighVolatility)
	last := &snapshot.Candles[len(snapshot.Candles)-1]
	last.Open = 1.0
	last.Close = 1.02
	last.High = 1.021
	last.Low = 0.999

	signal := NewMomentumBreakout().Evaluate(snapshot)
	require.NotNil(t, signal)

	assert.Equal(t, "momentum_breakout_simple", signal.StrategyID)
	assert.Equal(t, models.SignalBuy, signal.SignalType)
	assert.GreaterOrEqual(t, signal.Confidence, 70.0)
	assert.Less(t, signal.StopLossPrice, signal.TakeProfitPrice)
}

func TestMomentumBreakoutShort(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeUnknown)
	last := &snapshot.Candles[len(snapshot.Candles)-1]
	last.Open = 1.0
	last.Close = 0.98
	last.High = 1.001
	last.Low = 0.979

	signal := NewMomentumBreakout().Evaluate(snapshot)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalSell, signal.SignalType)
}

func TestMomentumBreakoutIgnoresInsideBars(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeHighVolatility)
	assert.Nil(t, NewMomentumBreakout().Evaluate(snapshot))
}

func TestRangeReversionFadesUpperBand(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeRange)
	setLastClose(snapshot, 1.005)

	signal := NewRangeReversion().Evaluate(snapshot)
	require.NotNil(t, signal)

	assert.Equal(t, "range_reversion_simple", signal.StrategyID)
	assert.Equal(t, models.SignalSell, signal.SignalType)
	assert.Greater(t, signal.StopLossPrice, 1.005)
	assert.Less(t, signal.TakeProfitPrice, 1.005)
}

func TestRangeReversionBuysLowerBand(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeRange)
	setLastClose(snapshot, 0.995)

	signal := NewRangeReversion().Evaluate(snapshot)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalBuy, signal.SignalType)
}

func TestRangeReversionQuietInsideBand(t *testing.T) {
	snapshot := flatSnapshot(60, 1.0, models.RegimeRange)
	assert.Nil(t, NewRangeReversion().Evaluate(snapshot))
}

func TestConfidenceNeverExceedsCap(t *testing.T) {
	assert.Equal(t, maxConfidence, capConfidence(140.0))
	assert.Equal(t, 60.0, capConfidence(60.0))
}
