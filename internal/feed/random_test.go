package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/models"
)

func TestRandomFeedSeedsFullHistory(t *testing.T) {
	b := bus.New()
	feed := NewRandomFeed(b, []string{"EUR/USD", "USD/JPY"}, "M5", 100, time.Minute)

	var snapshots []*models.MarketDataSnapshot
	b.Subscribe(models.TopicMarketData, func(e models.Event) {
		snapshots = append(snapshots, e.Payload.(*models.MarketDataSnapshot))
	})

	feed.publishAll()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	require.Len(t, snapshots, 2)
	for _, snapshot := range snapshots {
		assert.Len(t, snapshot.Candles, 100)
		for i, candle := range snapshot.Candles {
			assert.GreaterOrEqual(t, candle.High, candle.Close)
			assert.LessOrEqual(t, candle.Low, candle.Close)
			assert.GreaterOrEqual(t, candle.High, candle.Open)
			assert.LessOrEqual(t, candle.Low, candle.Open)
			if i > 0 {
				assert.True(t, candle.Time.After(snapshot.Candles[i-1].Time), "timestamps strictly increasing")
			}
		}
	}
	assert.Equal(t, "EUR/USD", snapshots[0].Instrument)
	assert.Equal(t, "USD/JPY", snapshots[1].Instrument)
}

func TestRandomFeedPriceScalePerInstrument(t *testing.T) {
	b := bus.New()
	feed := NewRandomFeed(b, []string{"EUR/USD", "GBP/USD", "USD/JPY"}, "M5", 50, time.Minute)

	eur := feed.history["EUR/USD"][0].Open
	gbp := feed.history["GBP/USD"][0].Open
	jpy := feed.history["USD/JPY"][0].Open

	assert.InDelta(t, 1.10, eur, 0.1)
	assert.InDelta(t, 1.27, gbp, 0.1)
	assert.InDelta(t, 148.0, jpy, 10.0)
}

func TestAdvanceKeepsWindowCapped(t *testing.T) {
	b := bus.New()
	feed := NewRandomFeed(b, []string{"EUR/USD"}, "M5", 60, time.Minute)

	lastBefore := feed.history["EUR/USD"][59]
	feed.advance()

	candles := feed.history["EUR/USD"]
	require.Len(t, candles, 60, "window stays capped")
	assert.Equal(t, lastBefore.Close, candles[58].Close, "history shifted by one")
	assert.Equal(t, lastBefore.Close, candles[59].Open, "new candle opens at the previous close")
	assert.Equal(t, lastBefore.Time.Add(5*time.Minute), candles[59].Time)
}

func TestTimeframeDuration(t *testing.T) {
	assert.Equal(t, time.Minute, timeframeDuration("M1"))
	assert.Equal(t, 5*time.Minute, timeframeDuration("M5"))
	assert.Equal(t, 15*time.Minute, timeframeDuration("M15"))
	assert.Equal(t, time.Hour, timeframeDuration("H1"))
	assert.Equal(t, 5*time.Minute, timeframeDuration("weird"), "unknown timeframes fall back to M5")
}
