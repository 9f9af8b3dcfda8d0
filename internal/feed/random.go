// Package feed produces market data snapshots for the bus. The random feed
// is a geometric random walk, good enough to exercise the whole pipeline
// without a broker account.
package feed

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/models"
)

// RandomFeed publishes a MARKET_DATA snapshot per instrument on every poll.
type RandomFeed struct {
	bus          *bus.Bus
	instruments  []string
	timeframe    string
	candleCount  int
	pollInterval time.Duration
	logger       zerolog.Logger

	rng     *rand.Rand
	history map[string][]models.Candle
}

// NewRandomFeed seeds a rolling candle history per instrument so indicators
// have data from the first snapshot on.
func NewRandomFeed(b *bus.Bus, instruments []string, timeframe string, candleCount int, pollInterval time.Duration) *RandomFeed {
	f := &RandomFeed{
		bus:          b,
		instruments:  instruments,
		timeframe:    timeframe,
		candleCount:  candleCount,
		pollInterval: pollInterval,
		logger:       log.With().Str("component", "feed").Logger(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		history:      make(map[string][]models.Candle),
	}

	step := timeframeDuration(timeframe)
	for _, instrument := range instruments {
		price := startPrice(instrument)
		start := time.Now().UTC().Add(-time.Duration(candleCount) * step)
		candles := make([]models.Candle, 0, candleCount)
		for i := 0; i < candleCount; i++ {
			candle := f.nextCandle(price, start.Add(time.Duration(i)*step))
			candles = append(candles, candle)
			price = candle.Close
		}
		f.history[instrument] = candles
	}
	return f
}

// Run publishes snapshots until the context is cancelled.
func (f *RandomFeed) Run(ctx context.Context) {
	f.publishAll()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.advance()
			f.publishAll()
		}
	}
}

func (f *RandomFeed) advance() {
	for _, instrument := range f.instruments {
		candles := f.history[instrument]
		last := candles[len(candles)-1]
		candle := f.nextCandle(last.Close, last.Time.Add(timeframeDuration(f.timeframe)))
		candles = append(candles, candle)
		if len(candles) > f.candleCount {
			candles = candles[len(candles)-f.candleCount:]
		}
		f.history[instrument] = candles
	}
}

func (f *RandomFeed) publishAll() {
	for _, instrument := range f.instruments {
		candles := f.history[instrument]
		snapshot := &models.MarketDataSnapshot{
			Instrument: instrument,
			Timeframe:  f.timeframe,
			Candles:    append([]models.Candle(nil), candles...),
		}
		f.bus.PublishNow(models.TopicMarketData, snapshot)
		f.logger.Debug().
			Str("instrument", instrument).
			Float64("last_close", snapshot.LastClose()).
			Msg("snapshot published")
	}
}

// nextCandle draws one step of the walk. Volatility is a fixed fraction of
// price, which keeps JPY pairs and majors proportionally similar.
func (f *RandomFeed) nextCandle(open float64, ts time.Time) models.Candle {
	const vol = 0.0008
	ret := (f.rng.Float64() - 0.5) * 2.0 * vol
	close := open * (1.0 + ret)
	high := maxPrice(open, close) * (1.0 + f.rng.Float64()*vol*0.5)
	low := minPrice(open, close) * (1.0 - f.rng.Float64()*vol*0.5)
	return models.Candle{
		Time:   ts,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 10_000 + f.rng.Float64()*5_000,
	}
}

func startPrice(instrument string) float64 {
	switch {
	case strings.Contains(instrument, "JPY"):
		return 148.0
	case strings.HasPrefix(instrument, "GBP"):
		return 1.27
	case strings.HasPrefix(instrument, "EUR"):
		return 1.10
	default:
		return 1.0
	}
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "H1":
		return time.Hour
	}
	return 5 * time.Minute
}

func maxPrice(a, b float64) float64 {
	if a < b {
		return b
	}
	return a
}

func minPrice(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
