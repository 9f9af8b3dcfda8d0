package strategy

import (
	"math"
	"strings"

	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/models"
)

// RangeReversion fades moves beyond a narrow band around the rolling mean.
// Stops sit 1.5 ATR away, targets 2 ATR.
type RangeReversion struct {
	lookback  int
	bandRatio float64
}

// NewRangeReversion creates the strategy with default parameters.
func NewRangeReversion() *RangeReversion {
	return &RangeReversion{lookback: 30, bandRatio: 0.001}
}

func (s *RangeReversion) ID() string { return "range_reversion_simple" }

func (s *RangeReversion) Evaluate(snapshot *models.MarketDataSnapshot) *models.StrategySignal {
	candles := snapshot.Candles
	if len(candles) < s.lookback {
		return nil
	}
	closes := snapshot.Closes()
	lastClose := closes[len(closes)-1]

	rsi := calculate.CalculateRSI(closes, 14)

	mean := calculate.CalculateSMA(closes, s.lookback)
	band := math.Abs(mean) * s.bandRatio
	upper := mean + band
	lower := mean - band

	var signalType models.SignalType
	confidence := 70.0
	var reasons []string

	switch {
	case lastClose > upper:
		signalType = models.SignalSell
		if lastClose > upper+band*0.2 {
			confidence += 10.0
			reasons = append(reasons, "price well above upper band")
		}
		if snapshot.Regime == models.RegimeRange {
			confidence += 10.0
			reasons = append(reasons, "confirmed consolidation")
		}
		if rsi > 70 {
			confidence += 5.0
			reasons = append(reasons, "RSI overbought")
		}
	case lastClose < lower:
		signalType = models.SignalBuy
		if lastClose < lower-band*0.2 {
			confidence += 10.0
			reasons = append(reasons, "price well below lower band")
		}
		if snapshot.Regime == models.RegimeRange {
			confidence += 10.0
			reasons = append(reasons, "confirmed consolidation")
		}
		if rsi < 30 {
			confidence += 5.0
			reasons = append(reasons, "RSI oversold")
		}
	default:
		return nil
	}

	atr := calculate.CalculateATR(candles, 14)
	if atr <= 0 {
		return nil
	}

	var sl, tp float64
	if signalType == models.SignalBuy {
		sl = lastClose - 1.5*atr
		tp = lastClose + 2.0*atr
	} else {
		sl = lastClose + 1.5*atr
		tp = lastClose - 2.0*atr
	}

	reason := "Band break, expecting mean reversion"
	if len(reasons) > 0 {
		reason += ": " + strings.Join(reasons, ", ")
	}

	return &models.StrategySignal{
		StrategyID:      s.ID(),
		Instrument:      snapshot.Instrument,
		SignalType:      signalType,
		Confidence:      capConfidence(confidence),
		StopLossPrice:   sl,
		TakeProfitPrice: tp,
		Reason:          reason,
	}
}
