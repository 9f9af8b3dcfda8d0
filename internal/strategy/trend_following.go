package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/models"
)

// TrendFollowing signals when price deviates from its rolling mean in the
// direction of travel. Stops sit 2 ATR away, targets 4 ATR.
type TrendFollowing struct {
	lookback     int
	triggerRatio float64
}

// NewTrendFollowing creates the strategy with default parameters.
func NewTrendFollowing() *TrendFollowing {
	return &TrendFollowing{lookback: 40, triggerRatio: 0.0005}
}

func (s *TrendFollowing) ID() string { return "trend_following_simple" }

func (s *TrendFollowing) Evaluate(snapshot *models.MarketDataSnapshot) *models.StrategySignal {
	candles := snapshot.Candles
	if len(candles) < s.lookback {
		return nil
	}
	closes := snapshot.Closes()
	lastClose := closes[len(closes)-1]

	// EMA200 trend filter, EMA50 when history is short
	trendPeriod := 50
	if len(closes) >= 200 {
		trendPeriod = 200
	}
	var trendEMA float64
	if emas := calculate.CalculateEMA(closes, trendPeriod); len(emas) > 0 {
		trendEMA = emas[len(emas)-1]
	}

	ma := calculate.CalculateSMA(closes, s.lookback)
	diff := lastClose - ma
	threshold := math.Abs(ma) * s.triggerRatio

	var signalType models.SignalType
	confidence := 50.0
	var reasons []string

	switch {
	case diff > threshold:
		signalType = models.SignalBuy
		if diff > 1.5*threshold {
			confidence += 10.0
			reasons = append(reasons, "strong deviation from mean")
		}
		if snapshot.Regime == models.RegimeTrend {
			confidence += 10.0
			reasons = append(reasons, "confirmed trend")
		}
		if trendEMA != 0 && lastClose > trendEMA {
			confidence += 5.0
			reasons = append(reasons, fmt.Sprintf("aligned with EMA%d", trendPeriod))
		}
	case diff < -threshold:
		signalType = models.SignalSell
		if math.Abs(diff) > 1.5*threshold {
			confidence += 10.0
			reasons = append(reasons, "strong deviation from mean")
		}
		if snapshot.Regime == models.RegimeTrend {
			confidence += 10.0
			reasons = append(reasons, "confirmed trend")
		}
		if trendEMA != 0 && lastClose < trendEMA {
			confidence += 5.0
			reasons = append(reasons, fmt.Sprintf("aligned with EMA%d", trendPeriod))
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
		sl = lastClose - 2.0*atr
		tp = lastClose + 4.0*atr
	} else {
		sl = lastClose + 2.0*atr
		tp = lastClose - 4.0*atr
	}

	reason := "Price away from mean"
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
