package strategy

import (
	"fmt"
	"strings"

	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/models"
)

// MomentumBreakout signals on a close beyond the N-period high or low,
// backed by a candle range of at least 0.6 ATR.
type MomentumBreakout struct {
	lookback int
}

// NewMomentumBreakout creates the strategy with default parameters.
func NewMomentumBreakout() *MomentumBreakout {
	return &MomentumBreakout{lookback: 20}
}

func (s *MomentumBreakout) ID() string { return "momentum_breakout_simple" }

func (s *MomentumBreakout) Evaluate(snapshot *models.MarketDataSnapshot) *models.StrategySignal {
	candles := snapshot.Candles
	if len(candles) < s.lookback+1 {
		return nil
	}
	closes := snapshot.Closes()

	trendPeriod := 50
	if len(closes) >= 200 {
		trendPeriod = 200
	}
	var trendEMA float64
	if emas := calculate.CalculateEMA(closes, trendPeriod); len(emas) > 0 {
		trendEMA = emas[len(emas)-1]
	}

	atr := calculate.CalculateATR(candles, 14)
	if atr <= 0 {
		return nil
	}

	recent := candles[len(candles)-s.lookback-1:]
	last := recent[len(recent)-1]
	lastRange := last.High - last.Low

	prevHigh, prevLow := recent[0].High, recent[0].Low
	for _, c := range recent[:len(recent)-1] {
		if c.High > prevHigh {
			prevHigh = c.High
		}
		if c.Low < prevLow {
			prevLow = c.Low
		}
	}

	isSignificant := lastRange > 0.6*atr

	var signalType models.SignalType
	switch {
	case last.Close > prevHigh && isSignificant:
		signalType = models.SignalBuy
	case last.Close < prevLow && isSignificant:
		signalType = models.SignalSell
	default:
		return nil
	}

	lastClose := last.Close
	confidence := 70.0
	var reasons []string

	breakoutStrength := lastRange / atr
	if breakoutStrength > 2.0 {
		confidence += 10.0
		reasons = append(reasons, fmt.Sprintf("very strong candle (x%.1f ATR)", breakoutStrength))
	}
	if snapshot.Regime == models.RegimeHighVolatility {
		confidence += 10.0
		reasons = append(reasons, "high volatility regime")
	}
	if trendEMA != 0 {
		if (signalType == models.SignalBuy && lastClose > trendEMA) ||
			(signalType == models.SignalSell && lastClose < trendEMA) {
			confidence += 5.0
			reasons = append(reasons, fmt.Sprintf("aligned with EMA%d", trendPeriod))
		}
	}

	var sl, tp float64
	if signalType == models.SignalBuy {
		sl = lastClose - 2.0*atr
		tp = lastClose + 4.0*atr
	} else {
		sl = lastClose + 2.0*atr
		tp = lastClose - 4.0*atr
	}

	reason := "Breakout from consolidation"
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
