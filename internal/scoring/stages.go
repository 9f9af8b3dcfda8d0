package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/models"
)

// Stage is one criterion in the scoring pipeline. A critical stage scoring
// zero or below vetoes the whole setup.
type Stage interface {
	Name() string
	Weight() float64
	Critical() bool
	Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent
}

// DataSanityStage guards against scoring on thin or missing data.
type DataSanityStage struct{}

func (DataSanityStage) Name() string    { return "DataSanity" }
func (DataSanityStage) Weight() float64 { return 2.0 }
func (DataSanityStage) Critical() bool  { return true }

func (s DataSanityStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) == 0 {
		return models.ScoreComponent{Name: s.Name(), Score: 0, Weight: s.Weight(), Reason: "no candle data"}
	}
	if count := len(snapshot.Candles); count < 50 {
		return models.ScoreComponent{Name: s.Name(), Score: 2, Weight: s.Weight(), Reason: fmt.Sprintf("thin history (%d candles)", count)}
	}
	return models.ScoreComponent{Name: s.Name(), Score: 10, Weight: s.Weight(), Reason: "data complete"}
}

// RiskRewardStage maps the setup's R:R ratio onto 1-10 buckets.
type RiskRewardStage struct{}

func (RiskRewardStage) Name() string    { return "RiskReward" }
func (RiskRewardStage) Weight() float64 { return 1.8 }
func (RiskRewardStage) Critical() bool  { return false }

func (s RiskRewardStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if signal.StopLossPrice == 0 || signal.TakeProfitPrice == 0 {
		return models.ScoreComponent{Name: s.Name(), Score: 0, Weight: s.Weight(), Reason: "missing SL/TP"}
	}
	entry := snapshot.LastClose()
	risk := math.Abs(entry - signal.StopLossPrice)
	reward := math.Abs(signal.TakeProfitPrice - entry)
	if risk == 0 {
		return models.ScoreComponent{Name: s.Name(), Score: 0, Weight: s.Weight(), Reason: "zero risk distance"}
	}

	rr := reward / risk
	var score float64
	var reason string
	switch {
	case rr < 1.0:
		score, reason = 1, fmt.Sprintf("poor RR (%.2f)", rr)
	case rr < 1.5:
		score, reason = 4, fmt.Sprintf("acceptable RR (%.2f)", rr)
	case rr < 2.0:
		score, reason = 7, fmt.Sprintf("good RR (%.2f)", rr)
	case rr < 3.0:
		score, reason = 9, fmt.Sprintf("very good RR (%.2f)", rr)
	default:
		score, reason = 10, fmt.Sprintf("excellent RR (%.2f)", rr)
	}
	return models.ScoreComponent{Name: s.Name(), Score: score, Weight: s.Weight(), Reason: reason}
}

// MarketRegimeStage rewards regimes the strategies are built for.
type MarketRegimeStage struct{}

func (MarketRegimeStage) Name() string    { return "MarketRegime" }
func (MarketRegimeStage) Weight() float64 { return 1.5 }
func (MarketRegimeStage) Critical() bool  { return false }

func (s MarketRegimeStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	switch snapshot.Regime {
	case models.RegimeTrend:
		return models.ScoreComponent{Name: s.Name(), Score: 10, Weight: s.Weight(), Reason: "strong trend"}
	case models.RegimeHighVolatility:
		return models.ScoreComponent{Name: s.Name(), Score: 6, Weight: s.Weight(), Reason: "high volatility"}
	case models.RegimeRange:
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "consolidation"}
	case models.RegimeLowLiquidity:
		return models.ScoreComponent{Name: s.Name(), Score: 2, Weight: s.Weight(), Reason: "low liquidity"}
	default:
		return models.ScoreComponent{Name: s.Name(), Score: 4, Weight: s.Weight(), Reason: string(snapshot.Regime)}
	}
}

// NewsRiskStage vetoes entries inside a high-impact news window.
// timeToNews counts minutes down to the event; the danger zone runs from
// 30 minutes before the release to 15 minutes after.
type NewsRiskStage struct{}

func (NewsRiskStage) Name() string    { return "NewsRisk" }
func (NewsRiskStage) Weight() float64 { return 2.0 }
func (NewsRiskStage) Critical() bool  { return true }

func (s NewsRiskStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	impact := snapshot.NewsImpact
	timeTo := snapshot.TimeToNewsMin
	if impact == models.NewsImpactNone || !snapshot.HasNews {
		return models.ScoreComponent{Name: s.Name(), Score: 10, Weight: s.Weight(), Reason: "no scheduled news"}
	}

	if impact == models.NewsImpactHigh {
		if timeTo >= -15 && timeTo <= 15 {
			return models.ScoreComponent{Name: s.Name(), Score: -15, Weight: s.Weight(),
				Reason: fmt.Sprintf("high impact news (T%+.0fm), trading halted", timeTo)}
		}
		if timeTo > 15 && timeTo <= 30 {
			return models.ScoreComponent{Name: s.Name(), Score: -5, Weight: s.Weight(),
				Reason: fmt.Sprintf("high impact news approaching (T%+.0fm)", timeTo)}
		}
	} else if impact == models.NewsImpactMedium {
		if timeTo >= -5 && timeTo <= 15 {
			return models.ScoreComponent{Name: s.Name(), Score: 2, Weight: s.Weight(),
				Reason: fmt.Sprintf("medium impact news (T%+.0fm)", timeTo)}
		}
	}
	return models.ScoreComponent{Name: s.Name(), Score: 10, Weight: s.Weight(), Reason: "calendar clear"}
}

// TrendBiasStage checks agreement with the SMA50/SMA200 relationship.
type TrendBiasStage struct{}

func (TrendBiasStage) Name() string    { return "HTFTrendBias" }
func (TrendBiasStage) Weight() float64 { return 1.2 }
func (TrendBiasStage) Critical() bool  { return false }

func (s TrendBiasStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) < 200 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "not enough history for trend bias"}
	}
	closes := snapshot.Closes()
	sma200 := calculate.CalculateSMA(closes, 200)
	sma50 := calculate.CalculateSMA(closes, 50)
	price := closes[len(closes)-1]
	isUptrend := sma50 > sma200

	score, reason := 5.0, "neutral"
	switch signal.SignalType {
	case models.SignalBuy:
		if isUptrend && price > sma200 {
			score, reason = 10, "aligned with uptrend"
		} else if !isUptrend && price < sma200 {
			score, reason = 2, "against downtrend"
		}
	case models.SignalSell:
		if !isUptrend && price < sma200 {
			score, reason = 10, "aligned with downtrend"
		} else if isUptrend && price > sma200 {
			score, reason = 2, "against uptrend"
		}
	}
	return models.ScoreComponent{Name: s.Name(), Score: score, Weight: s.Weight(), Reason: reason}
}

// MomentumStage counts directional agreement over the last three candles.
type MomentumStage struct{}

func (MomentumStage) Name() string    { return "Momentum" }
func (MomentumStage) Weight() float64 { return 1.2 }
func (MomentumStage) Critical() bool  { return false }

func (s MomentumStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) < 3 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "not enough candles"}
	}
	last3 := snapshot.Candles[len(snapshot.Candles)-3:]
	bullish, bearish := 0, 0
	for _, c := range last3 {
		if c.Close > c.Open {
			bullish++
		} else if c.Close < c.Open {
			bearish++
		}
	}

	score, reason := 5.0, "mixed momentum"
	agreeing := bullish
	if signal.SignalType == models.SignalSell {
		agreeing = bearish
	}
	switch agreeing {
	case 3:
		score, reason = 10, "strong momentum with signal"
	case 2:
		score, reason = 8, "moderate momentum with signal"
	case 0:
		score, reason = 2, "momentum against signal"
	}
	return models.ScoreComponent{Name: s.Name(), Score: score, Weight: s.Weight(), Reason: reason}
}

// MeanReversionStage weighs distance from SMA20 against direction.
type MeanReversionStage struct{}

func (MeanReversionStage) Name() string    { return "MeanReversion" }
func (MeanReversionStage) Weight() float64 { return 1.0 }
func (MeanReversionStage) Critical() bool  { return false }

func (s MeanReversionStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) < 20 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "n/a"}
	}
	closes := snapshot.Closes()
	sma20 := calculate.CalculateSMA(closes, 20)
	last := closes[len(closes)-1]
	distPct := (last - sma20) / sma20

	score, reason := 5.0, "within normal range"
	switch signal.SignalType {
	case models.SignalBuy:
		if distPct < -0.02 {
			score, reason = 9, "attractive price below mean"
		} else if distPct > 0.05 {
			score, reason = 3, "price overextended"
		}
	case models.SignalSell:
		if distPct > 0.02 {
			score, reason = 9, "attractive price above mean"
		} else if distPct < -0.05 {
			score, reason = 3, "price overextended down"
		}
	}
	return models.ScoreComponent{Name: s.Name(), Score: score, Weight: s.Weight(), Reason: reason}
}

// VolatilityContextStage compares the last candle range to the recent average.
type VolatilityContextStage struct{}

func (VolatilityContextStage) Name() string    { return "VolatilityContext" }
func (VolatilityContextStage) Weight() float64 { return 1.0 }
func (VolatilityContextStage) Critical() bool  { return false }

func (s VolatilityContextStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) < 10 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "n/a"}
	}
	last10 := snapshot.Candles[len(snapshot.Candles)-10:]
	sum := 0.0
	for _, c := range last10 {
		sum += c.High - c.Low
	}
	avgRange := sum / float64(len(last10))
	lastRange := last10[len(last10)-1].High - last10[len(last10)-1].Low

	ratio := 1.0
	if avgRange > 0 {
		ratio = lastRange / avgRange
	}

	score, reason := 5.0, "ok"
	switch {
	case ratio >= 0.8 && ratio <= 1.5:
		score, reason = 10, "volatility in normal range"
	case ratio > 2.0:
		score, reason = 4, "extreme volatility"
	case ratio < 0.5:
		score, reason = 6, "very quiet market"
	}
	return models.ScoreComponent{Name: s.Name(), Score: score, Weight: s.Weight(), Reason: reason}
}

// ConfluenceStage rewards proximity to round psychological price levels.
type ConfluenceStage struct{}

func (ConfluenceStage) Name() string    { return "Confluence" }
func (ConfluenceStage) Weight() float64 { return 0.8 }
func (ConfluenceStage) Critical() bool  { return false }

func (s ConfluenceStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	price := snapshot.LastClose()
	if price == 0 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "no price"}
	}

	// level step depends on price scale: FX vs stocks vs crypto
	step := 0.5
	if price >= 1000 {
		step = 100.0
	} else if price >= 10 {
		step = 10.0
	}

	nearest := math.Round(price/step) * step
	distancePct := math.Abs(price-nearest) / price
	if distancePct < 0.002 {
		return models.ScoreComponent{Name: s.Name(), Score: 8, Weight: s.Weight(),
			Reason: fmt.Sprintf("near level %g", nearest)}
	}
	return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "no confluence"}
}

// ExpectancyStage is a placeholder until per-setup history accumulates.
type ExpectancyStage struct{}

func (ExpectancyStage) Name() string    { return "Expectancy" }
func (ExpectancyStage) Weight() float64 { return 0.8 }
func (ExpectancyStage) Critical() bool  { return false }

func (s ExpectancyStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "no historical data"}
}

// TimingStage penalizes Friday-afternoon weekend risk and Monday-morning gaps.
type TimingStage struct{}

func (TimingStage) Name() string    { return "Timing" }
func (TimingStage) Weight() float64 { return 0.5 }
func (TimingStage) Critical() bool  { return false }

func (s TimingStage) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.ScoreComponent {
	if len(snapshot.Candles) == 0 {
		return models.ScoreComponent{Name: s.Name(), Score: 5, Weight: s.Weight(), Reason: "no candles"}
	}
	t := snapshot.Candles[len(snapshot.Candles)-1].Time.UTC()
	if t.Weekday() == time.Friday && t.Hour() >= 16 {
		return models.ScoreComponent{Name: s.Name(), Score: 2, Weight: s.Weight(), Reason: "Friday afternoon, weekend risk"}
	}
	if t.Weekday() == time.Monday && t.Hour() < 8 {
		return models.ScoreComponent{Name: s.Name(), Score: 4, Weight: s.Weight(), Reason: "Monday morning gaps"}
	}
	return models.ScoreComponent{Name: s.Name(), Score: 8, Weight: s.Weight(), Reason: "timing ok"}
}
