// Package engine orchestrates the decision pipeline: strategies produce
// candidate signals, the scoring engine ranks them, the ML oracle and a
// second-pass heuristic re-score the best one, and the risk guard has the
// final word before a decision is published.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/internal/calculate"
	"github.com/fxpilot/advisor/internal/ml"
	"github.com/fxpilot/advisor/internal/news"
	"github.com/fxpilot/advisor/internal/regime"
	"github.com/fxpilot/advisor/internal/risk"
	"github.com/fxpilot/advisor/internal/scoring"
	"github.com/fxpilot/advisor/internal/strategy"
	"github.com/fxpilot/advisor/internal/tradelog"
	"github.com/fxpilot/advisor/models"
)

const (
	firstSeenMinScore = 70.0
	knownMinScore     = 50.0
	expectancyDays    = 7
	maxVolHistory     = 500
)

type candidate struct {
	strategy   strategy.Strategy
	signal     *models.StrategySignal
	expectancy float64
	score      models.TradeScore
}

// Engine consumes MARKET_DATA and emits DECISION_READY.
type Engine struct {
	cfg        *models.Config
	bus        *bus.Bus
	strategies []strategy.Strategy
	classifier *regime.Classifier
	scoring    *scoring.Engine
	guard      *risk.Guard
	oracle     *ml.Client
	calendar   news.CalendarSource
	journal    *tradelog.Logger
	logger     zerolog.Logger

	paused          bool
	seenInstruments map[string]bool
	volHistory      map[string][]float64
}

// New wires the orchestrator and subscribes it to the bus.
func New(
	cfg *models.Config,
	b *bus.Bus,
	strategies []strategy.Strategy,
	guard *risk.Guard,
	oracle *ml.Client,
	calendar news.CalendarSource,
	journal *tradelog.Logger,
) *Engine {
	e := &Engine{
		cfg:             cfg,
		bus:             b,
		strategies:      strategies,
		classifier:      regime.NewClassifier(),
		scoring:         scoring.NewEngine(),
		guard:           guard,
		oracle:          oracle,
		calendar:        calendar,
		journal:         journal,
		logger:          log.With().Str("component", "strategy_engine").Logger(),
		seenInstruments: make(map[string]bool),
		volHistory:      make(map[string][]float64),
	}
	b.Subscribe(models.TopicMarketData, e.onMarketData)
	b.Subscribe(models.TopicOrderFilled, e.onOrderFilled)
	b.Subscribe(models.TopicSystemPause, func(models.Event) {
		e.paused = true
		e.logger.Info().Msg("system paused")
	})
	b.Subscribe(models.TopicSystemResume, func(models.Event) {
		e.paused = false
		e.logger.Info().Msg("system resumed")
	})
	return e
}

func (e *Engine) onOrderFilled(event models.Event) {
	fill, ok := event.Payload.(models.OrderFilled)
	if !ok {
		return
	}
	// counters were already bumped when the decision was emitted; the fill
	// only confirms the virtual open
	e.logger.Info().
		Str("instrument", fill.Instrument).
		Str("order_id", fill.OrderID).
		Msg("virtual order filled")
}

func (e *Engine) onMarketData(event models.Event) {
	if e.paused {
		return
	}
	snapshot, ok := event.Payload.(*models.MarketDataSnapshot)
	if !ok {
		return
	}

	if snapshot.Regime == models.RegimeUnknown {
		snapshot.Regime = e.classifier.Infer(snapshot.Candles)
	}

	impact, timeTo, hasNews := e.calendar.ImpactFor(snapshot.Instrument, time.Now().UTC())
	snapshot.NewsImpact = impact
	snapshot.TimeToNewsMin = timeTo
	snapshot.HasNews = hasNews
	if impact == models.NewsImpactHigh {
		e.logger.Info().
			Str("instrument", snapshot.Instrument).
			Float64("minutes_to_news", timeTo).
			Msg("high impact news near")
	}

	var candidates []candidate
	for _, strat := range e.strategies {
		signal := strat.Evaluate(snapshot)
		if signal == nil {
			continue
		}
		if signal.StopLossPrice == 0 || signal.TakeProfitPrice == 0 {
			// unusable geometry, drop silently
			continue
		}

		score := e.scoring.Evaluate(snapshot, signal)
		e.logger.Info().
			Str("instrument", snapshot.Instrument).
			Str("strategy", strat.ID()).
			Float64("score", score.TotalScore).
			Str("verdict", string(score.Verdict)).
			Msg("signal scored")

		signal.Confidence = score.TotalScore
		signal.Reason = fmt.Sprintf("%s | score %.0f (%s)", signal.Reason, score.TotalScore, score.Verdict)

		candidates = append(candidates, candidate{
			strategy:   strat,
			signal:     signal,
			expectancy: e.journal.Expectancy(strat.ID(), snapshot.Instrument, expectancyDays),
			score:      score,
		})
	}

	if len(candidates) == 0 {
		e.emitNoTrade(snapshot, "", "no setup met the criteria", nil)
		return
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score.TotalScore > candidates[j].score.TotalScore
	})
	best := candidates[0]

	if best.score.Verdict == models.ScoreIgnore {
		e.emitIgnored(snapshot, best)
		return
	}

	e.emitBestDecision(snapshot, best)
}

// emitIgnored publishes an explicit NO_TRADE carrying the weakest stage
// reasons so downstream collaborators can show why nothing happened.
func (e *Engine) emitIgnored(snapshot *models.MarketDataSnapshot, best candidate) {
	var weak []string
	for _, component := range best.score.Components {
		if component.Score < 5.0 {
			weak = append(weak, fmt.Sprintf("%s: %.1f/10 (%s)", component.Name, component.Score, component.Reason))
		}
	}
	explanation := fmt.Sprintf("score %.0f/100 (IGNORE)", best.score.TotalScore)
	if len(weak) > 0 {
		explanation += ": " + joinReasons(weak)
	}
	metadata := map[string]any{
		"verdict":   string(models.ScoreIgnore),
		"raw_score": best.score.RawScore,
	}
	decision := e.noTradeDecision(snapshot, best.strategy.ID(), explanation, metadata)
	decision.Confidence = best.score.TotalScore
	e.bus.PublishNow(models.TopicDecisionReady, decision)
}

func (e *Engine) emitNoTrade(snapshot *models.MarketDataSnapshot, strategyID, explanation string, metadata map[string]any) {
	e.logger.Info().
		Str("instrument", snapshot.Instrument).
		Str("timeframe", snapshot.Timeframe).
		Msg("emitting NO_TRADE")
	e.bus.PublishNow(models.TopicDecisionReady, e.noTradeDecision(snapshot, strategyID, explanation, metadata))
}

func (e *Engine) noTradeDecision(snapshot *models.MarketDataSnapshot, strategyID, explanation string, metadata map[string]any) *models.FinalDecision {
	now := time.Now().UTC()
	return &models.FinalDecision{
		DecisionID:      fmt.Sprintf("no_trade_%s_%s_%d", snapshot.Instrument, snapshot.Timeframe, now.UnixNano()),
		Instrument:      snapshot.Instrument,
		Timeframe:       snapshot.Timeframe,
		Verdict:         models.VerdictNoTrade,
		EntryType:       "none",
		StrategyID:      strategyID,
		Regime:          snapshot.Regime,
		ExplanationText: explanation,
		Metadata:        metadata,
		CreatedAt:       now,
	}
}

// emitBestDecision runs the second-pass heuristic re-scoring on the winning
// candidate: ML oracle blend, RR/volatility/expectancy/RSI/price-action
// bonuses, adaptive first-seen threshold, then the risk guard gate.
func (e *Engine) emitBestDecision(snapshot *models.MarketDataSnapshot, best candidate) {
	candles := snapshot.Candles
	lastClose := snapshot.LastClose()
	signal := best.signal

	window := candles
	if len(window) > 20 {
		window = window[len(window)-20:]
	}
	closes := snapshot.Closes()
	windowCloses := closes
	if len(windowCloses) > 20 {
		windowCloses = windowCloses[len(windowCloses)-20:]
	}
	volatility := calculate.StdDev(windowCloses)
	volPercentile := e.volatilityPercentile(snapshot.Instrument, volatility)

	sl, tp := signal.StopLossPrice, signal.TakeProfitPrice
	riskDist := lastClose - sl
	if riskDist < 0 {
		riskDist = -riskDist
	}
	if riskDist < 1e-6 {
		riskDist = 1e-6
	}
	rewardDist := tp - lastClose
	if rewardDist < 0 {
		rewardDist = -rewardDist
	}
	rr := rewardDist / riskDist

	atr := calculate.CalculateATR(window, 14)
	slDistATR := 0.0
	if atr > 0 {
		slDistATR = riskDist / atr
	}

	directionSign := 1
	if signal.SignalType == models.SignalSell {
		directionSign = -1
	}
	sma50 := calculate.CalculateSMA(closes, 50)
	trendBias := -1
	if lastClose > sma50 {
		trendBias = 1
	}
	session := currentSession(time.Now().UTC())

	mlResult := e.oracle.Evaluate(context.Background(), ml.EvaluateRequest{
		Instrument: snapshot.Instrument,
		Timeframe:  snapshot.Timeframe,
		StrategyID: best.strategy.ID(),
		Features: map[string]any{
			"strategy_type":         best.strategy.ID(),
			"direction_sign":        directionSign,
			"rr":                    rr,
			"confidence":            signal.Confidence,
			"expectancy_r":          best.expectancy,
			"sl_distance_atr":       slDistATR,
			"regime":                string(snapshot.Regime),
			"volatility_percentile": volPercentile,
			"htf_bias":              trendBias,
			"news_proximity":        snapshot.TimeToNewsMin,
			"session":               session,
		},
	})

	if mlResult.Blacklisted {
		e.logger.Info().
			Str("strategy", best.strategy.ID()).
			Str("reason", mlResult.Reason).
			Msg("setup blacklisted by oracle")
		e.emitNoTrade(snapshot, best.strategy.ID(), "setup blacklisted by ML oracle: "+mlResult.Reason, nil)
		return
	}
	if mc := mlResult.Adjustments.MinConfidence; mc != nil && signal.Confidence < *mc {
		e.emitNoTrade(snapshot, best.strategy.ID(),
			fmt.Sprintf("confidence %.0f below oracle minimum %.0f", signal.Confidence, *mc), nil)
		return
	}
	if mr := mlResult.Adjustments.MinRR; mr != nil && rr < *mr {
		e.emitNoTrade(snapshot, best.strategy.ID(),
			fmt.Sprintf("RR %.2f below oracle minimum %.2f", rr, *mr), nil)
		return
	}

	score := signal.Confidence
	var reasons []string

	if mlResult.Score > 0 {
		adjustment := (mlResult.Score - 50) * 0.5
		score += adjustment
		reasons = append(reasons, fmt.Sprintf("ML adjustment (%+.1f)", adjustment))
	}
	if rr >= 2.0 {
		score += 5
		reasons = append(reasons, "high R:R (>2.0, +5)")
	}
	if rr >= 3.0 {
		score += 5
		reasons = append(reasons, "very good R:R (>3.0, +5)")
	}
	if volatility >= 0.02 {
		score += 5
		reasons = append(reasons, "elevated market volatility (+5)")
	}
	if best.expectancy >= 0.5 {
		score += 10
		reasons = append(reasons, "very strong historical expectancy (+10)")
	} else if best.expectancy >= 0.2 {
		score += 5
		reasons = append(reasons, "good historical expectancy (+5)")
	}
	if mlResult.Score >= 70 {
		score += 10
		reasons = append(reasons, "confirmed by ML oracle (+10)")
	}

	rsi := calculate.CalculateRSI(closes, 14)
	isLong := signal.SignalType == models.SignalBuy
	switch {
	case rsi >= 40 && rsi <= 60:
		score += 5
		reasons = append(reasons, fmt.Sprintf("RSI neutral (%.1f, +5)", rsi))
	case isLong && rsi < 70:
		score += 2
		reasons = append(reasons, fmt.Sprintf("RSI safe (%.1f, +2)", rsi))
	case isLong:
		score -= 5
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f, -5)", rsi))
	case !isLong && rsi > 30:
		score += 2
		reasons = append(reasons, fmt.Sprintf("RSI safe (%.1f, +2)", rsi))
	default:
		score -= 5
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f, -5)", rsi))
	}

	direction := signal.Direction()
	if len(candles) > 0 && calculate.IsPinbar(candles[len(candles)-1], direction) {
		score += 5
		reasons = append(reasons, "pinbar agrees with direction (+5)")
	}

	if score > 99 {
		score = 99
	}

	firstTime := !e.seenInstruments[snapshot.Instrument]
	e.seenInstruments[snapshot.Instrument] = true
	minScore := knownMinScore
	if firstTime {
		minScore = firstSeenMinScore
	}
	if score < minScore {
		e.logger.Debug().
			Float64("score", score).
			Float64("min_score", minScore).
			Str("instrument", snapshot.Instrument).
			Msg("best score below adaptive threshold")
		e.emitNoTrade(snapshot, best.strategy.ID(),
			fmt.Sprintf("score %.0f below threshold %.0f", score, minScore), nil)
		return
	}

	if !e.guard.CanOpen(snapshot.Instrument) {
		e.logger.Warn().
			Str("instrument", snapshot.Instrument).
			Msg("risk guard blocked trade, daily limit reached")
		decision := e.noTradeDecision(snapshot, "risk_guard",
			"risk guard: daily trade limit reached",
			map[string]any{"risk_blocked": true, "reason": "daily_limit_reached"})
		e.bus.PublishNow(models.TopicDecisionReady, decision)
		return
	}
	e.guard.Register(snapshot.Instrument)

	sizing := risk.CalculateUnits(risk.SizingInput{
		EntryPrice:     lastClose,
		StopLossPrice:  sl,
		AccountBalance: e.cfg.AccountBalance,
		RiskPercent:    e.cfg.RiskPerTradePercent,
	})

	metadata := map[string]any{
		"suggested_units": sizing.Units,
		"session":         session,
	}
	if mlResult.Reason != "" {
		metadata["ml_reason"] = mlResult.Reason
	}
	if mlResult.Adjustments.MinConfidence != nil || mlResult.Adjustments.MinRR != nil {
		metadata["ml_parameter_adjustments"] = mlResult.Adjustments
	}

	explanation := signal.Reason
	if len(reasons) > 0 {
		explanation += ". Extra factors: " + joinReasons(reasons)
	}

	verdict := models.VerdictBuy
	if direction == models.DirectionShort {
		verdict = models.VerdictSell
	}
	now := time.Now().UTC()
	decision := &models.FinalDecision{
		// nanosecond stamp keeps ids unique when the same setup fires
		// twice within a second
		DecisionID:      fmt.Sprintf("%s_%s_%s_%d", best.strategy.ID(), snapshot.Instrument, snapshot.Timeframe, now.UnixNano()),
		Instrument:      snapshot.Instrument,
		Timeframe:       snapshot.Timeframe,
		Verdict:         verdict,
		Direction:       direction,
		EntryType:       "market",
		EntryPrice:      lastClose,
		SLPrice:         sl,
		TPPrice:         tp,
		RR:              rr,
		Confidence:      score,
		StrategyID:      best.strategy.ID(),
		Regime:          snapshot.Regime,
		ExpectancyR:     best.expectancy,
		ExplanationText: explanation,
		Metadata:        metadata,
		CreatedAt:       now,
	}

	e.logger.Info().
		Str("decision_id", decision.DecisionID).
		Str("instrument", decision.Instrument).
		Str("verdict", string(decision.Verdict)).
		Float64("confidence", decision.Confidence).
		Float64("rr", decision.RR).
		Msg("decision ready")
	e.bus.PublishNow(models.TopicDecisionReady, decision)
}

// volatilityPercentile ranks the current volatility against the last 500
// samples for the instrument. Under 20 samples it assumes average.
func (e *Engine) volatilityPercentile(instrument string, current float64) float64 {
	history := append(e.volHistory[instrument], current)
	if len(history) > maxVolHistory {
		history = history[len(history)-maxVolHistory:]
	}
	e.volHistory[instrument] = history

	if len(history) < 20 {
		return 0.5
	}
	below := 0
	for _, v := range history {
		if v < current {
			below++
		}
	}
	return float64(below) / float64(len(history))
}

// currentSession names the trading session for a UTC timestamp.
func currentSession(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 22 || hour < 8:
		return "Asian"
	case hour < 13:
		return "London"
	case hour < 16:
		return "London/NY"
	case hour < 21:
		return "New York"
	default:
		return "Late NY"
	}
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
