// Package scoring ranks candidate signals through a fixed pipeline of
// weighted stages. Two stages are critical: scoring zero or below in either
// vetoes the setup regardless of everything else.
package scoring

import (
	"github.com/fxpilot/advisor/models"
)

const (
	tradeThreshold     = 70.0
	watchlistThreshold = 45.0
)

// Engine runs every stage in order and aggregates a TradeScore.
type Engine struct {
	stages []Stage
}

// NewEngine creates the engine with the standard eleven stages.
func NewEngine() *Engine {
	return &Engine{
		stages: []Stage{
			DataSanityStage{},
			RiskRewardStage{},
			MarketRegimeStage{},
			TrendBiasStage{},
			MomentumStage{},
			MeanReversionStage{},
			VolatilityContextStage{},
			ConfluenceStage{},
			ExpectancyStage{},
			TimingStage{},
			NewsRiskStage{},
		},
	}
}

// Evaluate scores one signal against a snapshot.
func (e *Engine) Evaluate(snapshot *models.MarketDataSnapshot, signal *models.StrategySignal) models.TradeScore {
	components := make([]models.ScoreComponent, 0, len(e.stages))
	rawScore := 0.0
	maxPossible := 0.0
	veto := false

	for _, stage := range e.stages {
		maxPossible += 10.0 * stage.Weight()
		component := stage.Evaluate(snapshot, signal)
		components = append(components, component)
		rawScore += component.WeightedScore()

		if stage.Critical() && component.Score <= 0 {
			veto = true
		}
	}

	normalized := 0.0
	if maxPossible > 0 {
		normalized = rawScore / maxPossible * 100.0
	}
	if normalized < 0 {
		normalized = 0
	} else if normalized > 100 {
		normalized = 100
	}

	verdict := models.ScoreIgnore
	if !veto {
		switch {
		case normalized >= tradeThreshold:
			verdict = models.ScoreTrade
		case normalized >= watchlistThreshold:
			verdict = models.ScoreWatchlist
		}
	}

	return models.TradeScore{
		TotalScore:       normalized,
		RawScore:         rawScore,
		MaxPossibleScore: maxPossible,
		Components:       components,
		Verdict:          verdict,
	}
}
