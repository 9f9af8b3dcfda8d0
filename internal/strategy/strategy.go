// Package strategy contains the signal generators. Each strategy is
// stateless per call: it looks at one snapshot and either proposes a signal
// with stop and target attached or returns nil. Regime mismatch is not a
// hard filter here; the scoring stage penalizes it instead.
package strategy

import (
	"github.com/fxpilot/advisor/models"
)

// Strategy turns a market data snapshot into an optional signal.
type Strategy interface {
	ID() string
	Evaluate(snapshot *models.MarketDataSnapshot) *models.StrategySignal
}

const maxConfidence = 95.0

func capConfidence(confidence float64) float64 {
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}
