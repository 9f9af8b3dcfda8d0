package risk

import (
	"math"
)

// SizingInput carries what position sizing needs from a candidate trade.
type SizingInput struct {
	EntryPrice     float64
	StopLossPrice  float64
	AccountBalance float64
	RiskPercent    float64
}

// SizingResult holds the suggested size and its risk geometry.
type SizingResult struct {
	Units          float64 `json:"units"`
	RiskAmount     float64 `json:"risk_amount"`
	StopDistance   float64 `json:"stop_distance"`
	AccountRiskPct float64 `json:"account_risk_pct"`
}

// CalculateUnits determines position size so that a stop-out loses at most
// the configured percentage of the account.
func CalculateUnits(input SizingInput) SizingResult {
	balance := math.Max(input.AccountBalance, 1000.0)
	riskAmount := balance * input.RiskPercent / 100.0
	stopDistance := math.Abs(input.EntryPrice - input.StopLossPrice)

	var units float64
	if stopDistance <= 0 {
		// no usable stop distance, fall back to a nominal size
		units = riskAmount * 10
	} else {
		units = riskAmount / stopDistance
	}

	return SizingResult{
		Units:          math.Trunc(units),
		RiskAmount:     riskAmount,
		StopDistance:   stopDistance,
		AccountRiskPct: input.RiskPercent,
	}
}

// AdjustUnitsForVolatility shrinks size in turbulent markets and allows a
// modest bump in quiet ones.
func AdjustUnitsForVolatility(units float64, volatilityRatio float64) float64 {
	if volatilityRatio > 1.5 {
		return units / volatilityRatio
	}
	if volatilityRatio < 0.7 {
		return units * 1.2
	}
	return units
}
