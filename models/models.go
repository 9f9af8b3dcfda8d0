package models

import (
	"time"
)

// Regime classifies current market conditions
type Regime string

const (
	RegimeTrend          Regime = "TREND"
	RegimeRange          Regime = "RANGE"
	RegimeHighVolatility Regime = "HIGH_VOLATILITY"
	RegimeLowLiquidity   Regime = "LOW_LIQUIDITY"
	RegimeChaos          Regime = "CHAOS"
	RegimeUnknown        Regime = ""
)

// SignalType is the direction a strategy proposes
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalFlat SignalType = "FLAT"
)

// TradeDirection is the side of an open position
type TradeDirection string

const (
	DirectionLong  TradeDirection = "LONG"
	DirectionShort TradeDirection = "SHORT"
)

// DecisionVerdict is the final call carried by a FinalDecision
type DecisionVerdict string

const (
	VerdictBuy     DecisionVerdict = "BUY"
	VerdictSell    DecisionVerdict = "SELL"
	VerdictNoTrade DecisionVerdict = "NO_TRADE"
)

// ScoreVerdict is the outcome of the scoring pipeline for one signal
type ScoreVerdict string

const (
	ScoreTrade     ScoreVerdict = "TRADE"
	ScoreWatchlist ScoreVerdict = "WATCHLIST"
	ScoreIgnore    ScoreVerdict = "IGNORE"
)

// CloseReason explains why a position left the book
type CloseReason string

const (
	CloseTPHit  CloseReason = "TP_HIT"
	CloseSLHit  CloseReason = "SL_HIT"
	CloseManual CloseReason = "MANUAL_USER"
)

// NewsImpact rates an upcoming calendar event
type NewsImpact string

const (
	NewsImpactHigh   NewsImpact = "High"
	NewsImpactMedium NewsImpact = "Medium"
	NewsImpactLow    NewsImpact = "Low"
	NewsImpactNone   NewsImpact = ""
)

// Candle represents a single price candle
type Candle struct {
	Instrument string    `json:"instrument"`
	Timeframe  string    `json:"timeframe"`
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume,omitempty"`
}

// MarketDataSnapshot is one poll cycle's view of an instrument.
// Candles are ordered oldest to newest. The core treats it as read-only
// except for the news fields, which the orchestrator annotates.
type MarketDataSnapshot struct {
	Instrument    string     `json:"instrument"`
	Timeframe     string     `json:"timeframe"`
	Candles       []Candle   `json:"candles"`
	Spread        float64    `json:"spread,omitempty"`
	Regime        Regime     `json:"regime,omitempty"`
	NewsImpact    NewsImpact `json:"news_impact,omitempty"`
	TimeToNewsMin float64    `json:"time_to_news_min,omitempty"`
	HasNews       bool       `json:"has_news,omitempty"`
}

// LastClose returns the most recent closing price, or 0 without candles.
func (s *MarketDataSnapshot) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Closes extracts the closing price series.
func (s *MarketDataSnapshot) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// StrategySignal is one strategy's proposal for a snapshot. Confidence is
// overwritten by the orchestrator with the computed score; everything else
// is immutable after creation.
type StrategySignal struct {
	StrategyID      string     `json:"strategy_id"`
	Instrument      string     `json:"instrument"`
	SignalType      SignalType `json:"signal_type"`
	Confidence      float64    `json:"confidence"`
	StopLossPrice   float64    `json:"stop_loss_price"`
	TakeProfitPrice float64    `json:"take_profit_price"`
	Reason          string     `json:"reason"`
}

// Direction maps the signal type onto a trade side.
func (s *StrategySignal) Direction() TradeDirection {
	if s.SignalType == SignalSell {
		return DirectionShort
	}
	return DirectionLong
}

// ScoreComponent is one scoring stage's contribution
type ScoreComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason"`
}

// WeightedScore returns score x weight.
func (c ScoreComponent) WeightedScore() float64 {
	return c.Score * c.Weight
}

// TradeScore aggregates all stage components for one signal
type TradeScore struct {
	TotalScore       float64          `json:"total_score"`
	RawScore         float64          `json:"raw_score"`
	MaxPossibleScore float64          `json:"max_possible_score"`
	Components       []ScoreComponent `json:"components"`
	Verdict          ScoreVerdict     `json:"verdict"`
}

// FinalDecision is the advisory output of the strategy engine. Immutable;
// cached by the portfolio manager keyed by DecisionID until consumed or
// expired by age.
type FinalDecision struct {
	DecisionID      string          `json:"decision_id"`
	Instrument      string          `json:"instrument"`
	Timeframe       string          `json:"timeframe"`
	Verdict         DecisionVerdict `json:"verdict"`
	Direction       TradeDirection  `json:"direction,omitempty"`
	EntryType       string          `json:"entry_type"`
	EntryPrice      float64         `json:"entry_price"`
	SLPrice         float64         `json:"sl_price"`
	TPPrice         float64         `json:"tp_price"`
	RR              float64         `json:"rr"`
	Confidence      float64         `json:"confidence"`
	StrategyID      string          `json:"strategy_id"`
	Regime          Regime          `json:"regime,omitempty"`
	ExpectancyR     float64         `json:"expectancy_r"`
	ExplanationText string          `json:"explanation_text"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ActivePosition is a simulated open trade. Owned exclusively by the
// portfolio manager; the full set is persisted on every mutation.
type ActivePosition struct {
	TradeID        string         `json:"trade_id"`
	Instrument     string         `json:"instrument"`
	Direction      TradeDirection `json:"direction"`
	EntryPrice     float64        `json:"entry_price"`
	SL             float64        `json:"sl"`
	TP             float64        `json:"tp"`
	Units          float64        `json:"units"`
	OpenedAt       time.Time      `json:"opened_at"`
	StrategyID     string         `json:"strategy_id"`
	CurrentPrice   float64        `json:"current_price"`
	CurrentProfitR float64        `json:"current_profit_r"`
}

// ProfitR returns the R-multiple at the given price: signed distance from
// entry divided by the initial stop distance.
func (p *ActivePosition) ProfitR(price float64) float64 {
	distSL := p.EntryPrice - p.SL
	if distSL < 0 {
		distSL = -distSL
	}
	if distSL == 0 {
		return 0
	}
	raw := price - p.EntryPrice
	if p.Direction == DirectionShort {
		raw = p.EntryPrice - price
	}
	return raw / distSL
}

// TradeRecord is the append-only artifact of a closed trade
type TradeRecord struct {
	TradeID     string         `json:"trade_id"`
	Instrument  string         `json:"instrument"`
	Direction   TradeDirection `json:"direction"`
	OpenedAt    time.Time      `json:"opened_at"`
	ClosedAt    time.Time      `json:"closed_at"`
	OpenPrice   float64        `json:"open_price"`
	ClosePrice  float64        `json:"close_price"`
	Units       float64        `json:"units"`
	ProfitLoss  float64        `json:"profit_loss"`
	ProfitLossR float64        `json:"profit_loss_r"`
	StrategyID  string         `json:"strategy_id"`
	Regime      Regime         `json:"regime,omitempty"`
	CloseReason CloseReason    `json:"close_reason"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
