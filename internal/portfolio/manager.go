// Package portfolio tracks simulated positions. It turns accepted decisions
// into open positions, marks them against incoming candles, closes them on
// stop, target or manual request, and survives restarts through the store.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/internal/tradelog"
	"github.com/fxpilot/advisor/models"
)

type cachedDecision struct {
	decision *models.FinalDecision
	cachedAt time.Time
}

// Manager owns the position book and the pending-decision cache.
type Manager struct {
	bus      *bus.Bus
	store    *Store
	journal  *tradelog.Logger
	cacheTTL time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	decisions map[string]cachedDecision
	positions map[string]*models.ActivePosition
}

// NewManager loads the persisted book and subscribes to the bus.
func NewManager(b *bus.Bus, store *Store, journal *tradelog.Logger, cacheTTL time.Duration) (*Manager, error) {
	positions, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("restore positions: %w", err)
	}

	m := &Manager{
		bus:       b,
		store:     store,
		journal:   journal,
		cacheTTL:  cacheTTL,
		logger:    log.With().Str("component", "portfolio").Logger(),
		decisions: make(map[string]cachedDecision),
		positions: positions,
	}
	if len(positions) > 0 {
		m.logger.Info().Int("count", len(positions)).Msg("restored open positions")
	}

	b.Subscribe(models.TopicDecisionReady, m.onDecisionReady)
	b.Subscribe(models.TopicUserDecision, m.onUserDecision)
	b.Subscribe(models.TopicMarketData, m.onMarketData)
	b.Subscribe(models.TopicManualCloseRequest, m.onManualClose)
	return m, nil
}

// Positions returns a copy of the open book.
func (m *Manager) Positions() []*models.ActivePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ActivePosition, 0, len(m.positions))
	for _, p := range m.positions {
		clone := *p
		out = append(out, &clone)
	}
	return out
}

func (m *Manager) onDecisionReady(event models.Event) {
	decision, ok := event.Payload.(*models.FinalDecision)
	if !ok {
		return
	}
	if decision.Verdict != models.VerdictBuy && decision.Verdict != models.VerdictSell {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCacheLocked(time.Now())
	m.decisions[decision.DecisionID] = cachedDecision{decision: decision, cachedAt: time.Now()}
	m.logger.Debug().
		Str("decision_id", decision.DecisionID).
		Int("cached", len(m.decisions)).
		Msg("decision cached, awaiting user")
}

func (m *Manager) pruneCacheLocked(now time.Time) {
	for id, entry := range m.decisions {
		if now.Sub(entry.cachedAt) > m.cacheTTL {
			delete(m.decisions, id)
		}
	}
}

func (m *Manager) onUserDecision(event models.Event) {
	userDecision, ok := event.Payload.(models.UserDecision)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, found := m.decisions[userDecision.DecisionID]
	if !found {
		m.logger.Warn().
			Str("decision_id", userDecision.DecisionID).
			Str("action", string(userDecision.Action)).
			Msg("decision not in cache, expired or unknown")
		return
	}

	switch userDecision.Action {
	case models.ActionEnter:
		delete(m.decisions, userDecision.DecisionID)
		m.openLocked(entry.decision)
	case models.ActionSkip:
		delete(m.decisions, userDecision.DecisionID)
		m.logger.Info().
			Str("decision_id", userDecision.DecisionID).
			Msg("decision skipped by user")
	default:
		// votes, reminders etc. do not consume the decision
	}
}

func (m *Manager) openLocked(decision *models.FinalDecision) {
	units := metadataUnits(decision.Metadata)
	now := time.Now().UTC()

	// The decision id is the correlation key for the whole position
	// lifecycle: journal rows, TRADE_COMPLETED and the trade archive
	// all join back to it.
	position := &models.ActivePosition{
		TradeID:      decision.DecisionID,
		Instrument:   decision.Instrument,
		Direction:    decision.Direction,
		EntryPrice:   decision.EntryPrice,
		SL:           decision.SLPrice,
		TP:           decision.TPPrice,
		Units:        units,
		OpenedAt:     now,
		StrategyID:   decision.StrategyID,
		CurrentPrice: decision.EntryPrice,
	}
	m.positions[position.TradeID] = position
	m.persistLocked()

	m.logger.Info().
		Str("trade_id", position.TradeID).
		Str("instrument", position.Instrument).
		Str("direction", string(position.Direction)).
		Float64("entry", position.EntryPrice).
		Float64("sl", position.SL).
		Float64("tp", position.TP).
		Float64("units", position.Units).
		Msg("virtual position opened")

	m.bus.PublishNow(models.TopicOrderFilled, models.OrderFilled{
		OrderID:    position.TradeID,
		Instrument: position.Instrument,
		Units:      position.Units,
		Direction:  position.Direction,
		Price:      position.EntryPrice,
		ExecutedAt: now,
		StrategyID: position.StrategyID,
		Confidence: decision.Confidence,
	})
}

func (m *Manager) onMarketData(event models.Event) {
	snapshot, ok := event.Payload.(*models.MarketDataSnapshot)
	if !ok || len(snapshot.Candles) == 0 {
		return
	}
	last := snapshot.Candles[len(snapshot.Candles)-1]

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, position := range m.positions {
		if position.Instrument != snapshot.Instrument {
			continue
		}
		position.CurrentPrice = last.Close
		position.CurrentProfitR = position.ProfitR(last.Close)
		changed = true

		// stop loss wins when both levels sit inside one candle
		if position.Direction == models.DirectionLong {
			if last.Low <= position.SL {
				m.closeLocked(position, position.SL, models.CloseSLHit)
				continue
			}
			if last.High >= position.TP {
				m.closeLocked(position, position.TP, models.CloseTPHit)
			}
		} else {
			if last.High >= position.SL {
				m.closeLocked(position, position.SL, models.CloseSLHit)
				continue
			}
			if last.Low <= position.TP {
				m.closeLocked(position, position.TP, models.CloseTPHit)
			}
		}
	}
	if changed {
		m.persistLocked()
	}
}

func (m *Manager) onManualClose(event models.Event) {
	request, ok := event.Payload.(models.ManualCloseRequest)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if request.TradeID == models.CloseAllTrades {
		for _, position := range m.positions {
			m.closeLocked(position, position.CurrentPrice, models.CloseManual)
		}
		m.persistLocked()
		return
	}

	position, found := m.positions[request.TradeID]
	if !found {
		m.logger.Warn().Str("trade_id", request.TradeID).Msg("manual close for unknown position")
		return
	}
	m.closeLocked(position, position.CurrentPrice, models.CloseManual)
	m.persistLocked()
}

func (m *Manager) closeLocked(position *models.ActivePosition, closePrice float64, reason models.CloseReason) {
	if closePrice == 0 {
		closePrice = position.EntryPrice
	}

	profitR := position.ProfitR(closePrice)
	rawMove := closePrice - position.EntryPrice
	if position.Direction == models.DirectionShort {
		rawMove = position.EntryPrice - closePrice
	}

	record := models.TradeRecord{
		TradeID:     position.TradeID,
		Instrument:  position.Instrument,
		Direction:   position.Direction,
		OpenedAt:    position.OpenedAt,
		ClosedAt:    time.Now().UTC(),
		OpenPrice:   position.EntryPrice,
		ClosePrice:  closePrice,
		Units:       position.Units,
		ProfitLoss:  rawMove * position.Units,
		ProfitLossR: profitR,
		StrategyID:  position.StrategyID,
		CloseReason: reason,
	}

	delete(m.positions, position.TradeID)

	if err := m.journal.Append(record); err != nil {
		m.logger.Error().Err(err).Str("trade_id", record.TradeID).Msg("journal append failed")
	}

	m.logger.Info().
		Str("trade_id", record.TradeID).
		Str("reason", string(reason)).
		Float64("close_price", closePrice).
		Float64("profit_r", profitR).
		Msg("position closed")

	m.bus.PublishNow(models.TopicTradeCompleted, record)
}

func (m *Manager) persistLocked() {
	if err := m.store.Save(m.positions); err != nil {
		m.logger.Error().Err(err).Msg("persist positions failed")
	}
}

// metadataUnits pulls the suggested size out of decision metadata. The value
// may arrive as float64 (JSON) or int depending on who built the decision.
func metadataUnits(metadata map[string]any) float64 {
	raw, ok := metadata["suggested_units"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
