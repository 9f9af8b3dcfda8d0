package database

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/models"
)

// Recorder mirrors decisions and completed trades into the archive. Archive
// failures are logged and dropped, the trading flow never waits on Postgres.
type Recorder struct {
	db     *DB
	logger zerolog.Logger
}

// NewRecorder subscribes the archive to the bus.
func NewRecorder(db *DB, b *bus.Bus) *Recorder {
	r := &Recorder{
		db:     db,
		logger: log.With().Str("component", "archive").Logger(),
	}
	b.Subscribe(models.TopicDecisionReady, r.onDecision)
	b.Subscribe(models.TopicTradeCompleted, r.onTradeCompleted)
	return r
}

func (r *Recorder) onDecision(event models.Event) {
	decision, ok := event.Payload.(*models.FinalDecision)
	if !ok {
		return
	}
	if err := r.db.SaveDecision(decision); err != nil {
		r.logger.Error().Err(err).Str("decision_id", decision.DecisionID).Msg("archive decision failed")
	}
}

func (r *Recorder) onTradeCompleted(event models.Event) {
	record, ok := event.Payload.(models.TradeRecord)
	if !ok {
		return
	}
	if err := r.db.SaveTrade(record); err != nil {
		r.logger.Error().Err(err).Str("trade_id", record.TradeID).Msg("archive trade failed")
	}
}
