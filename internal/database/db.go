// Package database archives decisions and completed trades to PostgreSQL.
// The archive is optional; without a DATABASE_URL the bot runs on files only.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/fxpilot/advisor/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New opens a PostgreSQL connection and prepares the schema.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			decision_id TEXT PRIMARY KEY,
			instrument TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			verdict TEXT NOT NULL,
			direction TEXT,
			entry_price DOUBLE PRECISION,
			sl_price DOUBLE PRECISION,
			tp_price DOUBLE PRECISION,
			rr DOUBLE PRECISION,
			confidence DOUBLE PRECISION,
			strategy_id TEXT,
			regime TEXT,
			explanation TEXT,
			metadata JSONB,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			instrument TEXT NOT NULL,
			direction TEXT NOT NULL,
			opened_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP NOT NULL,
			open_price DOUBLE PRECISION NOT NULL,
			close_price DOUBLE PRECISION NOT NULL,
			units DOUBLE PRECISION NOT NULL,
			profit_loss DOUBLE PRECISION NOT NULL,
			profit_loss_r DOUBLE PRECISION NOT NULL,
			strategy_id TEXT,
			regime TEXT,
			close_reason TEXT NOT NULL
		)
	`)
	return err
}

// SaveDecision archives a final decision. Replays of the same decision ID
// are ignored.
func (db *DB) SaveDecision(decision *models.FinalDecision) error {
	metadata, err := json.Marshal(decision.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO decisions (
			decision_id, instrument, timeframe, verdict, direction,
			entry_price, sl_price, tp_price, rr, confidence,
			strategy_id, regime, explanation, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (decision_id) DO NOTHING
	`,
		decision.DecisionID, decision.Instrument, decision.Timeframe,
		string(decision.Verdict), string(decision.Direction),
		decision.EntryPrice, decision.SLPrice, decision.TPPrice,
		decision.RR, decision.Confidence, decision.StrategyID,
		string(decision.Regime), decision.ExplanationText, metadata,
		decision.CreatedAt)

	return err
}

// SaveTrade archives a completed trade.
func (db *DB) SaveTrade(record models.TradeRecord) error {
	_, err := db.Exec(`
		INSERT INTO trades (
			trade_id, instrument, direction, opened_at, closed_at,
			open_price, close_price, units, profit_loss, profit_loss_r,
			strategy_id, regime, close_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (trade_id) DO NOTHING
	`,
		record.TradeID, record.Instrument, string(record.Direction),
		record.OpenedAt, record.ClosedAt, record.OpenPrice, record.ClosePrice,
		record.Units, record.ProfitLoss, record.ProfitLossR,
		record.StrategyID, string(record.Regime), string(record.CloseReason))

	return err
}

// StrategyStats summarises archived trades for one strategy.
type StrategyStats struct {
	StrategyID string
	Trades     int
	Wins       int
	AvgProfitR float64
}

// GetStrategyStats aggregates the trade archive per strategy.
func (db *DB) GetStrategyStats() ([]StrategyStats, error) {
	rows, err := db.Query(`
		SELECT strategy_id, COUNT(*),
			COUNT(*) FILTER (WHERE profit_loss_r > 0),
			COALESCE(AVG(profit_loss_r), 0)
		FROM trades
		GROUP BY strategy_id
		ORDER BY strategy_id
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var stats []StrategyStats
	for rows.Next() {
		var s StrategyStats
		if err := rows.Scan(&s.StrategyID, &s.Trades, &s.Wins, &s.AvgProfitR); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
