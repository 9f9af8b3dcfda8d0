// Package tradelog owns the daily trade journal: one JSON array per UTC day
// under trades/{YYYY-MM-DD}_trades.json. The file doubles as the crash
// recovery source for the risk guard and as input for external stats
// collaborators, so records are append-only.
package tradelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/models"
)

// Logger appends closed trades to the daily journal file.
type Logger struct {
	dir    string
	logger zerolog.Logger
}

// NewLogger creates a journal writer rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{
		dir:    dir,
		logger: log.With().Str("component", "tradelog").Logger(),
	}
}

// FilePath returns the journal path for the given UTC date.
func (l *Logger) FilePath(date time.Time) string {
	return filepath.Join(l.dir, date.UTC().Format("2006-01-02")+"_trades.json")
}

// Append adds a record to today's journal. The whole array is rewritten via
// a temp file and rename so a crash cannot leave a torn file behind.
func (l *Logger) Append(record models.TradeRecord) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating trades dir: %w", err)
	}

	path := l.FilePath(time.Now())
	records, err := readRecords(path)
	if err != nil {
		// unreadable journal should not block closing a trade
		l.logger.Error().Err(err).Str("path", path).Msg("journal unreadable, starting fresh")
		records = nil
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}
	return writeAtomic(path, data)
}

// ReadDay loads all records for a UTC date. A missing file yields an empty
// slice.
func (l *Logger) ReadDay(date time.Time) ([]models.TradeRecord, error) {
	return readRecords(l.FilePath(date))
}

// Expectancy averages the realized R-multiple for a strategy/instrument pair
// over the past days of journal history. Returns 0 without closed trades.
func (l *Logger) Expectancy(strategyID, instrument string, days int) float64 {
	sum, count := 0.0, 0
	now := time.Now().UTC()
	for i := 0; i < days; i++ {
		records, err := readRecords(l.FilePath(now.AddDate(0, 0, -i)))
		if err != nil {
			continue
		}
		for _, r := range records {
			if r.StrategyID == strategyID && r.Instrument == instrument {
				sum += r.ProfitLossR
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func readRecords(path string) ([]models.TradeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []models.TradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing journal: %w", err)
	}
	return records, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing journal temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing journal: %w", err)
	}
	return nil
}
