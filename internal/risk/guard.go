// Package risk enforces the daily trade limits and sizes positions.
package risk

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/models"
)

// Journal is the slice of the trade log the guard replays on recovery.
type Journal interface {
	ReadDay(date time.Time) ([]models.TradeRecord, error)
}

// Guard counts trades per UTC day, globally and per instrument. Counters
// reset on date rollover and are rebuilt from the day's journal on
// construction: in-memory state is never trusted after a restart.
type Guard struct {
	maxTradesPerDay              int
	maxTradesPerInstrumentPerDay int

	journal Journal
	now     func() time.Time
	logger  zerolog.Logger

	currentDate   string
	totalForDay   int
	perInstrument map[string]int
}

// NewGuard creates a guard and replays today's journal to rebuild counters.
func NewGuard(maxPerDay, maxPerInstrument int, journal Journal) *Guard {
	g := &Guard{
		maxTradesPerDay:              maxPerDay,
		maxTradesPerInstrumentPerDay: maxPerInstrument,
		journal:                      journal,
		now:                          time.Now,
		logger:                       log.With().Str("component", "risk_guard").Logger(),
		perInstrument:                make(map[string]int),
	}
	g.currentDate = g.today()
	g.Restore()
	return g
}

func (g *Guard) today() string {
	return g.now().UTC().Format("2006-01-02")
}

// ensureToday resets all counters once the UTC date rolls over.
func (g *Guard) ensureToday() {
	today := g.today()
	if today != g.currentDate {
		g.currentDate = today
		g.totalForDay = 0
		g.perInstrument = make(map[string]int)
	}
}

// Restore rebuilds today's counters from the journal. Read failures degrade
// to zero counts; availability wins over strict correctness here.
func (g *Guard) Restore() {
	g.ensureToday()
	if g.journal == nil {
		return
	}

	records, err := g.journal.ReadDay(g.now().UTC())
	if err != nil {
		g.logger.Error().Err(err).Msg("journal replay failed, counters start at zero")
		return
	}

	total := 0
	perInstrument := make(map[string]int)
	for _, record := range records {
		if record.Instrument == "" {
			continue
		}
		total++
		perInstrument[record.Instrument]++
	}

	g.totalForDay = total
	g.perInstrument = perInstrument
	if total > 0 {
		g.logger.Info().Int("trades", total).Msg("risk counters restored from journal")
	}
}

// CanOpen reports whether another trade fits under today's limits.
func (g *Guard) CanOpen(instrument string) bool {
	g.ensureToday()
	if g.totalForDay >= g.maxTradesPerDay {
		return false
	}
	if g.perInstrument[instrument] >= g.maxTradesPerInstrumentPerDay {
		return false
	}
	return true
}

// Register counts a newly opened trade against today's limits.
func (g *Guard) Register(instrument string) {
	g.ensureToday()
	g.totalForDay++
	g.perInstrument[instrument]++
}
