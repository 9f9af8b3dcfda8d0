package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fxpilot/advisor/models"
)

type fakeJournal struct {
	records []models.TradeRecord
	err     error
}

func (f fakeJournal) ReadDay(time.Time) ([]models.TradeRecord, error) {
	return f.records, f.err
}

func TestGuardEnforcesDailyLimits(t *testing.T) {
	guard := NewGuard(2, 1, nil)

	assert.True(t, guard.CanOpen("EUR/USD"))
	guard.Register("EUR/USD")

	assert.False(t, guard.CanOpen("EUR/USD"), "per-instrument limit reached")
	assert.True(t, guard.CanOpen("GBP/USD"), "other instruments still allowed")

	guard.Register("GBP/USD")
	assert.False(t, guard.CanOpen("USD/JPY"), "global daily limit reached")
}

func TestGuardResetsOnDateRollover(t *testing.T) {
	guard := NewGuard(1, 1, nil)
	current := time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC)
	guard.now = func() time.Time { return current }
	guard.currentDate = guard.today()

	guard.Register("EUR/USD")
	assert.False(t, guard.CanOpen("EUR/USD"))

	current = current.Add(20 * time.Minute) // past UTC midnight
	assert.True(t, guard.CanOpen("EUR/USD"), "counters reset on the new day")
}

func TestGuardRestoresCountersFromJournal(t *testing.T) {
	journal := fakeJournal{records: []models.TradeRecord{
		{TradeID: "t1", Instrument: "EUR/USD"},
		{TradeID: "t2", Instrument: "EUR/USD"},
		{TradeID: "t3", Instrument: "GBP/USD"},
	}}

	guard := NewGuard(10, 2, journal)

	assert.False(t, guard.CanOpen("EUR/USD"), "journal already holds two EUR/USD trades")
	assert.True(t, guard.CanOpen("GBP/USD"))
	assert.True(t, guard.CanOpen("USD/JPY"))
}

func TestGuardRestoreIsIdempotent(t *testing.T) {
	journal := fakeJournal{records: []models.TradeRecord{
		{TradeID: "t1", Instrument: "EUR/USD"},
	}}
	guard := NewGuard(2, 2, journal)

	guard.Restore()
	guard.Restore()

	// replays rebuild from scratch instead of accumulating
	assert.True(t, guard.CanOpen("EUR/USD"))
	guard.Register("EUR/USD")
	assert.False(t, guard.CanOpen("EUR/USD"))
}

func TestGuardJournalErrorDegradesToZeroCounts(t *testing.T) {
	guard := NewGuard(1, 1, fakeJournal{err: errors.New("disk gone")})
	assert.True(t, guard.CanOpen("EUR/USD"))
}

func TestCalculateUnits(t *testing.T) {
	result := CalculateUnits(SizingInput{
		EntryPrice:     1.1050,
		StopLossPrice:  1.1000,
		AccountBalance: 10000,
		RiskPercent:    1.0,
	})

	assert.InDelta(t, 0.005, result.StopDistance, 1e-9)
	assert.InDelta(t, 100.0, result.RiskAmount, 1e-9)
	assert.Equal(t, 20000.0, result.Units)
}

func TestCalculateUnitsFloorsTinyBalances(t *testing.T) {
	result := CalculateUnits(SizingInput{
		EntryPrice:     1.1050,
		StopLossPrice:  1.1000,
		AccountBalance: 50,
		RiskPercent:    1.0,
	})
	assert.InDelta(t, 10.0, result.RiskAmount, 1e-9, "balance floored to 1000")
}

func TestCalculateUnitsWithoutStopDistance(t *testing.T) {
	result := CalculateUnits(SizingInput{
		EntryPrice:     1.1050,
		StopLossPrice:  1.1050,
		AccountBalance: 10000,
		RiskPercent:    1.0,
	})
	assert.Equal(t, 1000.0, result.Units, "nominal fallback size")
}

func TestAdjustUnitsForVolatility(t *testing.T) {
	assert.Equal(t, 500.0, AdjustUnitsForVolatility(1000, 2.0), "halved in turbulent markets")
	assert.Equal(t, 1200.0, AdjustUnitsForVolatility(1000, 0.5), "bumped in quiet markets")
	assert.Equal(t, 1000.0, AdjustUnitsForVolatility(1000, 1.0))
}
