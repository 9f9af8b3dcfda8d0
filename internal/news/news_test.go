package news

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxpilot/advisor/models"
)

func writeCalendar(t *testing.T, events []CalendarEvent) string {
	t.Helper()
	data, err := json.Marshal(events)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNoopSourceIsAlwaysQuiet(t *testing.T) {
	impact, minutes, ok := NoopSource{}.ImpactFor("EUR/USD", time.Now())
	assert.Equal(t, models.NewsImpactNone, impact)
	assert.Zero(t, minutes)
	assert.False(t, ok)
}

func TestFileSourceMatchesByCurrency(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	path := writeCalendar(t, []CalendarEvent{
		{Currency: "EUR", Impact: models.NewsImpactHigh, Time: now.Add(10 * time.Minute), Title: "ECB rate decision"},
		{Currency: "USD", Impact: models.NewsImpactMedium, Time: now.Add(5 * time.Hour), Title: "CPI"},
	})

	source, err := NewFileSource(path)
	require.NoError(t, err)

	impact, minutes, ok := source.ImpactFor("EUR/USD", now)
	require.True(t, ok)
	assert.Equal(t, models.NewsImpactHigh, impact)
	assert.InDelta(t, 10.0, minutes, 1e-9)

	impact, _, ok = source.ImpactFor("GBP/JPY", now)
	assert.False(t, ok, "no event touches GBP or JPY")
	assert.Equal(t, models.NewsImpactNone, impact)
}

func TestFileSourceNegativeMinutesAfterRelease(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	path := writeCalendar(t, []CalendarEvent{
		{Currency: "USD", Impact: models.NewsImpactHigh, Time: now.Add(-10 * time.Minute)},
	})

	source, err := NewFileSource(path)
	require.NoError(t, err)

	_, minutes, ok := source.ImpactFor("EUR/USD", now)
	require.True(t, ok)
	assert.InDelta(t, -10.0, minutes, 1e-9)
}

func TestFileSourceIgnoresEventsOutsideHorizon(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	path := writeCalendar(t, []CalendarEvent{
		{Currency: "EUR", Impact: models.NewsImpactHigh, Time: now.Add(48 * time.Hour)},
	})

	source, err := NewFileSource(path)
	require.NoError(t, err)

	_, _, ok := source.ImpactFor("EUR/USD", now)
	assert.False(t, ok)
}

func TestFileSourceMissingFileIsEmptyCalendar(t *testing.T) {
	source, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	_, _, ok := source.ImpactFor("EUR/USD", time.Now())
	assert.False(t, ok)
}

func TestFileSourceRejectsBrokenExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := NewFileSource(path)
	assert.Error(t, err)
}
