// Package news supplies economic-calendar context for the orchestrator.
// The actual calendar collector is an external collaborator; this package
// defines the lookup surface and a file-backed source for deployments that
// drop a calendar export next to the binary.
package news

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/models"
)

// CalendarSource answers "what is the next relevant event for this
// instrument". ok is false when nothing is scheduled.
type CalendarSource interface {
	ImpactFor(instrument string, now time.Time) (impact models.NewsImpact, minutesToNews float64, ok bool)
}

// NoopSource reports an empty calendar.
type NoopSource struct{}

func (NoopSource) ImpactFor(string, time.Time) (models.NewsImpact, float64, bool) {
	return models.NewsImpactNone, 0, false
}

// CalendarEvent is one scheduled release in the export file.
type CalendarEvent struct {
	Currency string            `json:"currency"`
	Impact   models.NewsImpact `json:"impact"`
	Time     time.Time         `json:"time"`
	Title    string            `json:"title,omitempty"`
}

// FileSource reads a JSON calendar export once and serves lookups from
// memory. An event matches an instrument when its currency appears in the
// symbol (EUR matches EUR/USD).
type FileSource struct {
	events []CalendarEvent
	logger zerolog.Logger
}

// NewFileSource loads the export. A missing file is not an error; it just
// means an empty calendar.
func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{logger: log.With().Str("component", "news").Logger()}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("path", path).Msg("calendar file not found, calendar empty")
			return s, nil
		}
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	if err := json.Unmarshal(data, &s.events); err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}
	s.logger.Info().Int("events", len(s.events)).Msg("calendar loaded")
	return s, nil
}

// ImpactFor returns the nearest upcoming (or just-passed) event for the
// instrument within a +/- 12h horizon, highest impact first on ties.
func (s *FileSource) ImpactFor(instrument string, now time.Time) (models.NewsImpact, float64, bool) {
	const horizon = 12 * time.Hour

	var best *CalendarEvent
	var bestDist time.Duration
	for i := range s.events {
		event := &s.events[i]
		if event.Currency != "" && !strings.Contains(instrument, event.Currency) {
			continue
		}
		dist := event.Time.Sub(now)
		if dist < -horizon || dist > horizon {
			continue
		}
		abs := dist
		if abs < 0 {
			abs = -abs
		}
		if best == nil || abs < bestDist || (abs == bestDist && rank(event.Impact) > rank(best.Impact)) {
			best = event
			bestDist = abs
		}
	}
	if best == nil {
		return models.NewsImpactNone, 0, false
	}
	return best.Impact, best.Time.Sub(now).Minutes(), true
}

func rank(impact models.NewsImpact) int {
	switch impact {
	case models.NewsImpactHigh:
		return 3
	case models.NewsImpactMedium:
		return 2
	case models.NewsImpactLow:
		return 1
	default:
		return 0
	}
}
