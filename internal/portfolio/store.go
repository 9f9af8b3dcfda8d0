package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxpilot/advisor/models"
)

// Store persists the active position set as a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a torn file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted positions. A missing file is an empty book.
func (s *Store) Load() (map[string]*models.ActivePosition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*models.ActivePosition{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var positions []*models.ActivePosition
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	book := make(map[string]*models.ActivePosition, len(positions))
	for _, p := range positions {
		book[p.TradeID] = p
	}
	return book, nil
}

// Save writes the full position set atomically.
func (s *Store) Save(book map[string]*models.ActivePosition) error {
	positions := make([]*models.ActivePosition, 0, len(book))
	for _, p := range book {
		positions = append(positions, p)
	}

	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
