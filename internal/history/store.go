// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package history keeps the bounded, durable log of training and evaluation
// outcomes.
//
// The store retains only the most recent N records with FIFO eviction and
// persists the full list on every append as a JSON file, so a process
// restart does not lose history. The in-memory copy stays authoritative for
// the running process; persistence failures are logged, not propagated.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Record is one immutable training/evaluation outcome.
type Record struct {
	Accuracy    float64   `json:"accuracy"`
	ErrorMetric float64   `json:"error_metric"`
	Timestamp   time.Time `json:"timestamp"`
	SamplesUsed int       `json:"samples_used"`
}

// DefaultBaseline is the comparison record used when no history exists.
var DefaultBaseline = Record{Accuracy: 0.5, ErrorMetric: 1000}

// Store is a bounded, durable performance history. Safe for concurrent use.
type Store struct {
	path   string
	limit  int
	logger zerolog.Logger

	mu      sync.RWMutex
	records []Record
}

// NewStore creates a store persisting to path, retaining at most limit
// records. Existing history at path is loaded; a missing file is not an
// error, a corrupt file is.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(path string, limit int, logger zerolog.Logger) (*Store, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history: limit must be positive, got %d", limit)
	}

	s := &Store{
		path:   path,
		limit:  limit,
		logger: logger.With().Str("component", "history").Logger(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads persisted history from disk.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("history: read %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("history: parse %s: %w", s.path, err)
	}

	if len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	s.records = records

	s.logger.Debug().Int("records", len(records)).Msg("loaded performance history")
	return nil
}

// Append adds a record, evicting the oldest beyond the retention limit, and
// persists the full list. Persistence failure is logged as a warning; the
// in-memory state remains authoritative.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	if len(s.records) > s.limit {
		s.records = s.records[len(s.records)-s.limit:]
	}

	if err := s.persistLocked(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist performance history")
	}
}

// persistLocked writes the bounded list atomically (temp file + rename).
// Must be called with mu held.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close history: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Latest returns the most recent record, or DefaultBaseline when empty.
func (s *Store) Latest() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return DefaultBaseline
	}
	return s.records[len(s.records)-1]
}

// RecentMean returns the mean accuracy over the last k records, or over all
// records if fewer exist. Returns 0 when the store is empty.
func (s *Store) RecentMean(k int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if n == 0 || k <= 0 {
		return 0
	}
	if k > n {
		k = n
	}

	var sum float64
	for _, r := range s.records[n-k:] {
		sum += r.Accuracy
	}
	return sum / float64(k)
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the retained records, oldest first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
