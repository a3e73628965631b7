// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package history

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, limit int) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.json")
	s, err := NewStore(path, limit, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, path
}

func TestStoreEmptyReturnsBaseline(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, 50)

	got := s.Latest()
	if got.Accuracy != DefaultBaseline.Accuracy || got.ErrorMetric != DefaultBaseline.ErrorMetric {
		t.Errorf("Latest() on empty store = %+v, want baseline %+v", got, DefaultBaseline)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStoreAppendAndLatest(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, 50)

	s.Append(Record{Accuracy: 0.7, ErrorMetric: 120, Timestamp: time.Now(), SamplesUsed: 200})
	s.Append(Record{Accuracy: 0.8, ErrorMetric: 90, Timestamp: time.Now(), SamplesUsed: 250})

	latest := s.Latest()
	if latest.Accuracy != 0.8 {
		t.Errorf("Latest().Accuracy = %v, want 0.8", latest.Accuracy)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStoreFIFOEviction(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, 3)

	for i := 0; i < 5; i++ {
		s.Append(Record{Accuracy: float64(i), Timestamp: time.Now()})
	}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}

	records := s.Records()
	if records[0].Accuracy != 2 || records[2].Accuracy != 4 {
		t.Errorf("retained accuracies = [%v, %v, %v], want [2, 3, 4]",
			records[0].Accuracy, records[1].Accuracy, records[2].Accuracy)
	}
}

func TestStorePersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")

	s1, err := NewStore(path, 50, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s1.Append(Record{Accuracy: 0.75, ErrorMetric: 110.5, Timestamp: ts, SamplesUsed: 300})

	s2, err := NewStore(path, 50, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if s2.Len() != 1 {
		t.Fatalf("reloaded Len() = %d, want 1", s2.Len())
	}
	got := s2.Latest()
	if got.Accuracy != 0.75 || got.ErrorMetric != 110.5 || got.SamplesUsed != 300 {
		t.Errorf("reloaded record = %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("reloaded timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestStoreCorruptFileRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path, 50, zerolog.Nop()); err == nil {
		t.Error("NewStore with corrupt file succeeded, want error")
	}
}

func TestStoreLoadTruncatesOverLimit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")

	s1, err := NewStore(path, 10, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		s1.Append(Record{Accuracy: float64(i)})
	}

	s2, err := NewStore(path, 4, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if s2.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s2.Len())
	}
	if got := s2.Records()[0].Accuracy; got != 6 {
		t.Errorf("oldest retained accuracy = %v, want 6", got)
	}
}

func TestStoreRecentMean(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, 50)

	if got := s.RecentMean(5); got != 0 {
		t.Errorf("RecentMean on empty store = %v, want 0", got)
	}

	for _, acc := range []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0} {
		s.Append(Record{Accuracy: acc})
	}

	got := s.RecentMean(5)
	want := (0.6 + 0.7 + 0.8 + 0.9 + 1.0) / 5
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("RecentMean(5) = %v, want %v", got, want)
	}

	// Fewer records than requested uses what exists.
	got = s.RecentMean(100)
	want = (0.5 + 0.6 + 0.7 + 0.8 + 0.9 + 1.0) / 6
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("RecentMean(100) = %v, want %v", got, want)
	}
}

func TestStorePersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	// Point the store at a path whose parent cannot be created.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(filepath.Join(blocker, "history.json"), 50, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	s.Append(Record{Accuracy: 0.9})
	if s.Len() != 1 {
		t.Errorf("Len() after failed persist = %d, want 1", s.Len())
	}
	if s.Latest().Accuracy != 0.9 {
		t.Errorf("Latest().Accuracy = %v, want 0.9", s.Latest().Accuracy)
	}
}

func TestStoreInvalidLimit(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(filepath.Join(t.TempDir(), "h.json"), 0, zerolog.Nop()); err == nil {
		t.Error("NewStore with limit 0 succeeded, want error")
	}
}
