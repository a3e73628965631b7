// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package retrain

import (
	"context"
	"time"

	"github.com/shopsight/shopsight/internal/features"
	"github.com/shopsight/shopsight/internal/history"
	"github.com/shopsight/shopsight/internal/model"
)

// DataProvider supplies behavior events for trigger checks, training
// extracts, and drift validation. Implementations must be safe for
// concurrent use.
type DataProvider interface {
	// CountNewSamplesSince returns the number of behavior events recorded
	// strictly after the given time.
	CountNewSamplesSince(ctx context.Context, since time.Time) (int, error)

	// LoadTrainingExtract returns up to limit recent events recorded after
	// since, newest first, enriched with per-user aggregates. A zero since
	// loads from the beginning of history.
	LoadTrainingExtract(ctx context.Context, since time.Time, limit int) ([]features.BehaviorRecord, error)

	// LoadValidationWindow returns up to limit events from the recent
	// window starting at since, in the same enriched form.
	LoadValidationWindow(ctx context.Context, since time.Time, limit int) ([]features.BehaviorRecord, error)
}

// Trainer trains candidate model sets and evaluates them on held-out data.
type Trainer interface {
	Train(ctx context.Context, table *features.Table) (*model.ArtifactSet, model.Metrics, error)
	Evaluate(ctx context.Context, set *model.ArtifactSet, table *features.Table) (model.Metrics, error)
}

// ArtifactStore persists model artifact sets with backup snapshots.
type ArtifactStore interface {
	// HasProduction reports whether a complete production set exists.
	HasProduction() bool

	// LoadProduction loads the current production set.
	LoadProduction() (*model.ArtifactSet, error)

	// SwapProduction atomically replaces the production set.
	SwapProduction(set *model.ArtifactSet) error

	// Backup snapshots the production set, returning the snapshot path.
	Backup() (string, error)

	// RestoreLatestBackup rolls production back to the newest snapshot.
	// Returns false without error when no snapshots exist.
	RestoreLatestBackup() (bool, error)
}

// MetricStore records the bounded performance history consulted by the
// deploy decision and drift detection.
type MetricStore interface {
	Append(r history.Record)
	Latest() history.Record
	RecentMean(k int) float64
	Len() int
}
