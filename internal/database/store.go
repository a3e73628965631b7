// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package database provides the SQLite-backed store of user behavior events
// and the training data queries built on top of it.
//
// Events are append-only rows in user_behaviors. Training extracts enrich
// each event with per-user aggregates computed over that user's full event
// history at query time, so no derived columns need to be maintained.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/shopsight/shopsight/internal/features"
	"github.com/shopsight/shopsight/internal/metrics"
)

// schema creates the behavior event table and its query indexes.
// created_at is stored as unix nanoseconds for exact ordering.
const schema = `
CREATE TABLE IF NOT EXISTS user_behaviors (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id          INTEGER NOT NULL,
	action           TEXT    NOT NULL,
	product_id       INTEGER NOT NULL DEFAULT 0,
	session_duration REAL    NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_behaviors_created_at
	ON user_behaviors (created_at);

CREATE INDEX IF NOT EXISTS idx_user_behaviors_user_created
	ON user_behaviors (user_id, created_at);
`

// Store wraps the SQLite connection with behavior event operations.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating as needed) the behavior database at path and applies
// the schema. Use ":memory:" for an in-memory database. A positive
// busyTimeout sets the SQLite busy_timeout pragma.
func Open(path string, busyTimeout time.Duration, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc.org/sqlite serializes writes internally; a single connection
	// avoids SQLITE_BUSY on concurrent access.
	db.SetMaxOpenConns(1)

	pragmas := "PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"
	if busyTimeout > 0 {
		pragmas += fmt.Sprintf(" PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())
	}
	if _, err := db.Exec(pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBehavior records one behavior event.
func (s *Store) InsertBehavior(ctx context.Context, userID int64, action string, productID int64, sessionDuration float64, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_behaviors (user_id, action, product_id, session_duration, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, action, productID, sessionDuration, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert behavior: %w", err)
	}
	metrics.BehaviorEvents.WithLabelValues(action).Inc()
	return nil
}

// CountNewSamplesSince returns the number of behavior events recorded
// strictly after the given time.
func (s *Store) CountNewSamplesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_behaviors WHERE created_at > ?`,
		since.UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count new samples: %w", err)
	}
	return count, nil
}

// extractQuery selects the most recent events enriched with per-user
// running aggregates over each user's history up to that event: purchase
// count, cart adds, page views, and average session duration.
const extractQuery = `
SELECT
	ub.user_id,
	ub.action,
	ub.product_id,
	ub.session_duration,
	ub.created_at,
	COALESCE(SUM(CASE WHEN hist.action = 'purchase' THEN 1 ELSE 0 END), 0) AS purchase_count,
	COALESCE(SUM(CASE WHEN hist.action = 'cart_add' THEN 1 ELSE 0 END), 0) AS cart_adds,
	COALESCE(SUM(CASE WHEN hist.action = 'view' THEN 1 ELSE 0 END), 0)     AS page_views,
	COALESCE(AVG(hist.session_duration), 0)                                AS avg_session_duration
FROM user_behaviors ub
LEFT JOIN user_behaviors hist ON hist.user_id = ub.user_id
	AND hist.created_at <= ub.created_at
WHERE ub.created_at > ?
GROUP BY ub.id
ORDER BY ub.created_at DESC
LIMIT ?
`

// LoadTrainingExtract returns up to limit recent events (newest first)
// recorded after since, each enriched with per-user behavioral aggregates.
func (s *Store) LoadTrainingExtract(ctx context.Context, since time.Time, limit int) ([]features.BehaviorRecord, error) {
	return s.queryExtract(ctx, since, limit)
}

// LoadValidationWindow returns up to limit events from the recent window
// starting at since, in the same enriched form as training extracts.
func (s *Store) LoadValidationWindow(ctx context.Context, since time.Time, limit int) ([]features.BehaviorRecord, error) {
	return s.queryExtract(ctx, since, limit)
}

func (s *Store) queryExtract(ctx context.Context, since time.Time, limit int) ([]features.BehaviorRecord, error) {
	rows, err := s.db.QueryContext(ctx, extractQuery, since.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("query training extract: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after iteration is not actionable

	var records []features.BehaviorRecord
	for rows.Next() {
		var (
			r         features.BehaviorRecord
			createdAt int64
		)
		if err := rows.Scan(&r.UserID, &r.Action, &r.ProductID, &r.SessionDuration,
			&createdAt, &r.PurchaseCount, &r.CartAdds, &r.PageViews, &r.AvgSessionDuration); err != nil {
			return nil, fmt.Errorf("scan training extract: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training extract: %w", err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("loaded behavior extract")
	return records, nil
}
