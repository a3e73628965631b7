// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package features converts raw behavioral records into fixed-width numeric
// feature tables with derived labels for model training.
//
// Preparation is a pure function: the same input records always produce the
// same table. Missing numeric fields are zero-filled, the churn label is
// derived from purchase activity, and the spending score is clipped to a
// bounded range.
package features

import (
	"math"
	"math/rand"
	"time"
)

// Feature column indices in a prepared table row.
const (
	ColSessionDuration = iota
	ColPurchaseCount
	ColCartAdds
	ColPageViews
	ColAvgSessionDuration

	// NumFeatures is the fixed feature width.
	NumFeatures
)

// ColumnNames lists the feature columns in table order.
var ColumnNames = []string{
	"session_duration",
	"purchase_count",
	"cart_adds",
	"page_views",
	"avg_session_duration",
}

// SpendingScoreMax bounds the derived spending score label.
const SpendingScoreMax = 1000

// BehaviorRecord is one raw behavioral sample with its per-user running
// aggregates, as supplied by the data provider.
type BehaviorRecord struct {
	UserID             int64
	Action             string
	ProductID          int64
	SessionDuration    float64
	CreatedAt          time.Time
	PurchaseCount      float64
	CartAdds           float64
	PageViews          float64
	AvgSessionDuration float64
}

// Table is a fixed-width feature matrix with derived label columns.
type Table struct {
	// Rows holds NumFeatures values per row.
	Rows [][]float64

	// Churn holds the willChurn label per row (1 = no purchase activity).
	Churn []float64

	// Spending holds the clipped spending score label per row.
	Spending []float64
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Prepare converts raw records into a feature table. Missing numeric fields
// (NaN or negative durations) are zero-filled. Deterministic for a given
// input.
func Prepare(records []BehaviorRecord) *Table {
	t := &Table{
		Rows:     make([][]float64, 0, len(records)),
		Churn:    make([]float64, 0, len(records)),
		Spending: make([]float64, 0, len(records)),
	}

	for i := range records {
		r := &records[i]

		row := make([]float64, NumFeatures)
		row[ColSessionDuration] = sanitize(r.SessionDuration)
		row[ColPurchaseCount] = sanitize(r.PurchaseCount)
		row[ColCartAdds] = sanitize(r.CartAdds)
		row[ColPageViews] = sanitize(r.PageViews)
		row[ColAvgSessionDuration] = sanitize(r.AvgSessionDuration)

		churn := 0.0
		if row[ColPurchaseCount] == 0 {
			churn = 1.0
		}

		spending := clip(row[ColPurchaseCount]*100, 0, SpendingScoreMax)

		t.Rows = append(t.Rows, row)
		t.Churn = append(t.Churn, churn)
		t.Spending = append(t.Spending, spending)
	}

	return t
}

// Split partitions the table into train and validation subsets using a
// deterministic seeded shuffle. trainFraction is clamped to (0,1).
func (t *Table) Split(trainFraction float64, seed int64) (train, val *Table) {
	if trainFraction <= 0 || trainFraction >= 1 {
		trainFraction = 0.8
	}

	n := t.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // deterministic split, not security-sensitive

	cut := int(float64(n) * trainFraction)
	// Keep at least one row on each side when possible
	if cut == n && n > 1 {
		cut = n - 1
	}
	if cut == 0 && n > 1 {
		cut = 1
	}

	train = &Table{}
	val = &Table{}
	for i, idx := range perm {
		dst := train
		if i >= cut {
			dst = val
		}
		dst.Rows = append(dst.Rows, t.Rows[idx])
		dst.Churn = append(dst.Churn, t.Churn[idx])
		dst.Spending = append(dst.Spending, t.Spending[idx])
	}

	return train, val
}

// sanitize zero-fills missing or invalid numeric values.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// clip bounds v to [lo, hi].
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
