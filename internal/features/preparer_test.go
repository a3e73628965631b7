// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package features

import (
	"math"
	"reflect"
	"testing"
)

func TestPrepareLabels(t *testing.T) {
	t.Parallel()

	records := []BehaviorRecord{
		{UserID: 1, SessionDuration: 20, PurchaseCount: 0, CartAdds: 2, PageViews: 5, AvgSessionDuration: 18},
		{UserID: 2, SessionDuration: 35, PurchaseCount: 3, CartAdds: 4, PageViews: 12, AvgSessionDuration: 30},
		{UserID: 3, SessionDuration: 5, PurchaseCount: 50, CartAdds: 1, PageViews: 2, AvgSessionDuration: 6},
	}

	tbl := Prepare(records)
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	// Zero purchases => churn
	if tbl.Churn[0] != 1 {
		t.Errorf("Churn[0] = %g, want 1 (no purchases)", tbl.Churn[0])
	}
	if tbl.Churn[1] != 0 {
		t.Errorf("Churn[1] = %g, want 0", tbl.Churn[1])
	}

	// Spending score = purchases * 100, clipped to SpendingScoreMax
	if tbl.Spending[0] != 0 {
		t.Errorf("Spending[0] = %g, want 0", tbl.Spending[0])
	}
	if tbl.Spending[1] != 300 {
		t.Errorf("Spending[1] = %g, want 300", tbl.Spending[1])
	}
	if tbl.Spending[2] != SpendingScoreMax {
		t.Errorf("Spending[2] = %g, want clipped to %d", tbl.Spending[2], SpendingScoreMax)
	}
}

func TestPrepareZeroFillsInvalidValues(t *testing.T) {
	t.Parallel()

	records := []BehaviorRecord{
		{
			UserID:             1,
			SessionDuration:    math.NaN(),
			PurchaseCount:      math.Inf(1),
			CartAdds:           -3,
			PageViews:          7,
			AvgSessionDuration: math.NaN(),
		},
	}

	tbl := Prepare(records)
	row := tbl.Rows[0]

	for _, col := range []int{ColSessionDuration, ColPurchaseCount, ColCartAdds, ColAvgSessionDuration} {
		if row[col] != 0 {
			t.Errorf("column %s = %g, want 0", ColumnNames[col], row[col])
		}
	}
	if row[ColPageViews] != 7 {
		t.Errorf("PageViews = %g, want 7 untouched", row[ColPageViews])
	}

	// Infinite purchase count was zero-filled, so the row labels as churn
	if tbl.Churn[0] != 1 {
		t.Errorf("Churn[0] = %g, want 1", tbl.Churn[0])
	}
}

func TestPrepareIsDeterministic(t *testing.T) {
	t.Parallel()

	records := []BehaviorRecord{
		{UserID: 1, SessionDuration: 20, PurchaseCount: 2, CartAdds: 3, PageViews: 8, AvgSessionDuration: 15},
		{UserID: 2, SessionDuration: 10, PurchaseCount: 0, CartAdds: 1, PageViews: 4, AvgSessionDuration: 9},
	}

	a := Prepare(records)
	b := Prepare(records)

	if !reflect.DeepEqual(a, b) {
		t.Error("Prepare should be deterministic for identical input")
	}
}

func TestSplitIsDeterministicAndComplete(t *testing.T) {
	t.Parallel()

	records := make([]BehaviorRecord, 100)
	for i := range records {
		records[i] = BehaviorRecord{UserID: int64(i), SessionDuration: float64(i), PurchaseCount: float64(i % 4)}
	}
	tbl := Prepare(records)

	train1, val1 := tbl.Split(0.8, 42)
	train2, val2 := tbl.Split(0.8, 42)

	if train1.Len() != 80 || val1.Len() != 20 {
		t.Fatalf("split sizes = %d/%d, want 80/20", train1.Len(), val1.Len())
	}
	if !reflect.DeepEqual(train1.Rows, train2.Rows) || !reflect.DeepEqual(val1.Rows, val2.Rows) {
		t.Error("same seed should give the same split")
	}

	// A different seed gives a different shuffle
	train3, _ := tbl.Split(0.8, 7)
	if reflect.DeepEqual(train1.Rows, train3.Rows) {
		t.Error("different seed should shuffle differently")
	}
}

func TestSplitTinyTable(t *testing.T) {
	t.Parallel()

	tbl := Prepare([]BehaviorRecord{
		{UserID: 1, PurchaseCount: 1},
		{UserID: 2, PurchaseCount: 0},
	})

	train, val := tbl.Split(0.8, 42)
	if train.Len() == 0 || val.Len() == 0 {
		t.Errorf("split of 2 rows should leave one on each side, got %d/%d", train.Len(), val.Len())
	}
}
