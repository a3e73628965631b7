// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package model

import (
	"context"
	"math"
	"testing"

	"github.com/shopsight/shopsight/internal/features"
)

// separableTable builds a table where churners (zero purchases) have short
// sessions and buyers have long sessions, so a linear model can separate them.
func separableTable(n int) *features.Table {
	records := make([]features.BehaviorRecord, n)
	for i := range records {
		if i%2 == 0 {
			records[i] = features.BehaviorRecord{
				UserID:             int64(i),
				SessionDuration:    2,
				PurchaseCount:      0,
				CartAdds:           0,
				PageViews:          1,
				AvgSessionDuration: 2,
			}
		} else {
			records[i] = features.BehaviorRecord{
				UserID:             int64(i),
				SessionDuration:    40,
				PurchaseCount:      5,
				CartAdds:           6,
				PageViews:          20,
				AvgSessionDuration: 35,
			}
		}
	}
	return features.Prepare(records)
}

func TestTrainProducesValidMetrics(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(DefaultTrainerConfig())
	table := separableTable(200)

	set, metrics, err := trainer.Train(context.Background(), table)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if set.Classifier == nil || set.Regressor == nil || set.Scaler == nil {
		t.Fatal("artifact set is incomplete")
	}
	if !metrics.Valid() {
		t.Fatalf("metrics invalid: %+v", metrics)
	}
	if metrics.SamplesUsed != 200 {
		t.Errorf("SamplesUsed = %d, want 200", metrics.SamplesUsed)
	}

	// The table is linearly separable, the classifier should learn it well
	if metrics.Accuracy < 0.9 {
		t.Errorf("Accuracy = %g, want >= 0.9 on separable data", metrics.Accuracy)
	}
}

func TestTrainRejectsTinyTables(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(DefaultTrainerConfig())
	_, _, err := trainer.Train(context.Background(), separableTable(MinTrainingRows-1))
	if err == nil {
		t.Fatal("expected error for undersized table")
	}
}

func TestTrainHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := NewTrainer(DefaultTrainerConfig())
	_, _, err := trainer.Train(ctx, separableTable(100))
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(DefaultTrainerConfig())
	table := separableTable(100)

	set1, m1, err := trainer.Train(context.Background(), table)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	set2, m2, err := trainer.Train(context.Background(), table)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if m1 != m2 {
		t.Errorf("metrics differ between identical runs: %+v vs %+v", m1, m2)
	}
	for j := range set1.Classifier.Weights {
		if set1.Classifier.Weights[j] != set2.Classifier.Weights[j] {
			t.Fatal("classifier weights differ between identical runs")
		}
	}
}

func TestEvaluateOnHeldOutSplit(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(DefaultTrainerConfig())
	table := separableTable(200)
	train, val := table.Split(0.8, 42)

	set, _, err := trainer.Train(context.Background(), train)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	metrics, err := trainer.Evaluate(context.Background(), set, val)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if metrics.SamplesUsed != val.Len() {
		t.Errorf("SamplesUsed = %d, want %d", metrics.SamplesUsed, val.Len())
	}
	if metrics.Accuracy < 0.9 {
		t.Errorf("held-out accuracy = %g, want >= 0.9 on separable data", metrics.Accuracy)
	}
	if metrics.ErrorMetric < 0 {
		t.Errorf("ErrorMetric = %g, want >= 0", metrics.ErrorMetric)
	}
}

func TestEvaluateRejectsIncompleteSet(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(DefaultTrainerConfig())
	_, err := trainer.Evaluate(context.Background(), &ArtifactSet{}, separableTable(20))
	if err == nil {
		t.Fatal("expected error for incomplete artifact set")
	}
}

func TestScalerRoundTrip(t *testing.T) {
	t.Parallel()

	rows := [][]float64{
		{1, 10, 100},
		{2, 20, 100},
		{3, 30, 100},
	}

	s, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}

	scaled := s.Transform(rows)

	// Columns with variance standardize to mean 0
	for j := 0; j < 2; j++ {
		var mean float64
		for i := range scaled {
			mean += scaled[i][j]
		}
		mean /= float64(len(scaled))
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %g, want 0", j, mean)
		}
	}

	// Constant column must not blow up
	for i := range scaled {
		if math.IsNaN(scaled[i][2]) || math.IsInf(scaled[i][2], 0) {
			t.Errorf("constant column produced %g", scaled[i][2])
		}
	}
}

func TestMetricsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    Metrics
		want bool
	}{
		{"ok", Metrics{Accuracy: 0.9, ErrorMetric: 12.5, SamplesUsed: 100}, true},
		{"accuracy above one", Metrics{Accuracy: 1.2, ErrorMetric: 1}, false},
		{"negative accuracy", Metrics{Accuracy: -0.1, ErrorMetric: 1}, false},
		{"negative error", Metrics{Accuracy: 0.5, ErrorMetric: -3}, false},
		{"nan error", Metrics{Accuracy: 0.5, ErrorMetric: math.NaN()}, false},
		{"nan accuracy", Metrics{Accuracy: math.NaN(), ErrorMetric: 1}, false},
		{"infinite error", Metrics{Accuracy: 0.5, ErrorMetric: math.Inf(1)}, false},
		{"zero value", Metrics{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.m.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
