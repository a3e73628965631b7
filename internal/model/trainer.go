// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package model

import (
	"context"
	"fmt"
	"math"

	"github.com/shopsight/shopsight/internal/features"
)

// MinTrainingRows is the smallest feature table the trainer accepts.
const MinTrainingRows = 10

// ArtifactSet bundles the deployable model artifacts. The three parts are
// always trained, persisted, and swapped together.
type ArtifactSet struct {
	Classifier *Classifier
	Regressor  *Regressor
	Scaler     *Scaler
}

// Metrics summarizes model quality on an evaluation set.
type Metrics struct {
	// Accuracy is the churn classification accuracy in [0,1].
	Accuracy float64 `json:"accuracy"`

	// ErrorMetric is the spending regression mean squared error (>= 0).
	ErrorMetric float64 `json:"error_metric"`

	// SamplesUsed is the number of evaluation rows.
	SamplesUsed int `json:"samples_used"`
}

// TrainerConfig contains training hyperparameters.
type TrainerConfig struct {
	// Epochs is the number of gradient descent passes.
	// Default: 200.
	Epochs int

	// LearningRate is the gradient step size.
	// Default: 0.1.
	LearningRate float64

	// Regularization is the L2 penalty applied to weights.
	// Default: 0.001.
	Regularization float64
}

// DefaultTrainerConfig returns default hyperparameters.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs:         200,
		LearningRate:   0.1,
		Regularization: 0.001,
	}
}

// Trainer fits and evaluates artifact sets. It holds no per-call state and
// is safe for concurrent use.
type Trainer struct {
	config TrainerConfig
}

// NewTrainer creates a trainer, applying defaults for zero values.
func NewTrainer(cfg TrainerConfig) *Trainer {
	if cfg.Epochs <= 0 {
		cfg.Epochs = 200
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = 0.001
	}
	return &Trainer{config: cfg}
}

// Train fits a candidate artifact set on the given table and returns it
// with metrics computed on the training data itself. Callers that need an
// unbiased estimate must evaluate on a held-out table.
func (t *Trainer) Train(ctx context.Context, table *features.Table) (*ArtifactSet, Metrics, error) {
	if table.Len() < MinTrainingRows {
		return nil, Metrics{}, fmt.Errorf("train: need at least %d rows, got %d", MinTrainingRows, table.Len())
	}
	if err := ctx.Err(); err != nil {
		return nil, Metrics{}, err
	}

	scaler, err := FitScaler(table.Rows)
	if err != nil {
		return nil, Metrics{}, fmt.Errorf("train: %w", err)
	}
	scaled := scaler.Transform(table.Rows)

	classifier := fitClassifier(scaled, table.Churn, t.config)
	if err := ctx.Err(); err != nil {
		return nil, Metrics{}, err
	}
	regressor := fitRegressor(scaled, table.Spending, t.config)
	if err := ctx.Err(); err != nil {
		return nil, Metrics{}, err
	}

	set := &ArtifactSet{
		Classifier: classifier,
		Regressor:  regressor,
		Scaler:     scaler,
	}

	metrics, err := t.Evaluate(ctx, set, table)
	if err != nil {
		return nil, Metrics{}, err
	}
	return set, metrics, nil
}

// Evaluate scores an artifact set against a labeled table.
func (t *Trainer) Evaluate(ctx context.Context, set *ArtifactSet, table *features.Table) (Metrics, error) {
	if set == nil || set.Classifier == nil || set.Regressor == nil || set.Scaler == nil {
		return Metrics{}, fmt.Errorf("evaluate: incomplete artifact set")
	}
	if table.Len() == 0 {
		return Metrics{}, fmt.Errorf("evaluate: empty table")
	}
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	correct := 0
	var sqErr float64
	for i, row := range table.Rows {
		scaled := set.Scaler.TransformRow(row)

		if set.Classifier.Predict(scaled) == table.Churn[i] {
			correct++
		}

		d := set.Regressor.Predict(scaled) - table.Spending[i]
		sqErr += d * d
	}

	n := table.Len()
	return Metrics{
		Accuracy:    float64(correct) / float64(n),
		ErrorMetric: sqErr / float64(n),
		SamplesUsed: n,
	}, nil
}

// Valid reports whether metrics satisfy the trainer contract: accuracy in
// [0,1] and a non-negative, finite error metric.
func (m Metrics) Valid() bool {
	// NaN fails every ordered comparison, so it needs an explicit check.
	if math.IsNaN(m.Accuracy) || m.Accuracy < 0 || m.Accuracy > 1 {
		return false
	}
	if m.ErrorMetric < 0 || math.IsNaN(m.ErrorMetric) || math.IsInf(m.ErrorMetric, 0) {
		return false
	}
	return m.SamplesUsed >= 0
}
