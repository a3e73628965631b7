// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package model

// Regressor is a linear regression spending predictor over standardized
// features. Fields are exported for gob serialization.
type Regressor struct {
	Weights []float64
	Bias    float64
}

// Predict returns the predicted spending score for a standardized row.
// Predictions are floored at zero since spending cannot be negative.
func (r *Regressor) Predict(row []float64) float64 {
	v := dot(r.Weights, row) + r.Bias
	if v < 0 {
		return 0
	}
	return v
}

// fitRegressor fits linear regression by batch gradient descent.
// rows must already be standardized. Targets are scaled down internally so
// the gradient step is stable for targets in the hundreds.
func fitRegressor(rows [][]float64, targets []float64, cfg TrainerConfig) *Regressor {
	dim := len(rows[0])
	w := make([]float64, dim)
	bias := 0.0
	n := float64(len(rows))

	// Scale targets to roughly unit range for stable steps
	maxTarget := 1.0
	for _, t := range targets {
		if t > maxTarget {
			maxTarget = t
		}
	}

	grad := make([]float64, dim)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0

		for i, row := range rows {
			err := dot(w, row) + bias - targets[i]/maxTarget
			for j, v := range row {
				grad[j] += err * v
			}
			biasGrad += err
		}

		for j := range w {
			w[j] -= cfg.LearningRate * (grad[j]/n + cfg.Regularization*w[j])
		}
		bias -= cfg.LearningRate * biasGrad / n
	}

	// Fold the target scale back into the parameters
	for j := range w {
		w[j] *= maxTarget
	}
	bias *= maxTarget

	return &Regressor{Weights: w, Bias: bias}
}
