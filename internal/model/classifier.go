// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package model

import (
	"math"
)

// Classifier is a logistic regression churn classifier over standardized
// features. Fields are exported for gob serialization.
type Classifier struct {
	Weights []float64
	Bias    float64
}

// PredictProba returns the churn probability for a standardized row.
func (c *Classifier) PredictProba(row []float64) float64 {
	return sigmoid(dot(c.Weights, row) + c.Bias)
}

// Predict returns the binary churn decision at the 0.5 threshold.
func (c *Classifier) Predict(row []float64) float64 {
	if c.PredictProba(row) > 0.5 {
		return 1
	}
	return 0
}

// fitClassifier fits logistic regression by batch gradient descent.
// rows must already be standardized; labels are 0/1.
func fitClassifier(rows [][]float64, labels []float64, cfg TrainerConfig) *Classifier {
	dim := len(rows[0])
	w := make([]float64, dim)
	bias := 0.0
	n := float64(len(rows))

	grad := make([]float64, dim)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0

		for i, row := range rows {
			err := sigmoid(dot(w, row)+bias) - labels[i]
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

	return &Classifier{Weights: w, Bias: bias}
}

// sigmoid is the logistic function with clamping to avoid overflow.
func sigmoid(x float64) float64 {
	if x > 30 {
		return 1
	}
	if x < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		sum += v * b[i]
	}
	return sum
}
