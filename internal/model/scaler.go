// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package model

import (
	"fmt"
	"math"
)

// Scaler standardizes feature columns to zero mean and unit variance.
// Fields are exported for gob serialization.
type Scaler struct {
	// Means holds the per-column mean from the fitting data.
	Means []float64

	// Stds holds the per-column standard deviation from the fitting data.
	// Columns with zero variance use 1 to avoid division by zero.
	Stds []float64
}

// FitScaler computes column statistics from the given rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}

	cols := len(rows[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)

	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	n := float64(len(rows))
	for j := range means {
		means[j] /= n
	}

	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	return &Scaler{Means: means, Stds: stds}, nil
}

// Transform returns standardized copies of the given rows.
func (s *Scaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out
}

// TransformRow standardizes a single row.
func (s *Scaler) TransformRow(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for j, v := range row {
		scaled[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return scaled
}
