// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package model implements the churn classifier, the spending regressor,
// and the trainer that fits both from prepared feature tables.
//
// The models are intentionally small pure-Go implementations:
//
//   - Classifier: logistic regression fitted by batch gradient descent
//   - Regressor:  linear regression fitted by batch gradient descent
//   - Scaler:     per-column standardization (zero mean, unit variance)
//
// All model state lives in exported fields so artifact sets serialize with
// encoding/gob. Training is deterministic for a fixed seed.
//
// # Thread Safety
//
// A fitted ArtifactSet is immutable and safe for concurrent use. The
// Trainer is stateless between calls and safe for concurrent use.
package model
