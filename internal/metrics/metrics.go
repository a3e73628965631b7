// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Retraining Cycle Metrics
	RetrainCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrain_cycles_total",
			Help: "Total number of retraining cycles by outcome",
		},
		[]string{"outcome"}, // "deployed", "rejected", "skipped", "failed"
	)

	RetrainCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrain_cycle_duration_seconds",
			Help:    "Duration of retraining cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}, // Training can take minutes
		},
	)

	RetrainLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrain_last_success_timestamp",
			Help: "Unix timestamp of the last deployed retraining cycle",
		},
	)

	RetrainNewSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrain_new_samples",
			Help: "Number of new behavior samples observed at the last trigger check",
		},
	)

	DriftDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retrain_drift_detections_total",
			Help: "Total number of accuracy drift detections",
		},
	)

	// Model Performance Metrics
	ModelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Classification accuracy of the production churn model",
		},
	)

	ModelErrorMetric = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_error_metric",
			Help: "Mean squared error of the production spending model",
		},
	)

	TrainingSamplesUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_samples_used",
			Help: "Number of samples used in the last training run",
		},
	)

	HistoryLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "performance_history_length",
			Help: "Current number of retained performance history records",
		},
	)

	// Artifact Store Metrics
	ModelBackups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_backups_total",
			Help: "Total number of model backup snapshots taken",
		},
	)

	ModelRestores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_restores_total",
			Help: "Total number of model rollbacks from backup",
		},
	)

	// Ingestion Metrics
	BehaviorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "behavior_events_total",
			Help: "Total number of behavior events recorded",
		},
		[]string{"action"}, // "view", "cart_add", "purchase"
	)
)

// RecordCycle records the outcome and duration of one retraining cycle.
func RecordCycle(outcome string, duration time.Duration) {
	RetrainCycles.WithLabelValues(outcome).Inc()
	RetrainCycleDuration.Observe(duration.Seconds())
}

// RecordDeployment records the evaluation metrics of a newly deployed model
// set and marks the deployment time.
func RecordDeployment(accuracy, errorMetric float64, samplesUsed int) {
	ModelAccuracy.Set(accuracy)
	ModelErrorMetric.Set(errorMetric)
	TrainingSamplesUsed.Set(float64(samplesUsed))
	RetrainLastSuccess.SetToCurrentTime()
}
