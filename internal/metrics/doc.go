// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the retraining control loop using the Prometheus
client library, exposing metrics for cycle outcomes, model performance, and
artifact store activity.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:9187/metrics

# Available Metrics

Retraining Cycle Metrics:
  - retrain_cycles_total: Total retraining cycles (counter)
    Labels: outcome (deployed, rejected, skipped, failed)
  - retrain_cycle_duration_seconds: Cycle duration (histogram)
    Buckets: 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600
  - retrain_last_success_timestamp: Unix timestamp of last deployment (gauge)
  - retrain_new_samples: New samples seen at the last trigger check (gauge)
  - retrain_drift_detections_total: Accuracy drift detections (counter)

Model Performance Metrics:
  - model_accuracy: Production churn model accuracy (gauge)
  - model_error_metric: Production spending model MSE (gauge)
  - training_samples_used: Samples used in the last training run (gauge)
  - performance_history_length: Retained history records (gauge)

Artifact Store Metrics:
  - model_backups_total: Backup snapshots taken (counter)
  - model_restores_total: Rollbacks from backup (counter)

Ingestion Metrics:
  - behavior_events_total: Behavior events recorded (counter)
    Labels: action (view, cart_add, purchase)

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

Label values are limited to small fixed vocabularies (cycle outcomes, action
types). User-specific labels are avoided.
*/
package metrics
