// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package retrain implements the automated model retraining control loop.
//
// The orchestrator periodically checks whether retraining is warranted
// (enough time elapsed and enough new behavior samples, or detected
// accuracy drift), then runs a full cycle: backup, extract, train,
// validate, and either deploy the candidate models or roll back. Cycles
// are strictly serialized; the monitoring loop and ForceRetrain share one
// cycle mutex.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopsight/shopsight/internal/config"
	"github.com/shopsight/shopsight/internal/features"
	"github.com/shopsight/shopsight/internal/history"
	"github.com/shopsight/shopsight/internal/metrics"
	"github.com/shopsight/shopsight/internal/model"
)

// Outcome classifies how a retraining cycle ended. The values double as
// Prometheus label values.
type Outcome string

const (
	// OutcomeDeployed means the candidate set replaced production.
	OutcomeDeployed Outcome = "deployed"

	// OutcomeRejected means the candidate underperformed and was discarded.
	OutcomeRejected Outcome = "rejected"

	// OutcomeSkipped means the cycle ended early without training,
	// typically for lack of data.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means the cycle aborted on an error.
	OutcomeFailed Outcome = "failed"
)

// ErrAlreadyRunning is returned when the monitoring loop is started twice.
var ErrAlreadyRunning = errors.New("retrain: monitoring already running")

// Status is a point-in-time snapshot of the retraining system.
type Status struct {
	Running          bool          `json:"running"`
	LastRetrain      time.Time     `json:"last_retrain"`
	NewSamples       int           `json:"new_samples"`
	MinSamplesNeeded int           `json:"min_samples_needed"`
	HistoryLength    int           `json:"performance_history_length"`
	NextCheckIn      time.Duration `json:"next_check_in"`
}

// Orchestrator drives the retraining control loop.
type Orchestrator struct {
	cfg       config.RetrainConfig
	data      DataProvider
	trainer   Trainer
	artifacts ArtifactStore
	history   MetricStore
	logger    zerolog.Logger

	// cycleMu serializes cycle bodies across the monitoring loop and
	// ForceRetrain callers.
	cycleMu sync.Mutex

	running     atomic.Bool
	lastRetrain atomic.Int64 // unix nanoseconds

	workerMu sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewOrchestrator wires the retraining loop. The configured retrain
// interval starts counting from construction time.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(cfg config.RetrainConfig, data DataProvider, trainer Trainer, artifacts ArtifactStore, metricHistory MetricStore, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		data:      data,
		trainer:   trainer,
		artifacts: artifacts,
		history:   metricHistory,
		logger:    logger.With().Str("component", "retrain").Logger(),
	}
	o.lastRetrain.Store(time.Now().UnixNano())
	return o
}

// Run executes the monitoring loop until ctx is canceled. It returns
// ErrAlreadyRunning if a loop is already active, otherwise ctx.Err() on
// shutdown. Suitable as a supervised service body.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	o.logger.Info().
		Dur("poll_interval", o.cfg.PollInterval).
		Dur("retrain_interval", o.cfg.RetrainInterval).
		Int("min_new_samples", o.cfg.MinNewSamples).
		Msg("retraining monitor started")

	o.loop(ctx)

	o.logger.Info().Msg("retraining monitor stopped")
	return ctx.Err()
}

// StartMonitoring launches the monitoring loop in a background goroutine.
// Returns ErrAlreadyRunning if the loop is already active.
func (o *Orchestrator) StartMonitoring() error {
	o.workerMu.Lock()
	defer o.workerMu.Unlock()

	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done

	go func() {
		defer close(done)
		defer o.running.Store(false)

		o.logger.Info().Msg("retraining monitor started")
		o.loop(ctx)
		o.logger.Info().Msg("retraining monitor stopped")
	}()

	return nil
}

// StopMonitoring cancels the background loop started by StartMonitoring
// and waits for it to exit, bounded by the configured stop timeout. A
// cycle in flight keeps running to completion; only the loop's scheduling
// stops promptly.
func (o *Orchestrator) StopMonitoring() {
	o.workerMu.Lock()
	defer o.workerMu.Unlock()

	if o.cancel == nil {
		return
	}
	o.cancel()

	timeout := o.cfg.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-o.done:
	case <-time.After(timeout):
		o.logger.Warn().Dur("timeout", timeout).Msg("monitor did not stop in time, detaching")
		o.running.Store(false)
	}

	o.cancel = nil
	o.done = nil
}

// loop is the monitoring loop body shared by Run and StartMonitoring.
func (o *Orchestrator) loop(ctx context.Context) {
	for {
		delay := o.cfg.PollInterval

		should, err := o.shouldRetrain(ctx)
		switch {
		case err != nil:
			o.logger.Error().Err(err).Msg("trigger check failed")
			delay = o.cfg.ErrorRetryInterval
		case should:
			if _, err := o.runCycle(ctx); err != nil {
				o.logger.Error().Err(err).Msg("retraining cycle failed")
				delay = o.cfg.ErrorRetryInterval
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// shouldRetrain evaluates the trigger conditions: the retrain interval
// must have elapsed and enough new samples must have accumulated. Drift
// detection adds urgency logging but both paths share the same gates.
func (o *Orchestrator) shouldRetrain(ctx context.Context) (bool, error) {
	last := time.Unix(0, o.lastRetrain.Load())
	elapsed := time.Since(last)
	if elapsed < o.cfg.RetrainInterval {
		return false, nil
	}

	newSamples, err := o.data.CountNewSamplesSince(ctx, last)
	if err != nil {
		return false, fmt.Errorf("count new samples: %w", err)
	}
	metrics.RetrainNewSamples.Set(float64(newSamples))

	if newSamples < o.cfg.MinNewSamples {
		o.logger.Debug().
			Int("new_samples", newSamples).
			Int("min_new_samples", o.cfg.MinNewSamples).
			Msg("not enough new samples for retraining")
		return false, nil
	}

	if o.detectDrift(ctx) {
		metrics.DriftDetections.Inc()
		o.logger.Warn().Msg("performance drift detected, triggering retraining")
		return true, nil
	}

	o.logger.Info().
		Int("new_samples", newSamples).
		Dur("since_last_retrain", elapsed).
		Msg("retraining conditions met")
	return true, nil
}

// detectDrift evaluates the production models on a recent validation
// window and reports whether accuracy fell meaningfully below the recent
// historical mean. Missing production models, sparse validation data, or
// an empty history all mean no verdict.
func (o *Orchestrator) detectDrift(ctx context.Context) bool {
	if o.history.Len() == 0 || !o.artifacts.HasProduction() {
		return false
	}

	since := time.Now().Add(-o.cfg.ValidationWindow)
	records, err := o.data.LoadValidationWindow(ctx, since, o.cfg.ValidationLimit)
	if err != nil {
		o.logger.Error().Err(err).Msg("drift check: loading validation window failed")
		return false
	}
	if len(records) < o.cfg.DriftMinSamples {
		return false
	}

	set, err := o.artifacts.LoadProduction()
	if err != nil {
		o.logger.Error().Err(err).Msg("drift check: loading production models failed")
		return false
	}

	table := features.Prepare(records)
	current, err := o.trainer.Evaluate(ctx, set, table)
	if err != nil {
		o.logger.Error().Err(err).Msg("drift check: evaluation failed")
		return false
	}

	baseline := o.history.RecentMean(o.cfg.DriftWindow)
	if current.Accuracy < baseline-o.cfg.PerformanceThreshold {
		o.logger.Warn().
			Float64("current_accuracy", current.Accuracy).
			Float64("baseline_accuracy", baseline).
			Msg("production accuracy below recent baseline")
		return true
	}
	return false
}

// ForceRetrain runs one retraining cycle immediately, bypassing the
// trigger conditions. Concurrent calls serialize on the cycle mutex.
func (o *Orchestrator) ForceRetrain(ctx context.Context) (Outcome, error) {
	o.logger.Info().Msg("forcing immediate model retraining")
	return o.runCycle(ctx)
}

// runCycle executes one serialized retraining cycle and records its
// outcome and duration.
func (o *Orchestrator) runCycle(ctx context.Context) (Outcome, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	if o.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CycleTimeout)
		defer cancel()
	}

	start := time.Now()
	logger := o.logger.With().Str("cycle_id", uuid.NewString()).Logger()
	logger.Info().Msg("starting retraining cycle")

	outcome, err := o.cycle(ctx, logger)

	duration := time.Since(start)
	metrics.RecordCycle(string(outcome), duration)

	evt := logger.Info()
	if err != nil {
		evt = logger.Error().Err(err)
	}
	evt.Str("outcome", string(outcome)).Dur("duration", duration).Msg("retraining cycle finished")

	return outcome, err
}

// cycle is the body of one retraining cycle. Must be called with cycleMu
// held.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (o *Orchestrator) cycle(ctx context.Context, logger zerolog.Logger) (Outcome, error) {
	// Snapshot production before anything else so a rejected candidate can
	// be rolled back. The very first cycle has nothing to back up.
	if o.cfg.BackupEnabled && o.artifacts.HasProduction() {
		dir, err := o.artifacts.Backup()
		if err != nil {
			return OutcomeFailed, fmt.Errorf("backup production models: %w", err)
		}
		metrics.ModelBackups.Inc()
		logger.Info().Str("backup", dir).Msg("production models backed up")
	}

	records, err := o.data.LoadTrainingExtract(ctx, time.Time{}, o.cfg.ExtractLimit)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load training data: %w", err)
	}
	if len(records) < o.cfg.MinExtractRecords {
		logger.Warn().
			Int("records", len(records)).
			Int("min_records", o.cfg.MinExtractRecords).
			Msg("insufficient training data, skipping cycle")
		return OutcomeSkipped, nil
	}

	table := features.Prepare(records)
	trainTable, valTable := table.Split(0.8, 42)

	previous := o.history.Latest()

	set, trainMetrics, err := o.trainer.Train(ctx, trainTable)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("train candidate models: %w", err)
	}
	if !trainMetrics.Valid() {
		return OutcomeFailed, fmt.Errorf("train candidate models: invalid metrics %+v", trainMetrics)
	}
	logger.Debug().
		Float64("train_accuracy", trainMetrics.Accuracy).
		Int("train_samples", trainMetrics.SamplesUsed).
		Msg("candidate models trained")

	candidate, err := o.trainer.Evaluate(ctx, set, valTable)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("validate candidate models: %w", err)
	}
	if !candidate.Valid() {
		return OutcomeFailed, fmt.Errorf("validate candidate models: invalid metrics %+v", candidate)
	}
	logger.Info().
		Float64("accuracy", candidate.Accuracy).
		Float64("error_metric", candidate.ErrorMetric).
		Int("samples", candidate.SamplesUsed).
		Msg("candidate model performance")

	if !o.shouldDeploy(logger, previous, candidate) {
		o.rollback(logger)
		return OutcomeRejected, nil
	}

	if err := o.artifacts.SwapProduction(set); err != nil {
		return OutcomeFailed, fmt.Errorf("deploy candidate models: %w", err)
	}

	o.history.Append(history.Record{
		Accuracy:    candidate.Accuracy,
		ErrorMetric: candidate.ErrorMetric,
		Timestamp:   time.Now(),
		SamplesUsed: candidate.SamplesUsed,
	})
	metrics.HistoryLength.Set(float64(o.history.Len()))
	metrics.RecordDeployment(candidate.Accuracy, candidate.ErrorMetric, candidate.SamplesUsed)

	o.lastRetrain.Store(time.Now().UnixNano())
	logger.Info().Msg("candidate models deployed to production")
	return OutcomeDeployed, nil
}

// shouldDeploy applies the deployment decision rule, in order: a clear
// accuracy gain deploys, a clear error-metric drop deploys, a clear
// accuracy loss rejects, and comparable performance deploys on the
// strength of fresher data.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (o *Orchestrator) shouldDeploy(logger zerolog.Logger, previous history.Record, candidate model.Metrics) bool {
	accuracyDelta := candidate.Accuracy - previous.Accuracy
	errorDrop := previous.ErrorMetric - candidate.ErrorMetric

	if accuracyDelta > o.cfg.PerformanceThreshold {
		logger.Info().Float64("accuracy_delta", accuracyDelta).Msg("accuracy improved, deploying")
		return true
	}

	if errorDrop > o.cfg.ErrorMetricMargin {
		logger.Info().Float64("error_drop", errorDrop).Msg("error metric improved, deploying")
		return true
	}

	if accuracyDelta < -o.cfg.PerformanceThreshold {
		logger.Warn().Float64("accuracy_delta", accuracyDelta).Msg("accuracy degraded, rejecting candidate")
		return false
	}

	logger.Info().Float64("accuracy_delta", accuracyDelta).Msg("performance comparable, deploying fresher models")
	return true
}

// rollback restores production from the latest backup after a rejected
// candidate. Production was never swapped, so this is a consistency
// safeguard; failures are logged, not fatal.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (o *Orchestrator) rollback(logger zerolog.Logger) {
	if !o.cfg.BackupEnabled {
		return
	}

	restored, err := o.artifacts.RestoreLatestBackup()
	if err != nil {
		logger.Error().Err(err).Msg("restoring backup models failed")
		return
	}
	if restored {
		metrics.ModelRestores.Inc()
		logger.Info().Msg("production models restored from backup")
	}
}

// Status reports the current state of the retraining system. The new
// sample count is best effort; a query failure reports zero.
func (o *Orchestrator) Status(ctx context.Context) Status {
	last := time.Unix(0, o.lastRetrain.Load())

	newSamples, err := o.data.CountNewSamplesSince(ctx, last)
	if err != nil {
		o.logger.Error().Err(err).Msg("status: counting new samples failed")
		newSamples = 0
	}

	return Status{
		Running:          o.running.Load(),
		LastRetrain:      last,
		NewSamples:       newSamples,
		MinSamplesNeeded: o.cfg.MinNewSamples,
		HistoryLength:    o.history.Len(),
		NextCheckIn:      o.cfg.RetrainInterval,
	}
}
