// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package config

import (
	"fmt"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRetrain(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

//nolint:gocyclo // flat list of independent range checks
func (c *Config) validateRetrain() error {
	r := c.Retrain

	if r.MinNewSamples <= 0 {
		return fmt.Errorf("retrain.min_new_samples must be positive, got %d", r.MinNewSamples)
	}
	if r.RetrainInterval <= 0 {
		return fmt.Errorf("retrain.retrain_interval must be positive, got %s", r.RetrainInterval)
	}
	if r.PerformanceThreshold < 0 || r.PerformanceThreshold > 1 {
		return fmt.Errorf("retrain.performance_threshold must be in [0,1], got %g", r.PerformanceThreshold)
	}
	if r.ErrorMetricMargin < 0 {
		return fmt.Errorf("retrain.error_metric_margin must be non-negative, got %g", r.ErrorMetricMargin)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("retrain.poll_interval must be positive, got %s", r.PollInterval)
	}
	if r.ErrorRetryInterval <= 0 {
		return fmt.Errorf("retrain.error_retry_interval must be positive, got %s", r.ErrorRetryInterval)
	}
	if r.CycleTimeout < 0 {
		return fmt.Errorf("retrain.cycle_timeout must not be negative, got %s", r.CycleTimeout)
	}
	if r.StopTimeout <= 0 {
		return fmt.Errorf("retrain.stop_timeout must be positive, got %s", r.StopTimeout)
	}
	if r.MinExtractRecords <= 0 {
		return fmt.Errorf("retrain.min_extract_records must be positive, got %d", r.MinExtractRecords)
	}
	if r.ExtractLimit < r.MinExtractRecords {
		return fmt.Errorf("retrain.extract_limit (%d) must be at least retrain.min_extract_records (%d)",
			r.ExtractLimit, r.MinExtractRecords)
	}
	if r.DriftMinSamples <= 0 {
		return fmt.Errorf("retrain.drift_min_samples must be positive, got %d", r.DriftMinSamples)
	}
	if r.DriftWindow <= 0 {
		return fmt.Errorf("retrain.drift_window must be positive, got %d", r.DriftWindow)
	}
	if r.ValidationWindow <= 0 {
		return fmt.Errorf("retrain.validation_window must be positive, got %s", r.ValidationWindow)
	}
	if r.ValidationLimit < r.DriftMinSamples {
		return fmt.Errorf("retrain.validation_limit (%d) must be at least retrain.drift_min_samples (%d)",
			r.ValidationLimit, r.DriftMinSamples)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required")
	}
	if c.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}
