// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package config loads and validates the Shopsight server configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (RETRAIN_MIN_NEW_SAMPLES, DATABASE_PATH, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
package config

import (
	"time"
)

// Config is the root configuration for the Shopsight server.
type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	Retrain   RetrainConfig  `koanf:"retrain"`
	Artifacts ArtifactConfig `koanf:"artifacts"`
	History   HistoryConfig  `koanf:"history"`
	Logging   LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the observability HTTP listener.
// The listener serves /metrics and /healthz only; the retraining control
// surface is exposed as Go-level methods to the hosting layer.
type ServerConfig struct {
	// ListenAddr is the address for the observability endpoints.
	ListenAddr string `koanf:"listen_addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the behavioral event store.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`

	// BusyTimeout is the SQLite busy timeout applied at connect time.
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// RetrainConfig configures the retraining orchestrator.
// The struct is treated as immutable after Load; the orchestrator copies it
// at construction and never mutates it.
type RetrainConfig struct {
	// MinNewSamples is the minimum number of new behavioral samples since
	// the last retrain required for the sample-count trigger path.
	MinNewSamples int `koanf:"min_new_samples"`

	// RetrainInterval is the minimum elapsed time between retrains.
	// Both trigger paths are gated on this interval.
	RetrainInterval time.Duration `koanf:"retrain_interval"`

	// PerformanceThreshold is the accuracy delta treated as meaningful,
	// both for the deploy decision and for drift detection.
	PerformanceThreshold float64 `koanf:"performance_threshold"`

	// ErrorMetricMargin is the absolute MSE drop treated as meaningful
	// for the deploy decision.
	ErrorMetricMargin float64 `koanf:"error_metric_margin"`

	// BackupEnabled snapshots production artifacts before each cycle and
	// enables defensive restores on rejected candidates.
	BackupEnabled bool `koanf:"backup_enabled"`

	// PollInterval is the housekeeping tick of the monitoring loop,
	// independent of RetrainInterval.
	PollInterval time.Duration `koanf:"poll_interval"`

	// ErrorRetryInterval is the shortened sleep after a failed loop iteration.
	ErrorRetryInterval time.Duration `koanf:"error_retry_interval"`

	// CycleTimeout bounds a single retraining cycle. Zero disables the bound.
	CycleTimeout time.Duration `koanf:"cycle_timeout"`

	// StopTimeout bounds the wait for the worker to exit in StopMonitoring.
	StopTimeout time.Duration `koanf:"stop_timeout"`

	// MinExtractRecords is the absolute floor on training extract size;
	// smaller extracts skip the cycle.
	MinExtractRecords int `koanf:"min_extract_records"`

	// ExtractLimit caps the size of a bulk training extract.
	ExtractLimit int `koanf:"extract_limit"`

	// DriftMinSamples is the minimum labeled validation samples required
	// before the drift check produces a verdict.
	DriftMinSamples int `koanf:"drift_min_samples"`

	// DriftWindow is the number of recent history records averaged as the
	// drift baseline.
	DriftWindow int `koanf:"drift_window"`

	// ValidationWindow is how far back the drift check looks for labeled data.
	ValidationWindow time.Duration `koanf:"validation_window"`

	// ValidationLimit caps the drift validation sample count.
	ValidationLimit int `koanf:"validation_limit"`
}

// ArtifactConfig configures model artifact storage.
type ArtifactConfig struct {
	// Dir is the base directory holding production artifacts and backups.
	Dir string `koanf:"dir"`
}

// HistoryConfig configures the persisted performance history.
type HistoryConfig struct {
	// Path is the JSON history file.
	Path string `koanf:"path"`

	// Limit is the maximum retained records (FIFO eviction).
	Limit int `koanf:"limit"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":9187",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "/data/shopsight.db",
			BusyTimeout: 5 * time.Second,
		},
		Retrain: RetrainConfig{
			MinNewSamples:        100,
			RetrainInterval:      24 * time.Hour,
			PerformanceThreshold: 0.05,
			ErrorMetricMargin:    100,
			BackupEnabled:        true,
			PollInterval:         time.Hour,
			ErrorRetryInterval:   5 * time.Minute,
			CycleTimeout:         30 * time.Minute,
			StopTimeout:          5 * time.Second,
			MinExtractRecords:    100,
			ExtractLimit:         10000,
			DriftMinSamples:      50,
			DriftWindow:          5,
			ValidationWindow:     7 * 24 * time.Hour,
			ValidationLimit:      1000,
		},
		Artifacts: ArtifactConfig{
			Dir: "/data/models",
		},
		History: HistoryConfig{
			Path:  "/data/performance_history.json",
			Limit: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
