// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package main is the entry point for the Shopsight retraining server.
//
// Shopsight continuously retrains a churn classifier and a spending
// regressor on e-commerce behavior events. The server wires together the
// behavior database, the model trainer, the artifact store, and the
// retraining orchestrator, then runs everything under a suture supervision
// tree.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file layered over
//     defaults (Koanf v2)
//  2. Database: SQLite store of user behavior events
//  3. Performance history: persisted training outcome log
//  4. Artifact store: production models and backup snapshots
//  5. Orchestrator: the retraining control loop
//  6. HTTP server: /healthz and /metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SHOPSIGHT_* and documented aliases)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the monitoring
// loop stops scheduling, a cycle in flight finishes or hits its timeout,
// and the HTTP server drains connections.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopsight/shopsight/internal/api"
	"github.com/shopsight/shopsight/internal/artifact"
	"github.com/shopsight/shopsight/internal/config"
	"github.com/shopsight/shopsight/internal/database"
	"github.com/shopsight/shopsight/internal/history"
	"github.com/shopsight/shopsight/internal/logging"
	"github.com/shopsight/shopsight/internal/model"
	"github.com/shopsight/shopsight/internal/retrain"
	"github.com/shopsight/shopsight/internal/supervisor"
	"github.com/shopsight/shopsight/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("model_dir", cfg.Artifacts.Dir).
		Dur("retrain_interval", cfg.Retrain.RetrainInterval).
		Msg("Starting Shopsight retraining server")

	db, err := database.Open(cfg.Database.Path, cfg.Database.BusyTimeout, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open behavior database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	hist, err := history.NewStore(cfg.History.Path, cfg.History.Limit, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load performance history")
	}

	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artifact store")
	}

	trainer := model.NewTrainer(model.DefaultTrainerConfig())

	orchestrator := retrain.NewOrchestrator(cfg.Retrain, db, trainer, artifacts, hist, logging.Logger())

	// Context canceled on shutdown signal.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddControlService(services.NewRetrainService(orchestrator, logging.Logger()))
	logging.Info().Msg("Retraining service added to supervisor tree")

	router := api.NewRouter(orchestrator, logging.Logger())
	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
