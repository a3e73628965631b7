// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package services provides suture service wrappers for application components.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shopsight/shopsight/internal/retrain"
)

// Monitor is the retraining loop as seen by the service wrapper. Satisfied
// by *retrain.Orchestrator.
type Monitor interface {
	// Run executes the monitoring loop until the context is canceled.
	Run(ctx context.Context) error
}

// RetrainService wraps the retraining monitor for suture supervision. A
// monitor that returns with an error is restarted by the supervisor; a
// clean context cancellation shuts the service down.
type RetrainService struct {
	monitor Monitor
	logger  zerolog.Logger
	name    string
}

// NewRetrainService creates the supervised retraining service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetrainService(monitor Monitor, logger zerolog.Logger) *RetrainService {
	return &RetrainService{
		monitor: monitor,
		logger:  logger.With().Str("service", "retrain").Logger(),
		name:    "retrain-service",
	}
}

// Serve implements the suture.Service interface.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("retraining service starting")

	err := s.monitor.Run(ctx)
	if errors.Is(err, retrain.ErrAlreadyRunning) {
		// Another loop owns the monitor; do not fight over it.
		s.logger.Warn().Msg("monitor already running, service idling until shutdown")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info().Msg("retraining service stopped")
	return err
}

// String returns the service name for logging.
func (s *RetrainService) String() string {
	return s.name
}
