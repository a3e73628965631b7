// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package api provides the observability HTTP surface: health and
// Prometheus metrics. The retraining loop itself is not controllable over
// HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shopsight/shopsight/internal/retrain"
)

// StatusProvider reports the retraining system state included in health
// responses. Satisfied by *retrain.Orchestrator.
type StatusProvider interface {
	Status(ctx context.Context) retrain.Status
}

// Router builds the HTTP handler tree.
type Router struct {
	status StatusProvider
	logger zerolog.Logger
}

// NewRouter creates the observability router.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(status StatusProvider, logger zerolog.Logger) *Router {
	return &Router{
		status: status,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler assembles the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", rt.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status    string         `json:"status"`
	Retrainer retrain.Status `json:"retrainer"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Retrainer: rt.status.Status(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rt.logger.Error().Err(err).Msg("writing health response failed")
	}
}
