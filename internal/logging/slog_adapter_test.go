// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesToZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := slog.New(NewSlogHandlerWithLogger(zl))

	logger.Info("service starting", "port", int64(9090))

	out := buf.String()
	if !strings.Contains(out, `"message":"service starting"`) {
		t.Errorf("expected message, got %q", out)
	}
	if !strings.Contains(out, `"port":9090`) {
		t.Errorf("expected port attribute, got %q", out)
	}
}

func TestSlogHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := slog.New(NewSlogHandlerWithLogger(zl)).With("service", "retrain")

	logger.Warn("restarting")

	out := buf.String()
	if !strings.Contains(out, `"service":"retrain"`) {
		t.Errorf("expected pre-configured attr, got %q", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := slog.New(NewSlogHandlerWithLogger(zl)).WithGroup("cycle")

	logger.Info("done", "outcome", "deployed")

	if !strings.Contains(buf.String(), `"cycle.outcome":"deployed"`) {
		t.Errorf("expected grouped attribute, got %q", buf.String())
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
