// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testSlogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		if tree.config.FailureThreshold != 5.0 {
			t.Errorf("expected default FailureThreshold 5.0, got %f", tree.config.FailureThreshold)
		}
		if tree.config.FailureDecay != 30.0 {
			t.Errorf("expected default FailureDecay 30.0, got %f", tree.config.FailureDecay)
		}
		if tree.config.FailureBackoff != 15*time.Second {
			t.Errorf("expected default FailureBackoff 15s, got %v", tree.config.FailureBackoff)
		}
		if tree.config.ShutdownTimeout != 10*time.Second {
			t.Errorf("expected default ShutdownTimeout 10s, got %v", tree.config.ShutdownTimeout)
		}
	})
}

func TestTreeLifecycle(t *testing.T) {
	t.Run("tree starts and stops gracefully", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		control := NewMockService("mock-control")
		api := NewMockService("mock-api")
		tree.AddControlService(control)
		tree.AddAPIService(api)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- tree.Serve(ctx) }()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}

		if control.StartCount() < 1 {
			t.Error("control layer service never started")
		}
		if api.StartCount() < 1 {
			t.Error("api layer service never started")
		}
	})

	t.Run("failed service is restarted", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   50 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatal(err)
		}

		svc := NewMockService("flaky")
		svc.SetFailCount(2)
		tree.AddControlService(svc)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := tree.ServeBackground(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for svc.StartCount() < 3 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if svc.StartCount() < 3 {
			t.Errorf("service restarted %d times, want at least 3 starts", svc.StartCount())
		}

		cancel()
		<-errCh
	})

	t.Run("ServeBackground returns channel", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{ShutdownTimeout: time.Second})
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		errCh := tree.ServeBackground(ctx)

		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("ServeBackground channel never closed")
		}
	})

	t.Run("RemoveAndWait stops a service", func(t *testing.T) {
		tree, err := NewTree(testSlogger(), TreeConfig{ShutdownTimeout: time.Second})
		if err != nil {
			t.Fatal(err)
		}

		svc := NewMockService("removable")
		token := tree.AddControlService(svc)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := tree.ServeBackground(ctx)

		deadline := time.Now().Add(time.Second)
		for svc.StartCount() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		if err := tree.RemoveControlService(token); err != nil {
			t.Errorf("RemoveControlService: %v", err)
		}

		cancel()
		<-errCh
	})
}
