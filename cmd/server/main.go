// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Esteira worker
//
// Long-running entry point. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Runs mailbox capture and the ingestion pipeline on their own tickers
//  4. Serves /health (Postgres + Redis)
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofjud/esteira/internal/app"
	"github.com/gofjud/esteira/internal/config"
	"github.com/gofjud/esteira/internal/pipeline"
	"github.com/gofjud/esteira/internal/scheduler"
)

func main() {
	app.SetupLogging(os.Getenv("LOG_LEVEL"))
	slog.Info("starting esteira worker")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"mail_host", cfg.Mail.Host,
		"batch_limit", cfg.Pipeline.BatchLimit,
		"pipeline_interval", cfg.Pipeline.Interval,
		"capture_interval", cfg.Pipeline.CaptureInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// --- Periodic jobs ---
	sched := scheduler.New(
		scheduler.Job{
			Name:     "captura",
			Interval: cfg.Pipeline.CaptureInterval,
			Run: func(ctx context.Context) error {
				_, err := a.Capture.Run(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "pipeline",
			Interval: cfg.Pipeline.Interval,
			Run: func(ctx context.Context) error {
				_, err := a.Pipeline.Run(ctx, pipeline.Options{Limit: cfg.Pipeline.BatchLimit})
				return err
			},
		},
	)
	sched.Start(ctx)

	// --- Health Check Server ---
	health := app.HealthHandler(map[string]app.Pinger{
		"redis":    a.Publisher,
		"postgres": a.Store,
	}, "redis", "postgres")
	done, err := app.Serve(ctx, cfg.Port, health)
	if err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	slog.Info("received shutdown signal")
	sched.Stop()
	<-done

	slog.Info("esteira worker stopped")
}
