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

// Package app wires the shared dependencies used by both binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/gofjud/esteira/internal/capture"
	"github.com/gofjud/esteira/internal/classify"
	"github.com/gofjud/esteira/internal/config"
	"github.com/gofjud/esteira/internal/control"
	"github.com/gofjud/esteira/internal/dedup"
	"github.com/gofjud/esteira/internal/mail"
	"github.com/gofjud/esteira/internal/pipeline"
	"github.com/gofjud/esteira/internal/queue"
	"github.com/gofjud/esteira/internal/store"
	"github.com/gofjud/esteira/internal/validator"
)

// SetupLogging installs the JSON slog handler as the default logger.
func SetupLogging(level string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// App holds the connected dependencies.
type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Store     *store.Store
	Control   *control.Store
	Dedup     *dedup.Filter
	Publisher *queue.Publisher
	Validator *validator.Client
	Pipeline  *pipeline.Pipeline
	Capture   *capture.Runner
}

// New connects to Postgres and Redis and builds every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := store.Connect(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConns))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	st, err := store.NewStore(ctx, pool, store.Options{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		TimeZone:    cfg.Pipeline.TimeZone,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("connected to Redis")

	a := &App{
		Config:    cfg,
		Pool:      pool,
		Redis:     rdb,
		Store:     st,
		Control:   control.NewStore(rdb, cfg.RedisKeyPrefix),
		Dedup:     dedup.NewFilter(rdb, cfg.RedisKeyPrefix, 0),
		Publisher: publisher,
	}

	a.Validator, err = validator.NewClient(validator.Config{
		Endpoint:   cfg.Validator.Endpoint,
		APIKey:     cfg.Validator.APIKey,
		Model:      cfg.Validator.Model,
		Timeout:    cfg.Validator.Timeout,
		BodyLimit:  cfg.Validator.BodyLimit,
		HTTPClient: validatorHTTPClient(ctx, cfg.Validator.OAuth),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Pipeline = pipeline.New(pipeline.Config{
		Store: st,
		Classifier: classify.New(classify.Config{
			ExcerptLimit: cfg.Validator.ExcerptLimit,
			Workers:      cfg.Pipeline.AttachmentWorkers,
		}),
		Validator:     a.Validator,
		State:         a.Control,
		Progress:      a.Control,
		Publisher:     publisher,
		MinBodyLength: cfg.Pipeline.MinBodyLength,
	})

	a.Capture = capture.NewRunner(capture.RunnerConfig{
		Source: mail.NewIMAPSource(mail.IMAPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			Mailbox:  cfg.Mail.Mailbox,
			TLS:      cfg.Mail.TLS,
			Timeout:  cfg.Mail.Timeout,
		}),
		Store:          st,
		Seen:           a.Dedup,
		Progress:       a.Control,
		AllowedSenders: cfg.Mail.AllowedSenders,
	})

	return a, nil
}

// validatorHTTPClient returns an oauth2 client-credentials client when
// configured, nil otherwise.
func validatorHTTPClient(ctx context.Context, o config.OAuthConfig) *http.Client {
	if !o.Enabled() {
		return nil
	}
	creds := &clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     o.TokenURL,
		Scopes:       o.Scopes,
	}
	slog.Info("validator uses client-credentials auth", "token_url", o.TokenURL)
	return creds.Client(ctx)
}

// Close releases the Redis client and the Postgres pool.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
