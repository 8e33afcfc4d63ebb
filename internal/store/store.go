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

// Package store provides the Postgres persistence for captured messages,
// their attachments, processing records, the append-only validation
// history and operator actions.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadyProcessed is returned by SaveOutcome when another run holds a
	// non-retryable record for the same message.
	ErrAlreadyProcessed = errors.New("message already has a processing record")

	// ErrNotFound is returned when a message or record does not exist.
	ErrNotFound = errors.New("not found")
)

// Connect opens a pgx connection pool for the given DSN.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return pool, nil
}

// DefaultMaxAttempts is how many pipeline runs a record waiting on the
// validator gets before it stops being a candidate.
const DefaultMaxAttempts = 3

// Options tunes candidate selection.
type Options struct {
	MaxAttempts int    // zero uses DefaultMaxAttempts
	TimeZone    string // IANA zone for the calendar-date filter; empty means UTC
}

// Store wraps the pool with the operations used by capture, the pipeline
// and the operator commands.
type Store struct {
	pool        *pgxpool.Pool
	maxAttempts int
	timeZone    string
}

// NewStore creates a store backed by the given pool. It ensures the schema
// exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool, opts Options) (*Store, error) {
	s := &Store{
		pool:        pool,
		maxAttempts: opts.MaxAttempts,
		timeZone:    opts.TimeZone,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.timeZone == "" {
		s.timeZone = "UTC"
	}
	if _, err := time.LoadLocation(s.timeZone); err != nil {
		return nil, fmt.Errorf("time zone %q: %w", s.timeZone, err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("store initialised")
	return s, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			id          BIGSERIAL PRIMARY KEY,
			message_id  TEXT NOT NULL UNIQUE,
			sender      TEXT NOT NULL DEFAULT '',
			subject     TEXT NOT NULL DEFAULT '',
			body        TEXT NOT NULL DEFAULT '',
			received_at TIMESTAMPTZ NOT NULL,
			captured_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_emails_received ON emails(received_at);

		CREATE TABLE IF NOT EXISTS email_attachments (
			id           BIGSERIAL PRIMARY KEY,
			email_id     BIGINT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
			position     INT NOT NULL,
			filename     TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			content      BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attachments_email ON email_attachments(email_id);

		CREATE TABLE IF NOT EXISTS processing_records (
			id              BIGSERIAL PRIMARY KEY,
			email_id        BIGINT NOT NULL UNIQUE REFERENCES emails(id),
			message_id      TEXT NOT NULL,
			status          TEXT NOT NULL,
			invalid_reason  TEXT NOT NULL DEFAULT '',
			observation     TEXT NOT NULL DEFAULT '',
			refs            JSONB NOT NULL DEFAULT '{}',
			classifications JSONB NOT NULL DEFAULT '[]',
			completeness    JSONB,
			verdict         JSONB,
			attempts        INT NOT NULL DEFAULT 1,
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW()
		);
		ALTER TABLE processing_records ADD COLUMN IF NOT EXISTS attempts INT NOT NULL DEFAULT 1;
		CREATE INDEX IF NOT EXISTS idx_records_status ON processing_records(status);

		CREATE TABLE IF NOT EXISTS validation_history (
			id               BIGSERIAL PRIMARY KEY,
			email_id         BIGINT NOT NULL REFERENCES emails(id),
			record_id        BIGINT NOT NULL REFERENCES processing_records(id),
			run_id           TEXT NOT NULL DEFAULT '',
			valido           BOOLEAN,
			coerencia        BOOLEAN,
			motivo           TEXT NOT NULL DEFAULT '',
			campos_faltantes JSONB NOT NULL DEFAULT '[]',
			acao_sugerida    TEXT NOT NULL,
			kind             TEXT NOT NULL,
			created_at       TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_history_email ON validation_history(email_id);

		CREATE TABLE IF NOT EXISTS operator_actions (
			id           BIGSERIAL PRIMARY KEY,
			record_id    BIGINT NOT NULL REFERENCES processing_records(id),
			kind         TEXT NOT NULL,
			usuario      TEXT NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			note         TEXT NOT NULL DEFAULT '',
			receipt_name TEXT NOT NULL DEFAULT '',
			receipt      BYTEA,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_actions_record ON operator_actions(record_id);
	`)
	return err
}
