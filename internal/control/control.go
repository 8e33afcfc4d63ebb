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

// Package control keeps the operator-facing control state in Redis: the
// pipeline pause flag and the progress snapshots of running jobs.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofjud/esteira/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "esteira:"

	// Progress snapshot names.
	JobPipeline = "pipeline"
	JobCapture  = "captura"
)

// StateProvider is read by the pipeline before each batch.
type StateProvider interface {
	IsPaused(ctx context.Context) (bool, error)
}

// ProgressSink receives the progress snapshot of a running job. Every call
// replaces the previous snapshot.
type ProgressSink interface {
	SetProgress(ctx context.Context, job string, p models.Progress) error
}

// Store is the Redis-backed control state.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// NewStore creates a control store. An empty prefix uses "esteira:".
func NewStore(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) pauseKey() string { return s.prefix + "pausado" }

func (s *Store) progressKey(job string) string { return s.prefix + "progresso:" + job }

// Pause sets the pause flag. Running batches finish; the next one is skipped.
func (s *Store) Pause(ctx context.Context) error {
	if err := s.rdb.Set(ctx, s.pauseKey(), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("set pause flag: %w", err)
	}
	return nil
}

// Resume clears the pause flag.
func (s *Store) Resume(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.pauseKey()).Err(); err != nil {
		return fmt.Errorf("clear pause flag: %w", err)
	}
	return nil
}

// IsPaused reports whether the pause flag is set.
func (s *Store) IsPaused(ctx context.Context) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.pauseKey()).Result()
	if err != nil {
		return false, fmt.Errorf("read pause flag: %w", err)
	}
	return n > 0, nil
}

// SetProgress overwrites the snapshot for job with a single SET.
func (s *Store) SetProgress(ctx context.Context, job string, p models.Progress) error {
	data, err := EncodeProgress(p)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.progressKey(job), data, 0).Err(); err != nil {
		return fmt.Errorf("set progress %s: %w", job, err)
	}
	return nil
}

// Progress returns the last snapshot for job. A job that never reported
// returns the zero snapshot marked done.
func (s *Store) Progress(ctx context.Context, job string) (models.Progress, error) {
	data, err := s.rdb.Get(ctx, s.progressKey(job)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Progress{Done: true}, nil
	}
	if err != nil {
		return models.Progress{}, fmt.Errorf("get progress %s: %w", job, err)
	}
	return DecodeProgress(data)
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// EncodeProgress serialises a snapshot.
func EncodeProgress(p models.Progress) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	return data, nil
}

// DecodeProgress parses a snapshot written by EncodeProgress.
func DecodeProgress(data []byte) (models.Progress, error) {
	var p models.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Progress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return p, nil
}
