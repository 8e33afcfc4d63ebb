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

// Package queue publishes processing-record events to a Redis list read by
// the worklist UI.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofjud/esteira/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecordEvent announces that a processing record was written.
type RecordEvent struct {
	ID        string              `json:"id"`
	RecordID  int64               `json:"record_id"`
	MessageID string              `json:"message_id"`
	Status    models.RecordStatus `json:"status"`
	Action    models.Action       `json:"acao_sugerida,omitempty"`
	RunID     string              `json:"run_id,omitempty"`
	At        time.Time           `json:"at"`
}

// NewRecordEvent builds the event for a persisted record.
func NewRecordEvent(rec *models.ProcessingRecord, runID string) RecordEvent {
	ev := RecordEvent{
		ID:        uuid.New().String(),
		RecordID:  rec.ID,
		MessageID: rec.MessageID,
		Status:    rec.Status,
		RunID:     runID,
		At:        time.Now().UTC(),
	}
	if rec.Verdict != nil {
		ev.Action = rec.Verdict.Action
	}
	return ev
}

// Publisher pushes record events onto a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified list.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// PublishRecordEvent serialises ev and LPUSHes it to the list.
func (p *Publisher) PublishRecordEvent(ctx context.Context, ev RecordEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal record event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published record event",
		"event_id", ev.ID,
		"record_id", ev.RecordID,
		"status", ev.Status,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
