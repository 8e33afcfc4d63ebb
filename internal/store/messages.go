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

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofjud/esteira/internal/models"
	"github.com/jackc/pgx/v5"
)

// SaveMessage stores a captured message and its attachments in one
// transaction. inserted is false when the message identifier already
// exists; nothing is written in that case.
func (s *Store) SaveMessage(ctx context.Context, msg *models.RawMessage) (inserted bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO emails (message_id, sender, subject, body, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id
	`, msg.MessageID, msg.Sender, msg.Subject, msg.Body, msg.ReceivedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert email: %w", err)
	}

	if len(msg.Attachments) > 0 {
		rows := make([][]any, 0, len(msg.Attachments))
		for i, a := range msg.Attachments {
			rows = append(rows, []any{id, i, a.Filename, a.ContentType, a.Content})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"email_attachments"},
			[]string{"email_id", "position", "filename", "content_type", "content"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return false, fmt.Errorf("insert attachments: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	msg.ID = id
	return true, nil
}

// candidateFilter scopes a candidate query.
type candidateFilter struct {
	limit       int
	date        *time.Time
	maxAttempts int
	timeZone    string
}

// buildCandidateQuery selects messages without a processing record, plus
// those whose record is still waiting on the validator and has attempts
// left. Unclaimed messages come first so retries never crowd them out.
// date, when set, restricts to one calendar day of received_at in the
// filter's time zone.
func buildCandidateQuery(f candidateFilter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	args = append(args, f.maxAttempts)
	b.WriteString(`SELECT e.id, e.message_id, e.sender, e.subject, e.body, e.received_at,
		       COALESCE(r.attempts, 0)
		FROM emails e
		LEFT JOIN processing_records r ON r.email_id = e.id
		WHERE (r.id IS NULL OR (r.status = '`)
	b.WriteString(string(models.StatusAwaiting))
	b.WriteString(`' AND r.attempts < $1))`)
	if f.date != nil {
		args = append(args, f.timeZone, f.date.Format("2006-01-02"))
		fmt.Fprintf(&b, " AND (e.received_at AT TIME ZONE $%d::text)::date = $%d::date", len(args)-1, len(args))
	}
	b.WriteString(" ORDER BY (r.id IS NULL) DESC, e.received_at, e.id")
	if f.limit > 0 {
		args = append(args, f.limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// ListCandidates returns up to limit messages the pipeline should process:
// unclaimed ones oldest first, then retries. Attachments are not loaded.
// Attempts carries the retry count the claim is checked against.
func (s *Store) ListCandidates(ctx context.Context, limit int, date *time.Time) ([]models.RawMessage, error) {
	query, args := buildCandidateQuery(candidateFilter{
		limit:       limit,
		date:        date,
		maxAttempts: s.maxAttempts,
		timeZone:    s.timeZone,
	})
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var msgs []models.RawMessage
	for rows.Next() {
		var m models.RawMessage
		if err := rows.Scan(&m.ID, &m.MessageID, &m.Sender, &m.Subject, &m.Body, &m.ReceivedAt, &m.Attempts); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LoadAttachments returns the attachments of a message in capture order.
func (s *Store) LoadAttachments(ctx context.Context, emailID int64) ([]models.Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, content_type, content
		FROM email_attachments
		WHERE email_id = $1
		ORDER BY position
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.Filename, &a.ContentType, &a.Content); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

// GetMessage loads a message and its attachments by mail identifier.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*models.RawMessage, error) {
	var m models.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT id, message_id, sender, subject, body, received_at
		FROM emails
		WHERE message_id = $1
	`, messageID).Scan(&m.ID, &m.MessageID, &m.Sender, &m.Subject, &m.Body, &m.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	m.Attachments, err = s.LoadAttachments(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
