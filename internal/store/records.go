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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofjud/esteira/internal/models"
	"github.com/jackc/pgx/v5"
)

// SaveOptions controls how SaveOutcome treats an existing record.
type SaveOptions struct {
	// Claim only replaces a record that is still waiting on the validator
	// and whose attempt count still equals Attempts, the count read when
	// the message was listed. Revalidation passes Claim=false to replace
	// any pipeline result.
	Claim    bool
	Attempts int
	RunID    string
}

// upsertRecordSQL keeps operator terminal states and, when claiming,
// refuses to touch a record that is not retryable or that another run
// updated since it was listed. No returned row means the claim lost.
const upsertRecordSQL = `
	INSERT INTO processing_records
		(email_id, message_id, status, invalid_reason, observation,
		 refs, classifications, completeness, verdict)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (email_id) DO UPDATE SET
		status = CASE
			WHEN processing_records.status IN ('protocolado', 'reportado') THEN processing_records.status
			ELSE EXCLUDED.status
		END,
		invalid_reason  = EXCLUDED.invalid_reason,
		observation     = EXCLUDED.observation,
		refs            = EXCLUDED.refs,
		classifications = EXCLUDED.classifications,
		completeness    = EXCLUDED.completeness,
		verdict         = EXCLUDED.verdict,
		attempts        = processing_records.attempts + 1,
		updated_at      = NOW()
	WHERE NOT $10::boolean
	   OR (processing_records.status = 'aguardando' AND processing_records.attempts = $11::int)
	RETURNING id, status, attempts, created_at, updated_at
`

// SaveOutcome upserts the processing record and, when it carries a
// verdict, appends a validation history row, in one transaction. rec.ID,
// rec.Status, rec.Attempts and the timestamps are refreshed from the
// database.
func (s *Store) SaveOutcome(ctx context.Context, rec *models.ProcessingRecord, opts SaveOptions) error {
	refs, err := json.Marshal(rec.References)
	if err != nil {
		return fmt.Errorf("marshal references: %w", err)
	}
	classes := rec.Classifications
	if classes == nil {
		classes = []models.AttachmentClassification{}
	}
	classJSON, err := json.Marshal(classes)
	if err != nil {
		return fmt.Errorf("marshal classifications: %w", err)
	}
	var completeness, verdict []byte
	if rec.Completeness != nil {
		if completeness, err = models.MarshalSummary(rec.Completeness); err != nil {
			return err
		}
	}
	if rec.Verdict != nil {
		if verdict, err = models.MarshalSummary(rec.Verdict); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, upsertRecordSQL,
		rec.MessageRef, rec.MessageID, rec.Status, rec.InvalidReason, rec.Observation,
		refs, classJSON, completeness, verdict, opts.Claim, opts.Attempts,
	).Scan(&rec.ID, &rec.Status, &rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	if v := rec.Verdict; v != nil {
		missing, err := json.Marshal(v.MissingFields)
		if err != nil {
			return fmt.Errorf("marshal missing fields: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO validation_history
				(email_id, record_id, run_id, valido, coerencia, motivo,
				 campos_faltantes, acao_sugerida, kind)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.MessageRef, rec.ID, opts.RunID, v.Valid.Ptr(), v.Coherent.Ptr(), v.Reason,
			missing, v.Action, v.Kind); err != nil {
			return fmt.Errorf("append validation history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRecord loads a processing record by id.
func (s *Store) GetRecord(ctx context.Context, id int64) (*models.ProcessingRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email_id, message_id, status, invalid_reason, observation,
		       refs, classifications, completeness, verdict, attempts, created_at, updated_at
		FROM processing_records
		WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// HistoryEntry is one row of the validation history.
type HistoryEntry struct {
	RunID   string
	Verdict models.ValidationVerdict
	At      time.Time
}

// ListHistory returns the validation attempts for a message, oldest first.
func (s *Store) ListHistory(ctx context.Context, emailID int64) ([]HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, valido, coerencia, motivo, campos_faltantes, acao_sugerida, kind, created_at
		FROM validation_history
		WHERE email_id = $1
		ORDER BY id
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e               HistoryEntry
			valid, coherent *bool
			missing         []byte
		)
		if err := rows.Scan(&e.RunID, &valid, &coherent, &e.Verdict.Reason, &missing,
			&e.Verdict.Action, &e.Verdict.Kind, &e.At); err != nil {
			return nil, err
		}
		e.Verdict.Valid = models.TriFromPtr(valid)
		e.Verdict.Coherent = models.TriFromPtr(coherent)
		if err := json.Unmarshal(missing, &e.Verdict.MissingFields); err != nil {
			return nil, fmt.Errorf("decode missing fields: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FileProtocol records that an operator filed the reply with the court.
func (s *Store) FileProtocol(ctx context.Context, recordID int64, user, receiptName string, receipt []byte, note string) (*models.OperatorAction, error) {
	return s.recordAction(ctx, models.OperatorAction{
		RecordID:    recordID,
		Kind:        models.ActionKindFile,
		User:        user,
		Note:        note,
		ReceiptName: receiptName,
		Receipt:     receipt,
	}, models.StatusFiled)
}

// ReportDivergence records that an operator flagged the reply as divergent.
func (s *Store) ReportDivergence(ctx context.Context, recordID int64, user, reason, note string) (*models.OperatorAction, error) {
	return s.recordAction(ctx, models.OperatorAction{
		RecordID: recordID,
		Kind:     models.ActionKindReport,
		User:     user,
		Reason:   reason,
		Note:     note,
	}, models.StatusReported)
}

func (s *Store) recordAction(ctx context.Context, a models.OperatorAction, status models.RecordStatus) (*models.OperatorAction, error) {
	if a.User == "" {
		return nil, fmt.Errorf("operator identity is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE processing_records
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, a.RecordID)
	if err != nil {
		return nil, fmt.Errorf("update record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO operator_actions
			(record_id, kind, usuario, reason, note, receipt_name, receipt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, a.RecordID, a.Kind, a.User, a.Reason, a.Note, a.ReceiptName, a.Receipt).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert operator action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &a, nil
}

// scanRecord scans a single row into a ProcessingRecord.
func scanRecord(row pgx.Row) (*models.ProcessingRecord, error) {
	var (
		r                                    models.ProcessingRecord
		refs, classes, completeness, verdict []byte
	)
	if err := row.Scan(
		&r.ID, &r.MessageRef, &r.MessageID, &r.Status, &r.InvalidReason, &r.Observation,
		&refs, &classes, &completeness, &verdict, &r.Attempts, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &r.References); err != nil {
		return nil, fmt.Errorf("decode references: %w", err)
	}
	if err := json.Unmarshal(classes, &r.Classifications); err != nil {
		return nil, fmt.Errorf("decode classifications: %w", err)
	}
	if completeness != nil {
		r.Completeness = &models.CompletenessVerdict{}
		if err := json.Unmarshal(completeness, r.Completeness); err != nil {
			return nil, fmt.Errorf("decode completeness: %w", err)
		}
	}
	if verdict != nil {
		r.Verdict = &models.ValidationVerdict{}
		if err := json.Unmarshal(verdict, r.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
	}
	return &r, nil
}
