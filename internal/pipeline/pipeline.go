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

// Package pipeline turns captured messages into processing records:
// reference extraction, attachment classification, completeness, the
// external formal validation and persistence, one message at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gofjud/esteira/internal/completeness"
	"github.com/gofjud/esteira/internal/control"
	"github.com/gofjud/esteira/internal/models"
	"github.com/gofjud/esteira/internal/queue"
	"github.com/gofjud/esteira/internal/refs"
	"github.com/gofjud/esteira/internal/store"
	"github.com/gofjud/esteira/internal/validator"
)

// Store is the persistence the pipeline needs.
type Store interface {
	ListCandidates(ctx context.Context, limit int, date *time.Time) ([]models.RawMessage, error)
	LoadAttachments(ctx context.Context, emailID int64) ([]models.Attachment, error)
	GetMessage(ctx context.Context, messageID string) (*models.RawMessage, error)
	SaveOutcome(ctx context.Context, rec *models.ProcessingRecord, opts store.SaveOptions) error
}

// Classifier classifies every attachment of a message.
type Classifier interface {
	Message(ctx context.Context, attachments []models.Attachment) ([]models.AttachmentClassification, error)
}

// Validator asks the external service for a verdict. It never fails.
type Validator interface {
	Validate(ctx context.Context, req validator.Request) models.ValidationVerdict
}

// Publisher announces persisted records.
type Publisher interface {
	PublishRecordEvent(ctx context.Context, ev queue.RecordEvent) error
}

// Options scopes a batch run.
type Options struct {
	Limit int        // 0 means no limit
	Date  *time.Time // only messages received on this calendar day
}

// RunResult summarises a batch run.
type RunResult struct {
	RunID      string        `json:"run_id,omitempty"`
	Paused     bool          `json:"pausado"`
	Candidates int           `json:"candidatos"`
	Processed  int           `json:"processados"`
	Duplicate  int           `json:"duplicados"`
	Failed     int           `json:"falhas"`
	Elapsed    time.Duration `json:"-"`
}

// Config holds the pipeline dependencies. Progress and Publisher are
// optional.
type Config struct {
	Store         Store
	Classifier    Classifier
	Validator     Validator
	State         control.StateProvider
	Progress      control.ProgressSink
	Publisher     Publisher
	MinBodyLength int
}

// Pipeline processes batches of captured messages.
type Pipeline struct {
	store         Store
	classifier    Classifier
	validator     Validator
	state         control.StateProvider
	progress      control.ProgressSink
	publisher     Publisher
	minBodyLength int
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	minBody := cfg.MinBodyLength
	if minBody <= 0 {
		minBody = completeness.DefaultMinBodyLength
	}
	return &Pipeline{
		store:         cfg.Store,
		classifier:    cfg.Classifier,
		validator:     cfg.Validator,
		state:         cfg.State,
		progress:      cfg.Progress,
		publisher:     cfg.Publisher,
		minBodyLength: minBody,
	}
}

// Run processes one batch. The pause flag is read first; a paused
// pipeline returns without touching the store or the progress snapshot.
// Per-message failures are counted and never abort the batch.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	paused, err := p.state.IsPaused(ctx)
	if err != nil {
		return result, fmt.Errorf("read pause flag: %w", err)
	}
	if paused {
		slog.Info("pipeline paused, skipping batch")
		result.Paused = true
		return result, nil
	}

	result.RunID = uuid.New().String()
	candidates, err := p.store.ListCandidates(ctx, opts.Limit, opts.Date)
	if err != nil {
		return result, fmt.Errorf("list candidates: %w", err)
	}
	result.Candidates = len(candidates)
	total := len(candidates)

	slog.Info("starting pipeline batch",
		"run_id", result.RunID,
		"candidates", total,
		"limit", opts.Limit,
	)
	p.report(ctx, models.Progress{Total: total})

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		msg := &candidates[i]

		_, err := p.safeProcess(ctx, msg, result.RunID, true)
		switch {
		case errors.Is(err, store.ErrAlreadyProcessed):
			slog.Info("message claimed by another run",
				"run_id", result.RunID,
				"message_id", msg.MessageID,
			)
			result.Duplicate++
		case err != nil:
			slog.Error("message processing failed",
				"run_id", result.RunID,
				"message_id", msg.MessageID,
				"position", i+1,
				"total", total,
				"error", err,
			)
			result.Failed++
		default:
			result.Processed++
		}
		p.report(ctx, models.Progress{Total: total, Current: i + 1})
	}
	p.report(ctx, models.Progress{Total: total, Current: total, Done: true})

	result.Elapsed = time.Since(start)
	slog.Info("pipeline batch complete",
		"run_id", result.RunID,
		"processed", result.Processed,
		"duplicate", result.Duplicate,
		"failed", result.Failed,
		"elapsed", result.Elapsed,
	)
	return result, ctx.Err()
}

// Revalidate reprocesses an already captured message and replaces its
// pipeline result. Operator terminal states are kept by the store.
func (p *Pipeline) Revalidate(ctx context.Context, messageID string) (*models.ProcessingRecord, error) {
	msg, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message %s: %w", messageID, err)
	}
	runID := uuid.New().String()
	rec, err := p.safeProcess(ctx, msg, runID, false)
	if err != nil {
		return nil, err
	}
	slog.Info("message revalidated",
		"run_id", runID,
		"message_id", messageID,
		"status", rec.Status,
	)
	return rec, nil
}

// safeProcess turns a panic inside one message into an error.
func (p *Pipeline) safeProcess(ctx context.Context, msg *models.RawMessage, runID string, claim bool) (rec *models.ProcessingRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", msg.MessageID, r)
		}
	}()
	return p.process(ctx, msg, runID, claim)
}

func (p *Pipeline) process(ctx context.Context, msg *models.RawMessage, runID string, claim bool) (*models.ProcessingRecord, error) {
	if msg.Attachments == nil {
		atts, err := p.store.LoadAttachments(ctx, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("load attachments: %w", err)
		}
		msg.Attachments = atts
	}

	rec, err := p.Evaluate(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := p.store.SaveOutcome(ctx, rec, store.SaveOptions{Claim: claim, Attempts: msg.Attempts, RunID: runID}); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			return nil, err
		}
		return nil, fmt.Errorf("save outcome: %w", err)
	}

	slog.Info("message processed",
		"run_id", runID,
		"message_id", msg.MessageID,
		"record_id", rec.ID,
		"status", rec.Status,
	)
	p.publish(ctx, rec, runID)
	return rec, nil
}

// Evaluate computes the processing record for a message without
// persisting it.
func (p *Pipeline) Evaluate(ctx context.Context, msg *models.RawMessage) (*models.ProcessingRecord, error) {
	rec := &models.ProcessingRecord{
		MessageRef:      msg.ID,
		MessageID:       msg.MessageID,
		References:      refs.FromMessage(msg.Subject, msg.Body),
		Classifications: []models.AttachmentClassification{},
	}

	if status, ok := completeness.Triage(msg, p.minBodyLength); ok {
		rec.Status = status
		rec.Observation = earlyExitObservation(status, p.minBodyLength)
		return rec, nil
	}

	classes, err := p.classifier.Message(ctx, msg.Attachments)
	if err != nil {
		return nil, fmt.Errorf("classify attachments: %w", err)
	}
	rec.Classifications = classes

	comp := completeness.Validate(classes, msg.Subject, msg.Body)
	rec.Completeness = &comp

	req := validator.Request{
		Subject:         msg.Subject,
		Body:            msg.Body,
		AttachmentNames: msg.AttachmentNames(),
		Excerpts:        make([]string, 0, len(classes)),
		References:      rec.References.Fields(),
	}
	for _, c := range classes {
		req.Excerpts = append(req.Excerpts, c.Extraction.Excerpt)
	}
	verdict := p.validator.Validate(ctx, req)
	rec.Verdict = &verdict

	rec.Status, rec.InvalidReason = DeriveStatus(comp, verdict)
	rec.Observation = joinObservations(classes)
	return rec, nil
}

func (p *Pipeline) publish(ctx context.Context, rec *models.ProcessingRecord, runID string) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishRecordEvent(ctx, queue.NewRecordEvent(rec, runID)); err != nil {
		slog.Warn("publish record event failed", "record_id", rec.ID, "error", err)
	}
}

func (p *Pipeline) report(ctx context.Context, prog models.Progress) {
	if p.progress == nil {
		return
	}
	if err := p.progress.SetProgress(ctx, control.JobPipeline, prog); err != nil {
		slog.Warn("pipeline progress update failed", "error", err)
	}
}
