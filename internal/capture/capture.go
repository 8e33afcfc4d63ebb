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

// Package capture drains the mailbox into the store. It is the
// run_capture entry point used by the scheduler and the CLI.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofjud/esteira/internal/control"
	"github.com/gofjud/esteira/internal/mail"
	"github.com/gofjud/esteira/internal/models"
)

// MessageStore persists captured messages.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.RawMessage) (bool, error)
}

// SeenFilter is the optional pre-filter in front of the store.
type SeenFilter interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Mark(ctx context.Context, messageID string) error
}

// Result summarises a capture run.
type Result struct {
	Saved     int           `json:"salvos"`
	Duplicate int           `json:"duplicados"`
	Failed    int           `json:"falhas"`
	Ignored   int           `json:"ignorados"`
	Elapsed   time.Duration `json:"-"`
}

// Runner performs one capture pass per Run call.
type Runner struct {
	source   mail.Source
	store    MessageStore
	seen     SeenFilter
	progress control.ProgressSink
	allowed  map[string]bool
}

// RunnerConfig holds dependencies for the capture runner. Seen and
// Progress are optional. An empty AllowedSenders accepts every sender.
type RunnerConfig struct {
	Source         mail.Source
	Store          MessageStore
	Seen           SeenFilter
	Progress       control.ProgressSink
	AllowedSenders []string
}

// NewRunner creates a capture runner.
func NewRunner(cfg RunnerConfig) *Runner {
	allowed := make(map[string]bool, len(cfg.AllowedSenders))
	for _, s := range cfg.AllowedSenders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			allowed[s] = true
		}
	}
	return &Runner{
		source:   cfg.Source,
		store:    cfg.Store,
		seen:     cfg.Seen,
		progress: cfg.Progress,
		allowed:  allowed,
	}
}

// Run drains the mailbox once. A failed retrieval or save is counted and
// the session continues; only a failure to open the session is returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	session, err := r.source.Open(ctx)
	if err != nil {
		return result, fmt.Errorf("open mail session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("close mail session", "error", err)
		}
	}()

	total := session.Count()
	slog.Info("starting capture", "messages", total)

	for pos := 1; pos <= total; pos++ {
		if ctx.Err() != nil {
			break
		}
		r.report(ctx, models.Progress{Total: total, Current: pos})
		r.captureOne(ctx, session, pos, total, result)
	}
	r.report(ctx, models.Progress{Total: total, Current: total, Done: true})

	result.Elapsed = time.Since(start)
	slog.Info("capture complete",
		"saved", result.Saved,
		"duplicate", result.Duplicate,
		"failed", result.Failed,
		"ignored", result.Ignored,
		"elapsed", result.Elapsed,
	)
	return result, ctx.Err()
}

func (r *Runner) captureOne(ctx context.Context, session mail.Session, pos, total int, result *Result) {
	msg, err := session.Retrieve(ctx, pos)
	if err != nil {
		slog.Error("retrieve message failed", "position", pos, "total", total, "error", err)
		result.Failed++
		return
	}

	if !r.senderAllowed(msg.Sender) {
		slog.Debug("sender not allowed", "position", pos, "sender", msg.Sender)
		result.Ignored++
		return
	}

	if r.seen != nil {
		seen, err := r.seen.Seen(ctx, msg.MessageID)
		if err != nil {
			slog.Warn("dedup check failed", "message_id", msg.MessageID, "error", err)
		} else if seen {
			result.Duplicate++
			return
		}
	}

	inserted, err := r.store.SaveMessage(ctx, msg)
	if err != nil {
		slog.Error("save message failed",
			"position", pos,
			"message_id", msg.MessageID,
			"error", err,
		)
		result.Failed++
		return
	}
	r.mark(ctx, msg.MessageID)

	if !inserted {
		result.Duplicate++
		return
	}
	result.Saved++
	slog.Info("message captured",
		"position", pos,
		"message_id", msg.MessageID,
		"sender", msg.Sender,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
}

func (r *Runner) senderAllowed(sender string) bool {
	return len(r.allowed) == 0 || r.allowed[strings.ToLower(sender)]
}

func (r *Runner) mark(ctx context.Context, messageID string) {
	if r.seen == nil {
		return
	}
	if err := r.seen.Mark(ctx, messageID); err != nil {
		slog.Warn("dedup mark failed", "message_id", messageID, "error", err)
	}
}

func (r *Runner) report(ctx context.Context, p models.Progress) {
	if r.progress == nil {
		return
	}
	if err := r.progress.SetProgress(ctx, control.JobCapture, p); err != nil {
		slog.Warn("capture progress update failed", "error", err)
	}
}
