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

// Package scheduler runs the capture and pipeline jobs on fixed intervals
// inside the long-running worker.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one periodic task. Run errors are logged; the next tick retries.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each job in its own loop. A job never overlaps itself.
type Scheduler struct {
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Jobs with a non-positive interval are skipped.
func New(jobs ...Job) *Scheduler {
	s := &Scheduler{}
	for _, j := range jobs {
		if j.Interval <= 0 || j.Run == nil {
			slog.Warn("job disabled", "job", j.Name)
			continue
		}
		s.jobs = append(s.jobs, j)
	}
	return s
}

// Start launches every job. Each runs once immediately, then on its ticker.
func (s *Scheduler) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j Job) {
			defer s.wg.Done()
			s.loop(loopCtx, j)
		}(j)
		slog.Info("job scheduled", "job", j.Name, "interval", j.Interval)
	}
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	runJob(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runJob(ctx, j)
		}
	}
}

func runJob(ctx context.Context, j Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job", j.Name, "panic", r)
		}
	}()
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("job failed", "job", j.Name, "error", err)
	}
}

// Stop cancels the loops and waits for running jobs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("scheduler stopped")
}
