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

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	s := New(Job{
		Name:     "pipeline",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("runs = %d, want at least 3", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestScheduler_FailingJobKeepsRunning(t *testing.T) {
	var runs atomic.Int32
	s := New(Job{
		Name:     "captura",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			if runs.Add(1) == 1 {
				panic("first run explodes")
			}
			return errors.New("mailbox unavailable")
		},
	})
	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("runs = %d, want at least 3", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestScheduler_SkipsDisabledJobs(t *testing.T) {
	s := New(Job{Name: "off", Interval: 0, Run: func(context.Context) error { return nil }})
	if len(s.jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(s.jobs))
	}
}

// TestScheduler_Stop verifies graceful shutdown.
func TestScheduler_Stop(t *testing.T) {
	started := make(chan struct{})
	s := New(Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	s.Start(context.Background())
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return within 2 seconds")
	}
}
