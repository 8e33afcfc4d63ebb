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

// Package dedup remembers which mailbox message identifiers were already
// captured, so a capture run can skip them without a database round-trip.
// The unique constraint on emails.message_id stays authoritative.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a captured identifier is remembered.
	DefaultTTL = 30 * 24 * time.Hour

	defaultPrefix = "esteira:"
)

// Filter tracks captured message identifiers.
type Filter struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewFilter creates a dedup filter backed by Redis. Keys live under
// prefix + "captured:"; an empty prefix uses "esteira:" and a zero ttl
// uses DefaultTTL.
func NewFilter(rdb *redis.Client, prefix string, ttl time.Duration) *Filter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key used for a message identifier.
func (f *Filter) Key(messageID string) string {
	return f.prefix + "captured:" + messageID
}

// Seen reports whether the identifier was marked before.
func (f *Filter) Seen(ctx context.Context, messageID string) (bool, error) {
	_, err := f.rdb.Get(ctx, f.Key(messageID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup GET: %w", err)
	}
	return true, nil
}

// Mark records the identifier. Callers mark only after the message is
// durably stored.
func (f *Filter) Mark(ctx context.Context, messageID string) error {
	if err := f.rdb.Set(ctx, f.Key(messageID), 1, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}
