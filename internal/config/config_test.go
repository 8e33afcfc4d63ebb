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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
database:
  url: ${TEST_DB_URL}
redis:
  url: redis://cache:6379/1
mail:
  host: imap.banco.example
  username: oficios
  password: ${TEST_MAIL_PASS}
  tls: false
  allowed_senders:
    - respostaoficios@banco.example
  timeout: 15s
validator:
  endpoint: http://validator.local/v1/chat/completions
  timeout: 20s
  oauth:
    token_url: https://login.example/token
    client_id: esteira
    client_secret: s3cret
pipeline:
  batch_limit: 25
  interval: 2m
  min_body_length: -3
`

func TestParse_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://u:p@db/esteira")
	t.Setenv("TEST_MAIL_PASS", "hunter2")

	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.DatabaseURL != "postgres://u:p@db/esteira" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.Mail.Password != "hunter2" || cfg.Mail.TLS || cfg.Mail.Port != 993 || cfg.Mail.Mailbox != "INBOX" {
		t.Errorf("Mail = %+v", cfg.Mail)
	}
	if cfg.Mail.Timeout != 15*time.Second {
		t.Errorf("Mail.Timeout = %v", cfg.Mail.Timeout)
	}
	if cfg.Validator.Timeout != 20*time.Second || cfg.Validator.BodyLimit != 800 {
		t.Errorf("Validator = %+v", cfg.Validator)
	}
	if !cfg.Validator.OAuth.Enabled() {
		t.Error("oauth should be enabled")
	}
	if cfg.Pipeline.BatchLimit != 25 || cfg.Pipeline.Interval != 2*time.Minute {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MinBodyLength != 20 {
		t.Errorf("MinBodyLength = %d, want default 20 for a negative value", cfg.Pipeline.MinBodyLength)
	}
	if cfg.Pipeline.CaptureInterval != 10*time.Minute {
		t.Errorf("CaptureInterval = %v", cfg.Pipeline.CaptureInterval)
	}
}

func TestParse_RetryAndTimeZoneSettings(t *testing.T) {
	t.Setenv("PIPELINE_MAX_ATTEMPTS", "")
	t.Setenv("PIPELINE_TIME_ZONE", "")

	cfg, err := Parse([]byte("database:\n  url: postgres://db/esteira\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Pipeline.MaxAttempts != 3 || cfg.Pipeline.TimeZone != "America/Sao_Paulo" {
		t.Errorf("defaults = %d %q", cfg.Pipeline.MaxAttempts, cfg.Pipeline.TimeZone)
	}

	cfg, err = Parse([]byte("database:\n  url: postgres://db/esteira\npipeline:\n  max_attempts: 5\n  time_zone: UTC\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Pipeline.MaxAttempts != 5 || cfg.Pipeline.TimeZone != "UTC" {
		t.Errorf("overrides = %d %q", cfg.Pipeline.MaxAttempts, cfg.Pipeline.TimeZone)
	}
}

func TestParse_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Parse([]byte("redis:\n  url: redis://x\n")); err == nil {
		t.Fatal("expected error for missing database url")
	}
}

func TestLoad_ReadsConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  url: postgres://localhost/esteira\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Mail.TLS {
		t.Error("TLS should default to true")
	}
}
