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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MailConfig holds the mailbox settings for capture.
type MailConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Mailbox        string
	TLS            bool
	AllowedSenders []string
	Timeout        time.Duration
}

// OAuthConfig enables client-credentials authentication to the validator.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Enabled reports whether every required credential is present.
func (o OAuthConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != "" && o.ClientSecret != ""
}

// ValidatorConfig holds the external formal validator settings.
type ValidatorConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	Timeout      time.Duration
	BodyLimit    int
	ExcerptLimit int
	OAuth        OAuthConfig
}

// PipelineConfig holds the batch and scheduling settings.
type PipelineConfig struct {
	BatchLimit        int
	Interval          time.Duration
	CaptureInterval   time.Duration
	MinBodyLength     int
	AttachmentWorkers int
	MaxAttempts       int    // pipeline runs allowed for a record still waiting on the validator
	TimeZone          string // zone used by the calendar-date filter
}

// Config holds all configuration for the service.
type Config struct {
	DatabaseURL      string
	DatabaseMaxConns int

	RedisURL       string
	RedisKeyPrefix string
	EventsQueue    string

	Mail      MailConfig
	Validator ValidatorConfig
	Pipeline  PipelineConfig

	// Server (health check only)
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL      string `yaml:"url"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"database"`
	Redis struct {
		URL       string `yaml:"url"`
		KeyPrefix string `yaml:"key_prefix"`
		Queues    struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Mail struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		Username       string   `yaml:"username"`
		Password       string   `yaml:"password"`
		Mailbox        string   `yaml:"mailbox"`
		TLS            *bool    `yaml:"tls"`
		AllowedSenders []string `yaml:"allowed_senders"`
		Timeout        string   `yaml:"timeout"`
	} `yaml:"mail"`
	Validator struct {
		Endpoint     string `yaml:"endpoint"`
		APIKey       string `yaml:"api_key"`
		Model        string `yaml:"model"`
		Timeout      string `yaml:"timeout"`
		BodyLimit    int    `yaml:"body_limit"`
		ExcerptLimit int    `yaml:"excerpt_limit"`
		OAuth        struct {
			TokenURL     string   `yaml:"token_url"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"oauth"`
	} `yaml:"validator"`
	Pipeline struct {
		BatchLimit        int    `yaml:"batch_limit"`
		Interval          string `yaml:"interval"`
		CaptureInterval   string `yaml:"capture_interval"`
		MinBodyLength     int    `yaml:"min_body_length"`
		AttachmentWorkers int    `yaml:"attachment_workers"`
		MaxAttempts       int    `yaml:"max_attempts"`
		TimeZone          string `yaml:"time_zone"`
	} `yaml:"pipeline"`
	Port int `yaml:"port"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:      firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		DatabaseMaxConns: positiveOr(raw.Database.MaxConns, envOrDefaultInt("DATABASE_MAX_CONNS", 8)),
		RedisURL:         firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		RedisKeyPrefix:   firstNonEmpty(raw.Redis.KeyPrefix, envOrDefault("REDIS_KEY_PREFIX", "esteira:")),
		EventsQueue:      firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "esteira:eventos")),
		Port:             positiveOr(raw.Port, envOrDefaultInt("PORT", 8080)),
	}

	cfg.Mail = MailConfig{
		Host:           firstNonEmpty(raw.Mail.Host, os.Getenv("MAIL_HOST")),
		Port:           positiveOr(raw.Mail.Port, envOrDefaultInt("MAIL_PORT", 993)),
		Username:       firstNonEmpty(raw.Mail.Username, os.Getenv("MAIL_USER")),
		Password:       firstNonEmpty(raw.Mail.Password, os.Getenv("MAIL_PASS")),
		Mailbox:        firstNonEmpty(raw.Mail.Mailbox, "INBOX"),
		TLS:            raw.Mail.TLS == nil || *raw.Mail.TLS,
		AllowedSenders: raw.Mail.AllowedSenders,
		Timeout:        durationOr(raw.Mail.Timeout, envOrDefaultDuration("MAIL_TIMEOUT", 30*time.Second)),
	}

	cfg.Validator = ValidatorConfig{
		Endpoint:     firstNonEmpty(raw.Validator.Endpoint, envOrDefault("VALIDATOR_ENDPOINT", "https://api.openai.com/v1/chat/completions")),
		APIKey:       firstNonEmpty(raw.Validator.APIKey, os.Getenv("VALIDATOR_API_KEY")),
		Model:        firstNonEmpty(raw.Validator.Model, envOrDefault("VALIDATOR_MODEL", "gpt-4o")),
		Timeout:      durationOr(raw.Validator.Timeout, envOrDefaultDuration("VALIDATOR_TIMEOUT", 60*time.Second)),
		BodyLimit:    positiveOr(raw.Validator.BodyLimit, 800),
		ExcerptLimit: positiveOr(raw.Validator.ExcerptLimit, 500),
		OAuth: OAuthConfig{
			TokenURL:     raw.Validator.OAuth.TokenURL,
			ClientID:     raw.Validator.OAuth.ClientID,
			ClientSecret: raw.Validator.OAuth.ClientSecret,
			Scopes:       raw.Validator.OAuth.Scopes,
		},
	}

	cfg.Pipeline = PipelineConfig{
		BatchLimit:        positiveOr(raw.Pipeline.BatchLimit, envOrDefaultInt("PIPELINE_BATCH_LIMIT", 100)),
		Interval:          durationOr(raw.Pipeline.Interval, envOrDefaultDuration("PIPELINE_INTERVAL", 5*time.Minute)),
		CaptureInterval:   durationOr(raw.Pipeline.CaptureInterval, envOrDefaultDuration("CAPTURE_INTERVAL", 10*time.Minute)),
		MinBodyLength:     positiveOr(raw.Pipeline.MinBodyLength, 20),
		AttachmentWorkers: positiveOr(raw.Pipeline.AttachmentWorkers, 4),
		MaxAttempts:       positiveOr(raw.Pipeline.MaxAttempts, envOrDefaultInt("PIPELINE_MAX_ATTEMPTS", 3)),
		TimeZone:          firstNonEmpty(raw.Pipeline.TimeZone, envOrDefault("PIPELINE_TIME_ZONE", "America/Sao_Paulo")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database.url is not set: check config.yaml or DATABASE_URL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
