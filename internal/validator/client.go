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

// Package validator is the client for the external formal validator, a
// chat-completions service that judges whether a judicial reply is fit
// to be filed.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofjud/esteira/internal/models"
)

const (
	defaultModel     = "gpt-4o"
	defaultTimeout   = 60 * time.Second
	defaultBodyLimit = 800
)

// Request is everything the validator sees about one reply.
type Request struct {
	Subject         string
	Body            string
	AttachmentNames []string
	Excerpts        []string
	References      map[string]any
}

// Config configures a Client.
type Config struct {
	Endpoint  string // full chat-completions URL
	APIKey    string
	Model     string
	Timeout   time.Duration
	BodyLimit int

	// HTTPClient is used as-is when set, e.g. an oauth2 client.
	HTTPClient *http.Client
}

// Client calls the external validator.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	bodyLimit  int
	httpClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a validator client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("validator endpoint is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = defaultBodyLimit
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		bodyLimit:  cfg.BodyLimit,
		httpClient: httpClient,
	}, nil
}

// Validate asks the service for a verdict. It never fails: transport
// errors, timeouts and unparseable answers all come back as a pending
// verdict with the reason in Reason.
func (c *Client) Validate(ctx context.Context, req Request) models.ValidationVerdict {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.complete(ctx, req)
	if err != nil {
		slog.Warn("validator call failed", "subject", req.Subject, "error", err)
		return Normalize(Result{Err: err})
	}

	v := Normalize(Parse(content))
	if v.Kind == models.VerdictMalformed {
		slog.Warn("validator returned non-JSON content", "subject", req.Subject, "length", len(content))
	}
	return v
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	prompt, err := BuildPrompt(req, c.bodyLimit)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("validator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("validator error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("validator returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
