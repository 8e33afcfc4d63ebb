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

package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofjud/esteira/internal/models"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, endpoint string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Config{Endpoint: endpoint, APIKey: "test", Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

const validAnswer = `{"valido": true, "campos_faltantes": [], "coerencia": true, "motivo": "AÇÃO: Protocolar.", "acao_sugerida": "protocolar"}`

func TestClient_ValidateParsesAnswer(t *testing.T) {
	srv := chatServer(t, validAnswer)
	defer srv.Close()

	got := newTestClient(t, srv.URL, time.Second).Validate(context.Background(), Request{Subject: "RESPOSTA FINAL"})
	if got.Valid != models.True || got.Coherent != models.True {
		t.Errorf("valid/coherent = %v/%v, want true/true", got.Valid, got.Coherent)
	}
	if got.Action != models.ActionFile {
		t.Errorf("action = %q, want %q", got.Action, models.ActionFile)
	}
	if got.Kind != models.VerdictOK {
		t.Errorf("kind = %q, want ok", got.Kind)
	}
}

func TestClient_FencedAnswerMatchesUnwrapped(t *testing.T) {
	plain := chatServer(t, validAnswer)
	defer plain.Close()
	fenced := chatServer(t, "```json\n"+validAnswer+"\n```")
	defer fenced.Close()

	want := newTestClient(t, plain.URL, time.Second).Validate(context.Background(), Request{})
	got := newTestClient(t, fenced.URL, time.Second).Validate(context.Background(), Request{})

	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	if string(gotJSON) != string(wantJSON) || got.Kind != want.Kind {
		t.Errorf("fenced = %s, want %s", gotJSON, wantJSON)
	}
}

func TestClient_NonJSONAnswerIsPending(t *testing.T) {
	srv := chatServer(t, "not json at all")
	defer srv.Close()

	got := newTestClient(t, srv.URL, time.Second).Validate(context.Background(), Request{})
	if got.Action != models.ActionWait {
		t.Errorf("action = %q, want aguardar", got.Action)
	}
	if got.Valid != models.Unknown {
		t.Errorf("valid = %v, want unknown", got.Valid)
	}
	if got.Kind != models.VerdictMalformed {
		t.Errorf("kind = %q, want %q", got.Kind, models.VerdictMalformed)
	}
	if !strings.Contains(got.Reason, "not json at all") {
		t.Errorf("reason %q does not carry the raw content", got.Reason)
	}
}

func TestClient_ServiceErrorIsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClient(t, srv.URL, time.Second).Validate(context.Background(), Request{})
	if got.Action != models.ActionWait || got.Valid != models.Unknown {
		t.Errorf("verdict = %+v, want pending", got)
	}
	if got.Kind != models.VerdictServiceError {
		t.Errorf("kind = %q, want %q", got.Kind, models.VerdictServiceError)
	}
	if !strings.Contains(got.Reason, "500") {
		t.Errorf("reason %q does not mention the status", got.Reason)
	}
}

func TestClient_TimeoutIsPending(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	got := newTestClient(t, srv.URL, 50*time.Millisecond).Validate(context.Background(), Request{})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Validate took %v, timeout not enforced", elapsed)
	}
	if got.Kind != models.VerdictServiceError || got.Action != models.ActionWait {
		t.Errorf("verdict = %+v, want service-error pending", got)
	}
}

func TestNormalize_DerivesMissingAction(t *testing.T) {
	tests := []struct {
		content string
		want    models.Action
	}{
		{`{"valido": true}`, models.ActionFile},
		{`{"valido": false, "acao_sugerida": "talvez"}`, models.ActionReview},
		{`{"valido": null, "motivo": "sem decisão"}`, models.ActionWait},
		{`{"valido": false, "acao_sugerida": "Rejeitar"}`, models.ActionReject},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got := Normalize(Parse(tt.content))
			if got.Action != tt.want {
				t.Errorf("action = %q, want %q", got.Action, tt.want)
			}
			if got.MissingFields == nil {
				t.Error("missing fields should never be nil")
			}
		})
	}
}

func TestParse_ObjectWithoutVerdictIsMalformed(t *testing.T) {
	for _, content := range []string{"null", "{}", "[]", `"válido"`, "```json\n{}\n```", `{"motivo": "sem decisão"}`} {
		t.Run(content, func(t *testing.T) {
			r := Parse(content)
			if r.Answer != nil {
				t.Fatalf("Parse(%q) returned an answer", content)
			}
			got := Normalize(r)
			if got.Kind != models.VerdictMalformed {
				t.Errorf("kind = %q, want %q", got.Kind, models.VerdictMalformed)
			}
			if got.Action != models.ActionWait || got.Valid != models.Unknown {
				t.Errorf("verdict = %+v, want unknown/aguardar", got)
			}
			if !strings.Contains(got.Reason, content) {
				t.Errorf("reason %q does not carry the raw content", got.Reason)
			}
		})
	}
}

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}\n```":     "{}",
		"  {}  ":           "{}",
		"```json{}```":     "{}",
	}
	for in, want := range tests {
		if got := StripFence(in); got != want {
			t.Errorf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildPrompt_TruncatesBody(t *testing.T) {
	body := strings.Repeat("a", 900) + "TAIL"
	prompt, err := BuildPrompt(Request{Body: body, References: map[string]any{"processo": nil}}, 800)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if strings.Contains(prompt, "TAIL") {
		t.Error("body was not truncated")
	}
	if !strings.Contains(prompt, `{"processo":null}`) {
		t.Error("references missing from prompt")
	}
}
