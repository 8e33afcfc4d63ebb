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

package queue

import (
	"encoding/json"
	"testing"

	"github.com/gofjud/esteira/internal/models"
)

func TestNewRecordEvent_CarriesVerdictAction(t *testing.T) {
	rec := &models.ProcessingRecord{
		ID:        7,
		MessageID: "<m1@tj.jus.br>",
		Status:    models.StatusPending,
		Verdict:   &models.ValidationVerdict{Action: models.ActionFile},
	}
	ev := NewRecordEvent(rec, "run-1")
	if ev.ID == "" {
		t.Error("event id should be set")
	}
	if ev.RecordID != 7 || ev.Action != models.ActionFile || ev.RunID != "run-1" {
		t.Errorf("event = %+v", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "pending" || decoded["acao_sugerida"] != "protocolar" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestNewRecordEvent_EarlyExitHasNoAction(t *testing.T) {
	ev := NewRecordEvent(&models.ProcessingRecord{Status: models.StatusNoAttachment}, "")
	if ev.Action != "" {
		t.Errorf("action = %q, want empty", ev.Action)
	}
}
