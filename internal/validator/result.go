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
	"encoding/json"
	"strings"

	"github.com/gofjud/esteira/internal/models"
)

// Result is the raw outcome of one validator call before normalization.
// Exactly one of Answer, Malformed or Err is meaningful.
type Result struct {
	Answer    *answer
	Malformed string
	Err       error
}

// answer mirrors the JSON object the service is asked to return.
type answer struct {
	Valid         models.TriState `json:"valido"`
	MissingFields []string        `json:"campos_faltantes"`
	Coherent      models.TriState `json:"coerencia"`
	Reason        string          `json:"motivo"`
	Action        string          `json:"acao_sugerida"`
}

// Parse decodes the text content returned by the service. A markdown code
// fence around the JSON is tolerated. Anything other than an object
// carrying the "valido" key is malformed.
func Parse(content string) Result {
	cleaned := []byte(StripFence(content))
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(cleaned, &fields); err != nil || fields == nil {
		return Result{Malformed: content}
	}
	if _, ok := fields["valido"]; !ok {
		return Result{Malformed: content}
	}
	var a answer
	if err := json.Unmarshal(cleaned, &a); err != nil {
		return Result{Malformed: content}
	}
	return Result{Answer: &a}
}

// StripFence removes a surrounding ```json ... ``` (or bare ```) fence.
func StripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(s[:nl]); tag == "" || !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Normalize collapses a Result into the verdict shape every caller sees.
func Normalize(r Result) models.ValidationVerdict {
	switch {
	case r.Err != nil:
		return models.PendingVerdict(models.VerdictServiceError,
			"Erro ao chamar o validador externo: "+r.Err.Error())
	case r.Answer == nil:
		return models.PendingVerdict(models.VerdictMalformed,
			"Resposta do validador inválida: JSON ausente ou fora do formato esperado. Conteúdo: "+r.Malformed)
	}

	a := r.Answer
	action, ok := models.ParseAction(a.Action)
	if !ok {
		switch a.Valid {
		case models.True:
			action = models.ActionFile
		case models.False:
			action = models.ActionReview
		default:
			action = models.ActionWait
		}
	}
	missing := a.MissingFields
	if missing == nil {
		missing = []string{}
	}
	return models.ValidationVerdict{
		Valid:         a.Valid,
		Reason:        a.Reason,
		Coherent:      a.Coherent,
		MissingFields: missing,
		Action:        action,
		Kind:          models.VerdictOK,
	}
}
