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

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ProcessSource tells where a process number came from.
type ProcessSource string

const (
	ProcessCNJ            ProcessSource = "CNJ"
	ProcessAdministrative ProcessSource = "ADMINISTRATIVO"
)

// ExtractedReferences holds the legal identifiers found in free text.
// Empty fields mean "not found", which is a valid outcome.
type ExtractedReferences struct {
	Process       string        `json:"processo,omitempty"`
	ProcessSource ProcessSource `json:"tipo_processo,omitempty"`
	OPAJ          string        `json:"opaj,omitempty"`
	Identifier    string        `json:"identificador,omitempty"`
	FinalStatus   string        `json:"status_final,omitempty"`
}

// Fields renders the references as the structured map sent to the external
// validator. Missing values are explicit nulls.
func (r ExtractedReferences) Fields() map[string]any {
	return map[string]any{
		"processo":      nullable(r.Process),
		"tipo_processo": nullable(string(r.ProcessSource)),
		"opaj":          nullable(r.OPAJ),
		"identificador": nullable(r.Identifier),
		"status_final":  nullable(r.FinalStatus),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Category is the semantic tag assigned to an attachment.
type Category string

const (
	CategoryReplyDraft     Category = "minuta_resposta"
	CategorySignatureProof Category = "comprovante_assinatura"
	CategoryStatement      Category = "extrato"
	CategoryReceipt        Category = "comprovante"
	CategoryContract       Category = "contrato"
	CategoryProposal       Category = "proposta"
	CategoryTerm           Category = "termo"
	CategoryBlockOrder     Category = "bloqueio"
	CategoryArchive        Category = "zip"
	CategoryOther          Category = "outro"
)

// ExtractionOutcome records what happened when reading an attachment's text layer.
type ExtractionOutcome struct {
	Attempted bool   `json:"tentativa"`
	OK        bool   `json:"sucesso"`
	Excerpt   string `json:"trecho,omitempty"`
	Error     string `json:"erro,omitempty"`
}

// AttachmentClassification is the classifier result for one attachment.
type AttachmentClassification struct {
	AttachmentID int64             `json:"id_anexo,omitempty"`
	Filename     string            `json:"nome_arquivo"`
	Category     Category          `json:"categoria"`
	Extraction   ExtractionOutcome `json:"extracao"`
	Observation  string            `json:"observacao"`
}

// CompletenessStatus is the overall result of the mandatory-document check.
type CompletenessStatus string

const (
	Complete   CompletenessStatus = "completo"
	Incomplete CompletenessStatus = "incompleto"
)

// Missing-document tags reported by the completeness check.
const (
	MissingReplyDraft     = "minuta"
	MissingSignatureProof = "comprovante_assinatura"
	MissingBlockOrder     = "bloqueio"
)

// CompletenessVerdict says whether the mandatory documents are present.
type CompletenessVerdict struct {
	HasReplyDraft     bool               `json:"tem_minuta"`
	HasSignatureProof bool               `json:"tem_comprovante_assinatura"`
	Missing           []string           `json:"faltantes"`
	Status            CompletenessStatus `json:"status"`
}

// TriState is a boolean that may also be unknown. It maps to JSON null and
// to a nullable SQL boolean.
type TriState int8

const (
	Unknown TriState = iota
	False
	True
)

// TriFromBool converts a plain boolean.
func TriFromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// TriFromPtr converts a nullable boolean as scanned from the database.
func TriFromPtr(b *bool) TriState {
	if b == nil {
		return Unknown
	}
	return TriFromBool(*b)
}

// Ptr returns nil for Unknown, suitable as a nullable query argument.
func (t TriState) Ptr() *bool {
	switch t {
	case True:
		v := true
		return &v
	case False:
		v := false
		return &v
	default:
		return nil
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true/false/null and the quoted forms "true"/"false".
// Anything else decodes to Unknown rather than failing the whole document.
func (t *TriState) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	switch s {
	case "true", "sim":
		*t = True
	case "false", "nao", "não":
		*t = False
	default:
		*t = Unknown
	}
	return nil
}

// Action is the next step suggested by the external validator.
type Action string

const (
	ActionFile   Action = "protocolar"
	ActionReview Action = "revisar"
	ActionReject Action = "rejeitar"
	ActionWait   Action = "aguardar"
)

// ParseAction normalizes a free-form action string. ok is false when the
// value is not one of the known actions.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionFile, ActionReview, ActionReject, ActionWait:
		return a, true
	}
	return "", false
}

// VerdictKind tags how a ValidationVerdict was produced.
type VerdictKind string

const (
	VerdictOK           VerdictKind = "ok"
	VerdictMalformed    VerdictKind = "resposta_invalida"
	VerdictServiceError VerdictKind = "erro_servico"
)

// ValidationVerdict is the normalized answer of the external formal validator.
type ValidationVerdict struct {
	Valid         TriState    `json:"valido"`
	Reason        string      `json:"motivo"`
	Coherent      TriState    `json:"coerencia"`
	MissingFields []string    `json:"campos_faltantes"`
	Action        Action      `json:"acao_sugerida"`
	Kind          VerdictKind `json:"-"`
}

// PendingVerdict is the shape returned whenever the validator could not give
// a usable answer.
func PendingVerdict(kind VerdictKind, reason string) ValidationVerdict {
	return ValidationVerdict{
		Valid:         Unknown,
		Reason:        reason,
		Coherent:      Unknown,
		MissingFields: []string{},
		Action:        ActionWait,
		Kind:          kind,
	}
}

// Summary is a one-line description used in logs and record observations.
func (v ValidationVerdict) Summary() string {
	return fmt.Sprintf("valido=%s acao=%s", v.Valid, v.Action)
}

// MarshalSummary encodes any summary value for a JSONB column.
func MarshalSummary(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return data, nil
}
