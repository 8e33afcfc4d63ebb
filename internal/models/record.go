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

import "time"

// RecordStatus is the derived state of a processing record.
type RecordStatus string

const (
	StatusPending      RecordStatus = "pending"
	StatusInvalid      RecordStatus = "invalid"
	StatusNoAttachment RecordStatus = "sem_anexo"
	StatusNonStandard  RecordStatus = "fora_do_padrao"
	StatusAwaiting     RecordStatus = "aguardando"

	// Operator-driven terminal states.
	StatusFiled    RecordStatus = "protocolado"
	StatusReported RecordStatus = "reportado"
)

// Terminal reports whether an operator has closed the record.
func (s RecordStatus) Terminal() bool {
	return s == StatusFiled || s == StatusReported
}

// Retryable reports whether the pipeline should pick the message up again.
func (s RecordStatus) Retryable() bool {
	return s == StatusAwaiting
}

// ProcessingRecord is the durable pipeline outcome for one message.
// There is at most one per message; operator actions hang off it.
type ProcessingRecord struct {
	ID              int64                      `json:"id"`
	MessageRef      int64                      `json:"id_email"`
	MessageID       string                     `json:"message_id"`
	Status          RecordStatus               `json:"status"`
	InvalidReason   string                     `json:"motivo_invalido,omitempty"`
	Observation     string                     `json:"observacao,omitempty"`
	References      ExtractedReferences        `json:"referencias"`
	Classifications []AttachmentClassification `json:"anexos"`
	Completeness    *CompletenessVerdict       `json:"completude,omitempty"`
	Verdict         *ValidationVerdict         `json:"validacao,omitempty"`
	Attempts        int                        `json:"tentativas"`
	CreatedAt       time.Time                  `json:"criado_em"`
	UpdatedAt       time.Time                  `json:"ultima_atualizacao"`
}

// OperatorActionKind is what an operator did with a record.
type OperatorActionKind string

const (
	ActionKindFile   OperatorActionKind = "protocolar"
	ActionKindReport OperatorActionKind = "reportar"
)

// OperatorAction is an append-only audit row for a manual decision.
type OperatorAction struct {
	ID          int64              `json:"id"`
	RecordID    int64              `json:"id_protocolo"`
	Kind        OperatorActionKind `json:"acao_usuario"`
	User        string             `json:"usuario"`
	Reason      string             `json:"motivo_manual,omitempty"`
	Note        string             `json:"observacao,omitempty"`
	ReceiptName string             `json:"recibo_nome,omitempty"`
	Receipt     []byte             `json:"-"`
	CreatedAt   time.Time          `json:"data_registro"`
}

// Progress is the operator-facing snapshot of a running batch. It is
// overwritten wholesale on every step.
type Progress struct {
	Total   int  `json:"total"`
	Current int  `json:"atual"`
	Done    bool `json:"finalizado"`
}
