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

// Package models defines the data structures shared across the esteira services.
package models

import "time"

// Attachment is a file carried by a captured message. Content is kept inline
// because the store persists attachment payloads next to the message row.
type Attachment struct {
	ID          int64  `json:"id,omitempty"`
	Filename    string `json:"nome_arquivo"`
	ContentType string `json:"tipo_arquivo"`
	Content     []byte `json:"-"`
}

// Size returns the payload length in bytes.
func (a Attachment) Size() int {
	return len(a.Content)
}

// RawMessage is an inbound judicial-reply email as captured from the mailbox.
//
// MessageID is the natural deduplication key: the Message-ID header, or a
// synthesized positional identifier when the header is absent.
type RawMessage struct {
	ID          int64        `json:"id,omitempty"`
	MessageID   string       `json:"message_id"`
	Sender      string       `json:"remetente"`
	Subject     string       `json:"assunto"`
	Body        string       `json:"corpo_email"`
	ReceivedAt  time.Time    `json:"recebido_em"`
	Attachments []Attachment `json:"anexos"`

	// Attempts is how many pipeline runs already produced a record for
	// the message when it was listed; zero when unclaimed.
	Attempts int `json:"-"`
}

// AttachmentNames returns the declared filenames in message order.
func (m *RawMessage) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Filename)
	}
	return names
}
