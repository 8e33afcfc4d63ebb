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

package mail

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"github.com/gofjud/esteira/internal/models"
)

const unnamedAttachment = "sem_nome"

// FallbackID is the identifier given to a message without a Message-ID
// header. position is the 1-based mailbox position.
func FallbackID(position int) string {
	return fmt.Sprintf("<POP3-MSG-%d>", position)
}

// Parse converts a raw RFC 5322 message into a RawMessage. now is used as
// the received time when the Date header is missing or unparseable.
func Parse(r io.Reader, position int, now time.Time) (*models.RawMessage, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	msg := &models.RawMessage{
		MessageID:   strings.TrimSpace(h.Get("Message-Id")),
		Attachments: []models.Attachment{},
	}
	if msg.MessageID == "" {
		msg.MessageID = FallbackID(position)
	}

	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = strings.ToLower(from[0].Address)
	} else {
		msg.Sender = strings.TrimSpace(h.Get("From"))
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = date
	} else {
		msg.ReceivedAt = now
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("read part: %w", err)
		}

		switch ph := p.Header.(type) {
		case *gomail.InlineHeader:
			ct, params, _ := ph.ContentType()
			data, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("read inline part: %w", err)
			}
			switch {
			case ct == "text/plain" && plain == "" && params["name"] == "":
				plain = string(data)
			case ct == "text/html" && html == "" && params["name"] == "":
				html = string(data)
			case params["name"] != "":
				// inline part that is really a file
				addAttachment(msg, decodeName(params["name"]), ct, data)
			}
		case *gomail.AttachmentHeader:
			name, err := ph.Filename()
			if err != nil {
				name = ""
			}
			ct, _, _ := ph.ContentType()
			data, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("read attachment %q: %w", name, err)
			}
			addAttachment(msg, name, ct, data)
		}
	}

	msg.Body = strings.TrimSpace(plain)
	if msg.Body == "" {
		msg.Body = strings.TrimSpace(html)
	}
	return msg, nil
}

func decodeName(name string) string {
	dec := &mime.WordDecoder{CharsetReader: message.CharsetReader}
	if s, err := dec.DecodeHeader(name); err == nil {
		return s
	}
	return name
}

// addAttachment drops empty payloads, which are never persisted.
func addAttachment(msg *models.RawMessage, name, contentType string, data []byte) {
	if name == "" {
		name = unnamedAttachment
	}
	if len(data) == 0 {
		slog.Debug("dropping empty attachment", "message_id", msg.MessageID, "filename", name)
		return
	}
	msg.Attachments = append(msg.Attachments, models.Attachment{
		Filename:    name,
		ContentType: contentType,
		Content:     data,
	})
}
