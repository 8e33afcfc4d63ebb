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
	"strings"
	"testing"
	"time"
)

var now = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

const multipartMessage = "From: \"Vara Cível\" <Vara01@TJSP.jus.br>\r\n" +
	"To: oficios@banco.example\r\n" +
	"Subject: =?UTF-8?Q?Resposta_of=C3=ADcio_OPAJ_123_-_RESPOSTA_FINAL?=\r\n" +
	"Date: Thu, 02 May 2024 09:30:00 -0300\r\n" +
	"Message-ID: <abc123@tjsp.jus.br>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Segue em anexo a minuta de resposta ao ofício.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"minuta.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQK\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"vazio.pdf\"\r\n" +
	"\r\n" +
	"\r\n" +
	"--XYZ--\r\n"

func TestParse_Multipart(t *testing.T) {
	msg, err := Parse(strings.NewReader(multipartMessage), 3, now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.MessageID != "<abc123@tjsp.jus.br>" {
		t.Errorf("MessageID = %q", msg.MessageID)
	}
	if msg.Subject != "Resposta ofício OPAJ 123 - RESPOSTA FINAL" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Sender != "vara01@tjsp.jus.br" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if !strings.HasPrefix(msg.Body, "Segue em anexo") {
		t.Errorf("Body = %q", msg.Body)
	}
	if want := time.Date(2024, 5, 2, 12, 30, 0, 0, time.UTC); !msg.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", msg.ReceivedAt, want)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1 (empty one dropped)", len(msg.Attachments))
	}
	a := msg.Attachments[0]
	if a.Filename != "minuta.pdf" || a.ContentType != "application/pdf" {
		t.Errorf("attachment = %q %q", a.Filename, a.ContentType)
	}
	if string(a.Content) != "%PDF-1.4\n" {
		t.Errorf("content = %q", a.Content)
	}
}

func TestParse_FallbacksForBareMessage(t *testing.T) {
	raw := "From: someone@example.com\r\n" +
		"Subject: sem id\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>ok</p>\r\n"

	msg, err := Parse(strings.NewReader(raw), 7, now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.MessageID != "<POP3-MSG-7>" {
		t.Errorf("MessageID = %q, want fallback", msg.MessageID)
	}
	if !msg.ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want capture time", msg.ReceivedAt)
	}
	if !strings.Contains(msg.Body, "<p>ok</p>") {
		t.Errorf("Body = %q, want html fallback", msg.Body)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("attachments = %d, want 0", len(msg.Attachments))
	}
}

func TestFallbackID(t *testing.T) {
	if got := FallbackID(1); got != "<POP3-MSG-1>" {
		t.Errorf("FallbackID(1) = %q", got)
	}
}
