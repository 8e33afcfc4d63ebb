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

package document

import (
	"errors"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		mime string
		data []byte
		want Format
	}{
		{"scan.bin", "application/octet-stream", []byte("%PDF-1.4\n..."), FormatPDF},
		{"minuta.pdf", "", []byte("garbage"), FormatPDF},
		{"anexo", "application/pdf", []byte("garbage"), FormatPDF},
		{"nota.txt", "", []byte("ola"), FormatText},
		{"nota", "text/plain; charset=utf-8", []byte("ola"), FormatText},
		{"docs.zip", "application/zip", []byte("PK\x03\x04"), FormatUnknown},
		{"foto.jpg", "image/jpeg", []byte{0xff, 0xd8}, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.name, tt.mime, tt.data); got != tt.want {
				t.Errorf("Detect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract("nota.txt", "text/plain", []byte("Extrato bancario"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Extrato bancario" {
		t.Errorf("text = %q", text)
	}
}

func TestExtract_BrokenPDFIsTypedFailure(t *testing.T) {
	_, err := Extract("minuta.pdf", "application/pdf", []byte("%PDF-1.7 this is not really a pdf"))
	if err == nil {
		t.Fatal("expected extraction error for corrupt PDF")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("error %T is not *ExtractionError", err)
	}
	if extErr.Name != "minuta.pdf" {
		t.Errorf("name = %q, want minuta.pdf", extErr.Name)
	}
	if extErr.Cause == nil {
		t.Error("expected underlying cause")
	}
}

func TestExtract_EmptyPayload(t *testing.T) {
	_, err := Extract("vazio.pdf", "application/pdf", nil)
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract("docs.zip", "application/zip", []byte("PK\x03\x04rest"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("  abc  ", 10); got != "abc" {
		t.Errorf("Excerpt trimmed = %q", got)
	}
	if got := Excerpt("açãoçãoção", 4); got != "ação" {
		t.Errorf("Excerpt runes = %q, want ação", got)
	}
	long := strings.Repeat("x", 50)
	if got := Excerpt(long, 0); got != long {
		t.Error("limit 0 should not truncate")
	}
}
