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

// Package document extracts plain text from attachment payloads. Parsing
// failures are returned as *ExtractionError so callers can degrade a single
// attachment without aborting the message that owns it.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for payloads that carry no machine-readable
// text layer this package knows how to read.
var ErrUnsupported = errors.New("unsupported document format")

// ExtractionError wraps the underlying parser failure for one document.
type ExtractionError struct {
	Name  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Name, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Format is the detected payload kind.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatText    Format = "text"
	FormatUnknown Format = ""
)

// Detect sniffs magic bytes first and falls back to the declared MIME type
// and file extension.
func Detect(name, mimeType string, data []byte) Format {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case mt == "application/pdf" || ext == ".pdf":
		return FormatPDF
	case strings.HasPrefix(mt, "text/plain") || ext == ".txt":
		return FormatText
	}
	return FormatUnknown
}

// Supported reports whether Extract will attempt the payload.
func Supported(name, mimeType string, data []byte) bool {
	return Detect(name, mimeType, data) != FormatUnknown
}

// Extract returns the document text. PDF pages are concatenated in order,
// one newline after each page.
func Extract(name, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionError{Name: name, Cause: errors.New("empty payload")}
	}
	switch Detect(name, mimeType, data) {
	case FormatPDF:
		return extractPDF(name, data)
	case FormatText:
		if !utf8.Valid(data) {
			return strings.ToValidUTF8(string(data), ""), nil
		}
		return string(data), nil
	default:
		return "", ErrUnsupported
	}
}

// extractPDF reads the text layer page by page. The parser panics on some
// malformed inputs, so the panic is turned into an ExtractionError.
func extractPDF(name string, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Name: name, Cause: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Name: name, Cause: fmt.Errorf("new pdf reader: %w", err)}
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Name: name, Cause: fmt.Errorf("page %d: %w", page, err)}
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// Excerpt truncates s to at most limit runes, trimming surrounding space.
func Excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
