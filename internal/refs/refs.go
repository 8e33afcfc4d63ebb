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

// Package refs pulls legal-process identifiers, case codes and status
// keywords out of free text. Every function is pure; a missing match yields
// an empty field, never an error.
package refs

import (
	"regexp"
	"strings"

	"github.com/gofjud/esteira/internal/models"
)

var (
	cnjRe     = regexp.MustCompile(`\d{7}-\d{2}(?:\.\d{4})?\.\d(?:\.\d{2})?\.\d{4}|\d{20}`)
	numericRe = regexp.MustCompile(`\d{6,25}`)
	opajRe    = regexp.MustCompile(`(?i)OPAJ[-–:/\s]*([0-9]+)`)
	idRe      = regexp.MustCompile(`(?i)\b(FNDA|DILA)[-–:/\s]?(\d{6,})\b`)

	// Matched against upper-cased text.
	statusRe = regexp.MustCompile(`RESPOSTA FINAL|RESPOSTA PARCIAL|DILAÇÃO|RESPOSTA MONITORAMENTO`)
)

// Extract runs the four independent extractions over text.
func Extract(text string) models.ExtractedReferences {
	process, source := Process(text)
	return models.ExtractedReferences{
		Process:       process,
		ProcessSource: source,
		OPAJ:          OPAJ(text),
		Identifier:    Identifier(text),
		FinalStatus:   Status(text),
	}
}

// Process returns the first CNJ-formatted number, or failing that the first
// run of 6 to 25 digits tagged as administrative.
func Process(text string) (string, models.ProcessSource) {
	if m := cnjRe.FindString(text); m != "" {
		return m, models.ProcessCNJ
	}
	if m := numericRe.FindString(text); m != "" {
		return m, models.ProcessAdministrative
	}
	return "", ""
}

// OPAJ returns the digit group following the first OPAJ marker.
func OPAJ(text string) string {
	m := opajRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Identifier returns the first FNDA/DILA code normalized as KEYWORD-digits.
func Identifier(text string) string {
	m := idRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1]) + "-" + m[2]
}

// Status returns the last final-status phrase found in the upper-cased text.
// Later mentions supersede earlier ones (correction notices repeat the
// subject with the new status appended).
func Status(text string) string {
	matches := statusRe.FindAllString(strings.ToUpper(text), -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// FromMessage extracts references from a subject and body. The subject is
// operator-curated, so its matches win field by field; a CNJ number from
// either text beats an administrative one.
func FromMessage(subject, body string) models.ExtractedReferences {
	s := Extract(subject)
	b := Extract(body)

	out := s
	switch {
	case s.ProcessSource == models.ProcessCNJ:
	case b.ProcessSource == models.ProcessCNJ:
		out.Process, out.ProcessSource = b.Process, b.ProcessSource
	case s.Process == "":
		out.Process, out.ProcessSource = b.Process, b.ProcessSource
	}
	if out.OPAJ == "" {
		out.OPAJ = b.OPAJ
	}
	if out.Identifier == "" {
		out.Identifier = b.Identifier
	}
	if out.FinalStatus == "" {
		out.FinalStatus = b.FinalStatus
	}
	return out
}
