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

// Package completeness decides whether a judicial reply carries the
// documents it must carry before it can be filed.
package completeness

import (
	"strings"
	"unicode/utf8"

	"github.com/gofjud/esteira/internal/models"
)

// DefaultMinBodyLength is the shortest trimmed body accepted as a
// standard reply.
const DefaultMinBodyLength = 20

// Triage checks the cheap early exits that bypass classification and
// external validation entirely. ok is false when the message must go
// through the full pipeline.
func Triage(msg *models.RawMessage, minBodyLength int) (status models.RecordStatus, ok bool) {
	if minBodyLength <= 0 {
		minBodyLength = DefaultMinBodyLength
	}
	if len(msg.Attachments) == 0 {
		return models.StatusNoAttachment, true
	}
	body := strings.TrimSpace(msg.Body)
	if body != "" && utf8.RuneCountInString(body) < minBodyLength {
		return models.StatusNonStandard, true
	}
	return "", false
}

// Validate checks the classified attachments against the mandatory set:
// a reply draft and a signature proof always, plus a block order whenever
// the subject or body mentions "bloqueio".
func Validate(classes []models.AttachmentClassification, subject, body string) models.CompletenessVerdict {
	found := make(map[models.Category]bool, len(classes))
	for _, c := range classes {
		found[c.Category] = true
	}

	v := models.CompletenessVerdict{
		HasReplyDraft:     found[models.CategoryReplyDraft],
		HasSignatureProof: found[models.CategorySignatureProof],
		Missing:           []string{},
	}
	if !v.HasReplyDraft {
		v.Missing = append(v.Missing, models.MissingReplyDraft)
	}
	if !v.HasSignatureProof {
		v.Missing = append(v.Missing, models.MissingSignatureProof)
	}
	if mentionsBlockOrder(subject, body) && !found[models.CategoryBlockOrder] {
		v.Missing = append(v.Missing, models.MissingBlockOrder)
	}

	v.Status = models.Complete
	if len(v.Missing) > 0 {
		v.Status = models.Incomplete
	}
	return v
}

func mentionsBlockOrder(subject, body string) bool {
	return strings.Contains(strings.ToLower(subject), "bloqueio") ||
		strings.Contains(strings.ToLower(body), "bloqueio")
}
