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

// Package classify assigns a semantic category to each attachment of a
// judicial-reply email.
//
// Rules are an ordered chain evaluated with short-circuit semantics: the
// first rule that matches decides. Filename rules run before content rules
// because filenames are curated by the sender and carry more signal than
// extracted text. The reply-draft rule comes first so that no looser rule
// can shadow it.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/gofjud/esteira/internal/models"
)

// Evidence says which input decided a classification.
type Evidence string

const (
	EvidenceFilename Evidence = "nome_arquivo"
	EvidenceContent  Evidence = "conteudo"
	EvidenceNone     Evidence = "nenhuma"
)

type nameRule struct {
	match    func(name, mimeType string) bool
	category models.Category
}

type contentRule struct {
	keyword  string
	category models.Category
}

var zipMIMETypes = []string{"application/zip", "application/x-zip-compressed", "application/x-zip"}

var nameRules = []nameRule{
	{containsAny("minuta de resposta", "minuta", "resposta", "resposta ofício", "oficio", "ofício"), models.CategoryReplyDraft},
	{containsAny("assinatura", "certificado"), models.CategorySignatureProof},
	{containsAny("extrato"), models.CategoryStatement},
	{containsAny("contrato"), models.CategoryContract},
	{containsAny("proposta"), models.CategoryProposal},
	{containsAny("termo"), models.CategoryTerm},
	{containsAny("bloqueio"), models.CategoryBlockOrder},
	{func(name, _ string) bool {
		return strings.Contains(name, "comprovante") && !strings.Contains(name, "assinatura")
	}, models.CategoryReceipt},
	{func(name, mimeType string) bool {
		if filepath.Ext(name) == ".zip" {
			return true
		}
		for _, mt := range zipMIMETypes {
			if mimeType == mt {
				return true
			}
		}
		return false
	}, models.CategoryArchive},
}

// Content rules never produce minuta, assinatura or zip: a body that merely
// mentions "resposta" does not make the file the reply draft.
var contentRules = []contentRule{
	{"extrato", models.CategoryStatement},
	{"comprovante", models.CategoryReceipt},
	{"contrato", models.CategoryContract},
	{"proposta", models.CategoryProposal},
	{"termo", models.CategoryTerm},
	{"bloqueio", models.CategoryBlockOrder},
}

func containsAny(keywords ...string) func(name, mimeType string) bool {
	return func(name, _ string) bool {
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return true
			}
		}
		return false
	}
}

// Classify returns the category for an attachment. name and text may be
// empty. The chain is total: it always returns exactly one category.
func Classify(name, text, mimeType string) models.Category {
	category, _ := Match(name, text, mimeType)
	return category
}

// Match is Classify plus the evidence that decided it.
func Match(name, text, mimeType string) (models.Category, Evidence) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	lowerMIME := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(lowerMIME, ';'); i >= 0 {
		lowerMIME = strings.TrimSpace(lowerMIME[:i])
	}

	for _, r := range nameRules {
		if r.match(lowerName, lowerMIME) {
			return r.category, EvidenceFilename
		}
	}

	if text != "" {
		lowerText := strings.ToLower(text)
		for _, r := range contentRules {
			if strings.Contains(lowerText, r.keyword) {
				return r.category, EvidenceContent
			}
		}
	}

	return models.CategoryOther, EvidenceNone
}
