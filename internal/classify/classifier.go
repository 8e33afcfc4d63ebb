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

package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gofjud/esteira/internal/document"
	"github.com/gofjud/esteira/internal/models"
)

const (
	defaultExcerptLimit = 500
	defaultWorkers      = 4
)

// ExtractFunc reads the text layer of a payload.
type ExtractFunc func(name, mimeType string, data []byte) (string, error)

// Config holds the classifier settings.
type Config struct {
	Extract      ExtractFunc // defaults to document.Extract
	ExcerptLimit int         // max runes kept from extracted text
	Workers      int         // attachments processed concurrently per message
}

// Classifier extracts text from attachments and runs the rule chain.
type Classifier struct {
	extract      ExtractFunc
	excerptLimit int
	workers      int
}

// New creates a Classifier.
func New(cfg Config) *Classifier {
	c := &Classifier{
		extract:      cfg.Extract,
		excerptLimit: cfg.ExcerptLimit,
		workers:      cfg.Workers,
	}
	if c.extract == nil {
		c.extract = document.Extract
	}
	if c.excerptLimit <= 0 {
		c.excerptLimit = defaultExcerptLimit
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	return c
}

// Attachment classifies a single attachment. Extraction failures are kept
// on the result: the error text becomes the excerpt so operators can read
// it, and only filename evidence is used to pick the category.
func (c *Classifier) Attachment(a models.Attachment) models.AttachmentClassification {
	out := models.AttachmentClassification{
		AttachmentID: a.ID,
		Filename:     a.Filename,
	}

	var text string
	if document.Supported(a.Filename, a.ContentType, a.Content) {
		out.Extraction.Attempted = true
		extracted, err := c.extract(a.Filename, a.ContentType, a.Content)
		switch {
		case errors.Is(err, document.ErrUnsupported):
			out.Extraction.Attempted = false
		case err != nil:
			out.Extraction.Error = err.Error()
			out.Extraction.Excerpt = document.Excerpt(err.Error(), c.excerptLimit)
		default:
			out.Extraction.OK = true
			out.Extraction.Excerpt = document.Excerpt(extracted, c.excerptLimit)
			text = extracted
		}
	}

	category, evidence := Match(a.Filename, text, a.ContentType)
	out.Category = category
	out.Observation = observation(category, evidence, out.Extraction)
	return out
}

// Message classifies every attachment of a message concurrently. Results
// keep the attachment order.
func (c *Classifier) Message(ctx context.Context, attachments []models.Attachment) ([]models.AttachmentClassification, error) {
	results := make([]models.AttachmentClassification, len(attachments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range attachments {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("classify attachment %q: panic: %v", attachments[i].Filename, r)
				}
			}()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = c.Attachment(attachments[i])
			slog.Debug("attachment classified",
				"filename", attachments[i].Filename,
				"category", results[i].Category,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func observation(category models.Category, evidence Evidence, ext models.ExtractionOutcome) string {
	var obs string
	switch evidence {
	case EvidenceFilename:
		obs = fmt.Sprintf("classificado como %s pelo nome do arquivo", category)
	case EvidenceContent:
		obs = fmt.Sprintf("classificado como %s pelo conteúdo extraído", category)
	default:
		obs = "nenhuma regra correspondente"
	}
	switch {
	case ext.Attempted && !ext.OK:
		obs += "; falha na extração de texto"
	case !ext.Attempted:
		obs += "; sem extração de texto"
	}
	return obs
}
