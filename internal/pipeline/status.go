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

package pipeline

import (
	"fmt"
	"strings"

	"github.com/gofjud/esteira/internal/models"
)

// DeriveStatus maps the completeness and validator verdicts to the record
// status. invalidReason is empty unless the status is invalid. A malformed
// validator reply is not retried: it goes to the operator as invalid with
// the raw content in the reason.
func DeriveStatus(c models.CompletenessVerdict, v models.ValidationVerdict) (status models.RecordStatus, invalidReason string) {
	switch {
	case v.Kind == models.VerdictMalformed:
		return models.StatusInvalid, v.Reason
	case v.Valid == models.Unknown:
		return models.StatusAwaiting, ""
	case v.Valid == models.True && c.Status == models.Complete:
		return models.StatusPending, ""
	case v.Valid == models.False:
		if reason := strings.TrimSpace(v.Reason); reason != "" {
			return models.StatusInvalid, reason
		}
		return models.StatusInvalid, "Validação formal reprovada sem justificativa."
	default:
		return models.StatusInvalid, "Documentos obrigatórios ausentes: " + strings.Join(c.Missing, ", ")
	}
}

func earlyExitObservation(status models.RecordStatus, minBodyLength int) string {
	switch status {
	case models.StatusNoAttachment:
		return "E-mail recebido sem anexos."
	case models.StatusNonStandard:
		return fmt.Sprintf("Corpo do e-mail fora do padrão (menos de %d caracteres).", minBodyLength)
	}
	return ""
}

func joinObservations(classes []models.AttachmentClassification) string {
	parts := make([]string, 0, len(classes))
	for _, c := range classes {
		if c.Observation != "" {
			parts = append(parts, c.Observation)
		}
	}
	return strings.Join(parts, " | ")
}
