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

package validator

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const systemInstruction = "Você é um assistente jurídico validador formal de ofícios bancários."

// BuildPrompt renders the user prompt for one reply. The body is cut to
// bodyLimit runes.
func BuildPrompt(req Request, bodyLimit int) (string, error) {
	refs, err := json.Marshal(req.References)
	if err != nil {
		return "", fmt.Errorf("marshal references: %w", err)
	}
	names, err := json.Marshal(nonNil(req.AttachmentNames))
	if err != nil {
		return "", fmt.Errorf("marshal attachment names: %w", err)
	}
	excerpts, err := json.Marshal(nonNil(req.Excerpts))
	if err != nil {
		return "", fmt.Errorf("marshal excerpts: %w", err)
	}

	var b strings.Builder
	b.WriteString("Você é um assistente jurídico especializado na gestão de ofícios judiciais de uma instituição financeira. ")
	b.WriteString("Valide a formalidade da resposta (e-mail, anexos e minuta) para protocolo, indicando se está apta para protocolo, se deve ser revisada ou rejeitada.\n\n")
	b.WriteString("Inicie o motivo com \"AÇÃO: Protocolar.\", \"AÇÃO: Revisar.\" ou \"AÇÃO: Rejeitar.\", justifique de forma objetiva ")
	b.WriteString("e termine explicando em uma frase o que o banco está respondendo ou cumprindo.\n\n")
	b.WriteString("### Dados recebidos:\n")
	fmt.Fprintf(&b, "- Assunto do e-mail: %q\n", req.Subject)
	fmt.Fprintf(&b, "- Corpo do e-mail: %q\n", truncate(req.Body, bodyLimit))
	fmt.Fprintf(&b, "- Nomes dos anexos recebidos: %s\n", names)
	fmt.Fprintf(&b, "- Resumo dos anexos (prévia do texto): %s\n\n", excerpts)
	b.WriteString("### Campos extraídos do assunto/processamento automático:\n")
	b.Write(refs)
	b.WriteString("\n\n### Critérios práticos:\n")
	b.WriteString("- O nome da minuta de resposta deve bater com os identificadores do assunto e/ou conteúdo.\n")
	b.WriteString("- Os identificadores do assunto (processo, FNDA, DILA, status) devem aparecer nos anexos ou no texto da resposta.\n")
	b.WriteString("- Se o corpo ou a minuta mencionam \"segue anexo\", \"documento em anexo\" ou \"assinatura em anexo\", o documento deve estar anexo.\n")
	b.WriteString("- Se o status é \"resposta final\", deve haver informação conclusiva ou documento atendendo à ordem judicial.\n")
	b.WriteString("- Se o status é \"dilação\", a minuta deve conter pedido de dilação de prazo.\n\n")
	b.WriteString("Responda obrigatoriamente em JSON, conforme exemplo:\n")
	b.WriteString(`{"valido": true, "campos_faltantes": [], "coerencia": true, "motivo": "AÇÃO: Protocolar. ...", "acao_sugerida": "protocolar"}`)
	b.WriteString("\n")
	return b.String(), nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
