package analysis

import (
	"fmt"
	"strings"
)

// docTypeContext describes what the auditor should expect from each document
// type.
var docTypeContext = map[DocumentType]string{
	DocTypePGR:   "um Programa de Gerenciamento de Riscos (PGR), que deve conter inventário de riscos ocupacionais e plano de ação conforme a NR-01",
	DocTypePCMSO: "um Programa de Controle Médico de Saúde Ocupacional (PCMSO), que deve prever os exames médicos ocupacionais exigidos pela NR-07",
	DocTypeLTCAT: "um Laudo Técnico das Condições Ambientais do Trabalho (LTCAT), que deve caracterizar a exposição a agentes nocivos",
	DocTypeASO:   "um Atestado de Saúde Ocupacional (ASO), que deve registrar os exames realizados e a aptidão do trabalhador",
	DocTypeOutro: "um documento de saúde e segurança do trabalho",
}

func buildSystemPrompt(docType DocumentType) string {
	ctx, ok := docTypeContext[docType]
	if !ok {
		ctx = docTypeContext[DocTypeOutro]
	}

	return fmt.Sprintf(`Você é um auditor especialista em saúde e segurança do trabalho no Brasil.
Analise %s quanto à conformidade com as normas regulamentadoras aplicáveis.

Responda SOMENTE com um objeto JSON válido, sem texto adicional, no formato:
{
  "score": <número de 0 a 100 indicando o grau de conformidade>,
  "summary": "<resumo objetivo da análise>",
  "strengths": ["<ponto forte>"],
  "attentionPoints": ["<ponto de atenção>"],
  "nextSteps": ["<próximo passo recomendado>"],
  "gaps": [
    {
      "descricao": "<descrição da não conformidade>",
      "severidade": "baixa|media|alta|critica",
      "categoria": "<categoria da não conformidade>",
      "recomendacao": "<ação corretiva recomendada>",
      "prazo": "<prazo sugerido>",
      "normasRelacionadas": ["<código da norma>"],
      "evidencias": [{"chunkId": "<chunkId da evidência utilizada>", "normCode": "<norma>", "content": "<trecho citado>"}]
    }
  ]
}

O campo score é obrigatório. Cite em evidencias apenas os trechos normativos fornecidos, usando o chunkId exato de cada um.`, ctx)
}

func buildUserPrompt(content string, normCodes []string, evidence []EvidenceFragment) string {
	var b strings.Builder

	b.WriteString("Normas aplicáveis: ")
	if len(normCodes) > 0 {
		b.WriteString(strings.Join(normCodes, ", "))
	} else {
		b.WriteString("não informadas")
	}
	b.WriteString("\n\n")

	if len(evidence) > 0 {
		b.WriteString("Trechos normativos relevantes (use o chunkId ao citar):\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "[chunkId=%s norma=%s", ev.ChunkID, ev.NormCode)
			if ev.Section != "" {
				fmt.Fprintf(&b, " secao=%s", ev.Section)
			}
			fmt.Fprintf(&b, "]\n%s\n\n", ev.Content)
		}
	}

	b.WriteString("Documento a analisar:\n\"\"\"\n")
	b.WriteString(content)
	b.WriteString("\n\"\"\"")
	return b.String()
}
