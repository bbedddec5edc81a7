package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/conformadev/conforma/internal/analysis"
)

// riskLabels maps risk levels onto the report wording.
var riskLabels = map[analysis.RiskLevel]string{
	analysis.RiskLow:      "Baixo",
	analysis.RiskMedium:   "Médio",
	analysis.RiskHigh:     "Alto",
	analysis.RiskCritical: "Crítico",
}

var severityLabels = map[analysis.Severity]string{
	analysis.SeverityLow:      "Baixa",
	analysis.SeverityMedium:   "Média",
	analysis.SeverityHigh:     "Alta",
	analysis.SeverityCritical: "Crítica",
}

// Markdown renders a consolidated analysis result as a Portuguese markdown
// report. The layout is stable so downstream tooling can anchor on headings.
func Markdown(result *analysis.Result, docType analysis.DocumentType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Relatório de Conformidade — %s\n\n", docTypeLabel(docType))
	if !result.Metadata.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Gerado em %s.\n\n", result.Metadata.Timestamp.Format(time.DateOnly))
	}

	b.WriteString("## Resumo\n\n")
	fmt.Fprintf(&b, "- **Pontuação de conformidade:** %.1f/100\n", result.Score)
	fmt.Fprintf(&b, "- **Nível de risco:** %s\n", label(riskLabels, result.RiskLevel))
	fmt.Fprintf(&b, "- **Confiança da análise:** %d/100 (%s)\n", result.ConfidenceScore, result.ConfidenceClass)
	fmt.Fprintf(&b, "- **Não conformidades identificadas:** %d\n\n", len(result.Gaps))
	if result.Summary != "" {
		b.WriteString(result.Summary)
		b.WriteString("\n\n")
	}

	if len(result.ReliabilityAlerts) != 0 {
		b.WriteString("## Alertas de Confiabilidade\n\n")
		for _, alert := range result.ReliabilityAlerts {
			fmt.Fprintf(&b, "> ⚠️ %s\n\n", alert)
		}
	}

	if len(result.Gaps) != 0 {
		b.WriteString("## Não Conformidades\n\n")
		for i, gap := range result.Gaps {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, gap.Description)
			fmt.Fprintf(&b, "- **Severidade:** %s\n", label(severityLabels, gap.Severity))
			fmt.Fprintf(&b, "- **Categoria:** %s\n", gap.Category)
			fmt.Fprintf(&b, "- **Recomendação:** %s\n", gap.Recommendation)
			fmt.Fprintf(&b, "- **Prazo sugerido:** %s\n", gap.Deadline)
			if len(gap.RelatedNorms) != 0 {
				fmt.Fprintf(&b, "- **Normas relacionadas:** %s\n", strings.Join(gap.RelatedNorms, ", "))
			}
			b.WriteString("\n")
			for _, ev := range gap.Evidence {
				fmt.Fprintf(&b, "> **%s** (%s): %s\n\n", ev.NormCode, ev.Source, excerpt(ev.Content, 300))
			}
		}
	}

	writeList(&b, "## Pontos Fortes", result.Strengths)
	writeList(&b, "## Pontos de Atenção", result.AttentionPoints)
	writeList(&b, "## Próximos Passos", result.NextSteps)

	b.WriteString("## Detalhes da Análise\n\n")
	fmt.Fprintf(&b, "- Provedor: %s", result.ProviderMeta.Provider)
	if result.ProviderMeta.Model != "" {
		fmt.Fprintf(&b, " (%s)", result.ProviderMeta.Model)
	}
	b.WriteString("\n")
	if result.ProviderMeta.FallbackTriggered {
		b.WriteString("- Provedor de fallback utilizado durante a análise\n")
	}
	if result.Metadata.TotalChunksProcessed > 0 {
		fmt.Fprintf(&b, "- Trechos processados: %d", result.Metadata.TotalChunksProcessed)
		if result.Metadata.FailedChunks > 0 {
			fmt.Fprintf(&b, " (%d com falha)", result.Metadata.FailedChunks)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func docTypeLabel(t analysis.DocumentType) string {
	switch t {
	case analysis.DocTypePGR, analysis.DocTypePCMSO, analysis.DocTypeLTCAT, analysis.DocTypeASO:
		return string(t)
	default:
		return "Documento SST"
	}
}

func label[K comparable](m map[K]string, key K) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fmt.Sprint(key)
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func excerpt(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}
