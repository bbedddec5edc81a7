package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/conformadev/conforma/internal/llm"
)

func TestParseResultFullReply(t *testing.T) {
	raw := `{
		"score": 62.5,
		"summary": "Documento com lacunas relevantes.",
		"strengths": ["PGR estruturado", "PGR estruturado", ""],
		"attentionPoints": ["Revisar cronograma"],
		"nextSteps": ["Atualizar inventário de riscos"],
		"gaps": [{
			"descricao": "Ausência de ficha de entrega de EPI",
			"severidade": "Alta",
			"categoria": "EPI",
			"recomendacao": "Implantar controle de entrega",
			"prazo": "30 dias",
			"normasRelacionadas": ["NR-06"],
			"evidencias": [{"chunkId": "doc-chunk-000-abc", "normCode": "NR-06", "content": "certificado de aprovação"}]
		}]
	}`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if result.Score != 62.5 {
		t.Errorf("score = %v, want 62.5", result.Score)
	}
	if result.RiskLevel != RiskHigh {
		t.Errorf("risk = %q, want alto", result.RiskLevel)
	}
	if len(result.Strengths) != 1 {
		t.Errorf("strengths = %v, want deduplicated to 1 entry", result.Strengths)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(result.Gaps))
	}
	gap := result.Gaps[0]
	if gap.ID == "" {
		t.Error("gap did not get an ID")
	}
	if gap.Severity != SeverityHigh {
		t.Errorf("severity = %q, want alta", gap.Severity)
	}
	if len(gap.Evidence) != 1 || gap.Evidence[0].Source != "local" {
		t.Errorf("evidence = %+v, want one local entry", gap.Evidence)
	}
}

func TestParseResultToleratesFencesAndProse(t *testing.T) {
	raw := "Segue a análise solicitada:\n```json\n{\"score\": 90, \"summary\": \"ok\"}\n```\nEspero ter ajudado."
	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if result.Score != 90 {
		t.Errorf("score = %v, want 90", result.Score)
	}
}

func TestParseResultMissingScoreIsMalformed(t *testing.T) {
	_, err := ParseResult(`{"summary": "sem nota"}`)
	if !errors.Is(err, llm.ErrMalformedReply) {
		t.Errorf("err = %v, want ErrMalformedReply", err)
	}
}

func TestParseResultNoJSONIsMalformed(t *testing.T) {
	for _, raw := range []string{"", "nenhum json aqui", `{"score": 50`} {
		if _, err := ParseResult(raw); !errors.Is(err, llm.ErrMalformedReply) {
			t.Errorf("ParseResult(%q) err = %v, want ErrMalformedReply", raw, err)
		}
	}
}

func TestParseResultClampsScore(t *testing.T) {
	result, err := ParseResult(`{"score": 250}`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 100 {
		t.Errorf("score = %v, want clamped to 100", result.Score)
	}

	result, err = ParseResult(`{"score": -10}`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 0 {
		t.Errorf("score = %v, want clamped to 0", result.Score)
	}
	if result.RiskLevel != RiskCritical {
		t.Errorf("risk = %q, want critico", result.RiskLevel)
	}
}

func TestParseResultDefaultsAndDrops(t *testing.T) {
	raw := `{
		"score": 70,
		"gaps": [
			{"descricao": "Gap sem categoria nem prazo", "severidade": "urgentissima",
			 "evidencias": [{"chunkId": "", "normCode": "NR-01", "content": "ignorado"}]},
			{"descricao": "   "}
		]
	}`
	result, err := ParseResult(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1 (empty description dropped)", len(result.Gaps))
	}
	gap := result.Gaps[0]
	if gap.Category != "Geral" {
		t.Errorf("category = %q, want Geral", gap.Category)
	}
	if gap.Deadline != "Não informado" {
		t.Errorf("deadline = %q, want Não informado", gap.Deadline)
	}
	if gap.Severity != SeverityMedium {
		t.Errorf("unknown severity = %q, want media", gap.Severity)
	}
	if len(gap.Evidence) != 0 {
		t.Errorf("evidence without chunkId kept: %+v", gap.Evidence)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	raw := `{"score": 80, "summary": "contém { chaves } e \"aspas\" no texto"}`
	payload, err := extractJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(payload, `no texto"}`) {
		t.Errorf("payload truncated: %q", payload)
	}
}
