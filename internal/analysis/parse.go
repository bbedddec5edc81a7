package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conformadev/conforma/internal/llm"
)

// reply mirrors the JSON schema providers are instructed to produce. Score is
// a pointer so a missing field is distinguishable from zero.
type reply struct {
	Score           *float64   `json:"score"`
	Summary         string     `json:"summary"`
	Strengths       []string   `json:"strengths"`
	AttentionPoints []string   `json:"attentionPoints"`
	NextSteps       []string   `json:"nextSteps"`
	Gaps            []replyGap `json:"gaps"`
}

type replyGap struct {
	Description    string          `json:"descricao"`
	Severity       string          `json:"severidade"`
	Category       string          `json:"categoria"`
	Recommendation string          `json:"recomendacao"`
	Deadline       string          `json:"prazo"`
	RelatedNorms   []string        `json:"normasRelacionadas"`
	Evidence       []replyEvidence `json:"evidencias"`
}

type replyEvidence struct {
	ChunkID  string `json:"chunkId"`
	NormCode string `json:"normCode"`
	Content  string `json:"content"`
}

// ParseResult decodes a raw provider reply into a Result. The first balanced
// {...} object in the text must parse; every recognized field is defaulted
// when absent except score, which is mandatory. Parse failures wrap
// llm.ErrMalformedReply so the error taxonomy stays in one place.
func ParseResult(raw string) (*Result, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var rep reply
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %v", llm.ErrMalformedReply, err)
	}
	if rep.Score == nil {
		return nil, fmt.Errorf("%w: reply missing mandatory score field", llm.ErrMalformedReply)
	}

	score := *rep.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := &Result{
		Score:           score,
		RiskLevel:       RiskFromScore(score),
		Summary:         strings.TrimSpace(rep.Summary),
		Strengths:       cleanList(rep.Strengths),
		AttentionPoints: cleanList(rep.AttentionPoints),
		NextSteps:       cleanList(rep.NextSteps),
	}

	for _, g := range rep.Gaps {
		desc := strings.TrimSpace(g.Description)
		if desc == "" {
			continue
		}
		gap := Gap{
			ID:             uuid.New().String(),
			Description:    desc,
			Severity:       NormalizeSeverity(g.Severity),
			Category:       strings.TrimSpace(g.Category),
			Recommendation: strings.TrimSpace(g.Recommendation),
			Deadline:       strings.TrimSpace(g.Deadline),
			RelatedNorms:   cleanList(g.RelatedNorms),
		}
		if gap.Category == "" {
			gap.Category = "Geral"
		}
		if gap.Deadline == "" {
			gap.Deadline = "Não informado"
		}
		for _, ev := range g.Evidence {
			if ev.ChunkID == "" {
				continue
			}
			gap.Evidence = append(gap.Evidence, EvidenceFragment{
				ChunkID:  ev.ChunkID,
				NormCode: ev.NormCode,
				Content:  ev.Content,
				Source:   "local",
			})
		}
		result.Gaps = append(result.Gaps, gap)
	}

	return result, nil
}

// extractJSON returns the first balanced {...} object in the text, tolerating
// markdown fences and prose around the payload.
func extractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in reply", llm.ErrMalformedReply)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced JSON object in reply", llm.ErrMalformedReply)
}

// cleanList trims entries, drops empties and removes duplicates while
// preserving first-seen order.
func cleanList(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
