package evidence

import (
	"testing"

	"github.com/conformadev/conforma/internal/analysis"
)

func validSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestValidateKeepsSubstantiatedGaps(t *testing.T) {
	result := &analysis.Result{
		Score:     70,
		RiskLevel: analysis.RiskMedium,
		Gaps: []analysis.Gap{{
			ID:          "g1",
			Description: "Falta ficha de EPI",
			Severity:    analysis.SeverityMedium,
			Evidence: []analysis.EvidenceFragment{
				{ChunkID: "known", NormCode: "NR-06"},
				{ChunkID: "unknown", NormCode: "NR-06"},
			},
		}},
	}

	report := Validate(result, validSet("known"))
	if report.RemovedCount != 0 {
		t.Errorf("removed = %d, want 0", report.RemovedCount)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(result.Gaps))
	}
	if len(result.Gaps[0].Evidence) != 1 || result.Gaps[0].Evidence[0].ChunkID != "known" {
		t.Errorf("evidence = %+v, want only the traceable entry", result.Gaps[0].Evidence)
	}
	if result.Score != 70 {
		t.Errorf("score = %v, want unchanged 70", result.Score)
	}
}

func TestValidateDropsUnsubstantiatedGapsAndRescales(t *testing.T) {
	result := &analysis.Result{
		Score:     60,
		RiskLevel: analysis.RiskHigh,
		Gaps: []analysis.Gap{
			{ID: "keep", Description: "com evidência", Evidence: []analysis.EvidenceFragment{{ChunkID: "known"}}},
			{ID: "drop-fabricated", Description: "evidência inventada", Evidence: []analysis.EvidenceFragment{{ChunkID: "fabricado"}}},
			{ID: "drop-empty", Description: "sem evidência"},
		},
	}

	report := Validate(result, validSet("known"))
	if report.RemovedCount != 2 || report.OriginalCount != 3 {
		t.Errorf("report = %+v, want 2 removed of 3", report)
	}
	if len(result.Gaps) != 1 || result.Gaps[0].ID != "keep" {
		t.Fatalf("gaps = %+v, want only the substantiated one", result.Gaps)
	}

	// score + (100-score) * (1 - 1/3) = 60 + 40*2/3 ~= 87
	if result.Score != 87 {
		t.Errorf("score = %v, want 87 after rescale", result.Score)
	}
	if result.RiskLevel != analysis.RiskLow {
		t.Errorf("risk = %q, want baixo after rescale", result.RiskLevel)
	}
}

func TestValidateAllGapsRemoved(t *testing.T) {
	result := &analysis.Result{
		Score:     40,
		RiskLevel: analysis.RiskCritical,
		Gaps: []analysis.Gap{
			{ID: "g1", Description: "sem lastro"},
			{ID: "g2", Description: "também sem lastro", Evidence: []analysis.EvidenceFragment{{ChunkID: "x"}}},
		},
	}

	report := Validate(result, validSet())
	if report.RemovedCount != 2 {
		t.Errorf("removed = %d, want 2", report.RemovedCount)
	}
	if len(result.Gaps) != 0 {
		t.Errorf("gaps = %d, want 0", len(result.Gaps))
	}
	if result.Score != 100 {
		t.Errorf("score = %v, want 100 when every finding was discarded", result.Score)
	}
	if result.RiskLevel != analysis.RiskLow {
		t.Errorf("risk = %q, want baixo", result.RiskLevel)
	}
}

func TestValidateNoGapsIsNoop(t *testing.T) {
	result := &analysis.Result{Score: 55, RiskLevel: analysis.RiskHigh}
	report := Validate(result, validSet("a"))
	if report.RemovedCount != 0 || report.OriginalCount != 0 {
		t.Errorf("report = %+v, want zeros", report)
	}
	if result.Score != 55 {
		t.Errorf("score = %v, want untouched", result.Score)
	}
}
