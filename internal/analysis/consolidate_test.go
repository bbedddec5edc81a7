package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/conformadev/conforma/internal/chunker"
)

func chunkOf(index, size int) chunker.Chunk {
	return chunker.Chunk{
		ID:        chunkIDForTest(index),
		Index:     index,
		SizeChars: size,
	}
}

func chunkIDForTest(index int) string {
	return string(rune('a'+index)) + "-chunk"
}

func TestConsolidateEmptyInput(t *testing.T) {
	if _, err := Consolidate(nil, Metadata{}); !errors.Is(err, ErrNothingToConsolidate) {
		t.Errorf("err = %v, want ErrNothingToConsolidate", err)
	}
}

func TestConsolidateWeightedScore(t *testing.T) {
	perChunk := []ChunkResult{
		{Chunk: chunkOf(0, 3000), Result: &Result{Score: 90}},
		{Chunk: chunkOf(1, 1000), Result: &Result{Score: 50}},
	}
	// (90*3000 + 50*1000) / 4000 = 80
	result, err := Consolidate(perChunk, Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 80 {
		t.Errorf("score = %v, want 80", result.Score)
	}
	if result.RiskLevel != RiskMedium {
		t.Errorf("risk = %q, want medio", result.RiskLevel)
	}
}

func TestConsolidateDeduplicatesGaps(t *testing.T) {
	gapA := Gap{
		ID:             "gap-a",
		Description:    "Falta ficha de entrega de EPI",
		Severity:       SeverityMedium,
		Category:       "EPI",
		Recommendation: "Criar ficha",
		Deadline:       "60 dias",
		RelatedNorms:   []string{"NR-06"},
		Evidence:       []EvidenceFragment{{ChunkID: "ev-1", NormCode: "NR-06"}},
	}
	gapB := gapA
	gapB.ID = "gap-b"
	gapB.Severity = SeverityCritical
	gapB.Recommendation = "Criar ficha de entrega com assinatura do trabalhador"
	gapB.RelatedNorms = []string{"NR-06", "NR-01"}
	gapB.Evidence = []EvidenceFragment{{ChunkID: "ev-2", NormCode: "NR-01"}}
	// Same finding, different casing.
	gapB.Category = "epi"

	perChunk := []ChunkResult{
		{Chunk: chunkOf(0, 100), Result: &Result{Score: 70, Gaps: []Gap{gapA}}},
		{Chunk: chunkOf(1, 100), Result: &Result{Score: 70, Gaps: []Gap{gapB}}},
	}
	result, err := Consolidate(perChunk, Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1 after dedup", len(result.Gaps))
	}

	gap := result.Gaps[0]
	if gap.Severity != SeverityCritical {
		t.Errorf("severity = %q, want critica (max wins)", gap.Severity)
	}
	if gap.Recommendation != gapB.Recommendation {
		t.Errorf("recommendation = %q, want the longer one", gap.Recommendation)
	}
	if len(gap.RelatedNorms) != 2 {
		t.Errorf("related norms = %v, want union of 2", gap.RelatedNorms)
	}
	if len(gap.Evidence) != 2 {
		t.Errorf("evidence = %d entries, want union of 2", len(gap.Evidence))
	}
	if len(gap.ChunkMetadata.ChunkIDsUsed) != 2 {
		t.Errorf("chunk IDs used = %v, want both chunks", gap.ChunkMetadata.ChunkIDsUsed)
	}
}

func TestConsolidateSortsGapsBySeverity(t *testing.T) {
	perChunk := []ChunkResult{{
		Chunk: chunkOf(0, 100),
		Result: &Result{Score: 60, Gaps: []Gap{
			{ID: "1", Description: "leve", Severity: SeverityLow, Category: "A"},
			{ID: "2", Description: "gravissima", Severity: SeverityCritical, Category: "B"},
			{ID: "3", Description: "intermediaria", Severity: SeverityMedium, Category: "C"},
		}},
	}}
	result, err := Consolidate(perChunk, Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Severity{SeverityCritical, SeverityMedium, SeverityLow}
	for i, g := range result.Gaps {
		if g.Severity != want[i] {
			t.Errorf("gap[%d].Severity = %q, want %q", i, g.Severity, want[i])
		}
	}
}

func TestConsolidateMetadataAndProvider(t *testing.T) {
	perChunk := []ChunkResult{
		{
			Chunk:   chunkOf(0, 100),
			Result:  &Result{Score: 80, Summary: "curto", ProviderMeta: ProviderMeta{Provider: "openai"}},
			Elapsed: 120 * time.Millisecond,
		},
		{
			Chunk:   chunkOf(1, 100),
			Result:  &Result{Score: 80, Summary: "um resumo bem mais detalhado", ProviderMeta: ProviderMeta{Provider: "openai", FallbackTriggered: true}},
			Elapsed: 340 * time.Millisecond,
		},
	}
	result, err := Consolidate(perChunk, Metadata{FailedChunks: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary != "um resumo bem mais detalhado" {
		t.Errorf("summary = %q, want the longest", result.Summary)
	}
	if !result.ProviderMeta.FallbackTriggered {
		t.Error("fallback flag lost during consolidation")
	}
	if result.Metadata.TotalChunksProcessed != 2 {
		t.Errorf("total chunks = %d, want 2", result.Metadata.TotalChunksProcessed)
	}
	if result.Metadata.FailedChunks != 1 {
		t.Errorf("failed chunks = %d, want 1 (base metadata preserved)", result.Metadata.FailedChunks)
	}
	if len(result.Metadata.ChunkLatencies) != 2 {
		t.Errorf("latencies = %v, want one per chunk", result.Metadata.ChunkLatencies)
	}
	if len(result.Metadata.ProcessingOrder) != 2 {
		t.Errorf("processing order = %v, want 2 entries", result.Metadata.ProcessingOrder)
	}
}
