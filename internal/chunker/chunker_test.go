package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyDocument(t *testing.T) {
	chunks := Split("", DefaultOptions())
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty document, got %d", len(chunks))
	}
}

func TestSplit_SingleChunkWhenSmall(t *testing.T) {
	text := "Programa de Gerenciamento de Riscos conforme NR-01."
	chunks := Split(text, DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.StartOffset != 0 || c.EndOffset != len(text) {
		t.Errorf("chunk should span whole document, got [%d,%d)", c.StartOffset, c.EndOffset)
	}
	if c.Content != text {
		t.Errorf("chunk content mismatch")
	}
	if c.TotalChunks != 1 || c.Index != 0 {
		t.Errorf("unexpected index/total: %d/%d", c.Index, c.TotalChunks)
	}
	if !strings.HasPrefix(c.ID, "doc-chunk-000-") {
		t.Errorf("unexpected chunk ID %q", c.ID)
	}
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Repeat("O trabalhador deve receber o EPI adequado. ", 2000)
	opts := Options{ChunkSize: 10000, OverlapSize: 1000, MinChunkSize: 2000}

	a := Split(text, opts)
	b := Split(text, opts)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d: IDs differ: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestSplit_Totality(t *testing.T) {
	text := strings.Repeat("Medidas de controle devem ser implementadas.\n", 3000)
	opts := Options{ChunkSize: 15000, OverlapSize: 1500, MinChunkSize: 3000}

	chunks := Split(text, opts)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("first chunk starts at %d, want 0", chunks[0].StartOffset)
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(text))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartOffset >= chunks[i].EndOffset {
			t.Errorf("chunk %d is empty: [%d,%d)", i, chunks[i].StartOffset, chunks[i].EndOffset)
		}
		if chunks[i].StartOffset <= chunks[i-1].StartOffset {
			t.Errorf("chunk %d does not advance: %d <= %d", i, chunks[i].StartOffset, chunks[i-1].StartOffset)
		}
	}
}

func TestSplit_OverlapScenario(t *testing.T) {
	// 38,400-character document with the reference segmentation options.
	text := strings.Repeat("x", 38400)
	opts := Options{ChunkSize: 20000, OverlapSize: 2000, MinChunkSize: 3000}

	chunks := Split(text, opts)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[1].StartOffset >= chunks[0].EndOffset {
		t.Errorf("expected overlap: chunk 1 starts at %d, chunk 0 ends at %d",
			chunks[1].StartOffset, chunks[0].EndOffset)
	}
	if last := chunks[len(chunks)-1]; last.TotalChunks != len(chunks) {
		t.Errorf("TotalChunks = %d, want %d", last.TotalChunks, len(chunks))
	}
}

func TestSplit_TerminatesWithPathologicalOverlap(t *testing.T) {
	text := strings.Repeat("y", 500)
	opts := Options{ChunkSize: 100, OverlapSize: 250, MinChunkSize: 10}

	chunks := Split(text, opts)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for _, c := range chunks {
		if c.SizeChars == 0 {
			t.Errorf("chunk %d is empty", c.Index)
		}
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(text))
	}
}

func TestSplit_PrefersNaturalBreak(t *testing.T) {
	para := strings.Repeat("a", 90) + "\n\n" + strings.Repeat("b", 60)
	opts := Options{ChunkSize: 100, OverlapSize: 0, MinChunkSize: 10}

	chunks := Split(para, opts)
	if len(chunks) < 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("expected first chunk to end at the paragraph break, got %q tail", chunks[0].Content[len(chunks[0].Content)-5:])
	}
}

func TestSplit_MinSizeFloorWins(t *testing.T) {
	// A sentence break at position 22 is earlier than the minimum chunk
	// size, so the floor must win.
	text := strings.Repeat("a", 20) + ". " + strings.Repeat("b", 278)
	opts := Options{ChunkSize: 100, OverlapSize: 10, MinChunkSize: 50}

	chunks := Split(text, opts)
	if chunks[0].EndOffset < 50 {
		t.Errorf("first chunk ends at %d, want >= MinChunkSize 50", chunks[0].EndOffset)
	}
}

func TestSplit_LargeDocument(t *testing.T) {
	text := strings.Repeat("O empregador deve elaborar o inventario de riscos. ", 20000) // ~1MB
	chunks := Split(text, DefaultOptions())
	if len(chunks) < 50 {
		t.Fatalf("expected many chunks for a ~1MB document, got %d", len(chunks))
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(text))
	}
}

func TestFragments(t *testing.T) {
	text := strings.Repeat("A norma exige treinamento periodico. ", 200)
	frags := Fragments(text, 1400, 200)
	if len(frags) < 2 {
		t.Fatalf("expected multiple fragments, got %d", len(frags))
	}
	for i, f := range frags {
		if f == "" {
			t.Errorf("fragment %d is empty", i)
		}
	}

	if got := Fragments("curto", 1400, 200); len(got) != 1 || got[0] != "curto" {
		t.Errorf("short text should yield itself, got %v", got)
	}
}
