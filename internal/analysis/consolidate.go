package analysis

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/conformadev/conforma/internal/chunker"
)

// ChunkResult pairs one chunk with its per-chunk analysis and latency.
type ChunkResult struct {
	Chunk   chunker.Chunk
	Result  *Result
	Elapsed time.Duration
}

// ErrNothingToConsolidate indicates Consolidate was called with no chunk
// results.
var ErrNothingToConsolidate = errors.New("no chunk results to consolidate")

// Consolidate merges per-chunk results into one document-level result. The
// score is the chunk-length-weighted mean, gaps are deduplicated by
// (categoria, descricao), and the audit metadata records which chunks
// contributed what. Consolidation is a single-threaded reduction; callers
// must have joined all chunk workers first.
func Consolidate(perChunk []ChunkResult, base Metadata) (*Result, error) {
	if len(perChunk) == 0 {
		return nil, ErrNothingToConsolidate
	}

	var weightedSum, totalWeight float64
	merged := make(map[string]*Gap)
	var order []string // dedup keys in first-seen order
	var summaries []string
	var strengths, attention, nextSteps []string
	meta := base
	meta.TotalChunksProcessed = len(perChunk)
	meta.GapChunks = make(map[string][]string)
	meta.ChunkLatencies = make(map[string]time.Duration, len(perChunk))
	providerMeta := perChunk[0].Result.ProviderMeta

	for _, cr := range perChunk {
		weight := float64(cr.Chunk.SizeChars)
		if weight <= 0 {
			weight = 1
		}
		weightedSum += cr.Result.Score * weight
		totalWeight += weight

		meta.ProcessingOrder = append(meta.ProcessingOrder, cr.Chunk.Index)
		meta.ChunkLatencies[cr.Chunk.ID] = cr.Elapsed
		if cr.Result.ProviderMeta.FallbackTriggered {
			providerMeta.FallbackTriggered = true
		}

		if s := strings.TrimSpace(cr.Result.Summary); s != "" {
			summaries = append(summaries, s)
		}
		strengths = append(strengths, cr.Result.Strengths...)
		attention = append(attention, cr.Result.AttentionPoints...)
		nextSteps = append(nextSteps, cr.Result.NextSteps...)

		for _, gap := range cr.Result.Gaps {
			key := dedupKey(gap)
			existing, ok := merged[key]
			if !ok {
				clone := gap
				clone.RelatedNorms = append([]string(nil), gap.RelatedNorms...)
				clone.Evidence = append([]EvidenceFragment(nil), gap.Evidence...)
				clone.ChunkMetadata = ChunkMetadata{}
				merged[key] = &clone
				order = append(order, key)
				existing = &clone
			} else {
				mergeGap(existing, gap)
			}
			existing.ChunkMetadata.ChunkIDsUsed = appendUnique(existing.ChunkMetadata.ChunkIDsUsed, cr.Chunk.ID)
			existing.ChunkMetadata.ProcessingOrder = append(existing.ChunkMetadata.ProcessingOrder, cr.Chunk.Index)
		}
	}

	score := weightedSum / totalWeight
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	score = math.Round(score*100) / 100

	gaps := make([]Gap, 0, len(order))
	for _, key := range order {
		g := merged[key]
		meta.GapChunks[g.ID] = g.ChunkMetadata.ChunkIDsUsed
		gaps = append(gaps, *g)
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Severity.Weight() > gaps[j].Severity.Weight()
	})

	return &Result{
		Score:           score,
		RiskLevel:       RiskFromScore(score),
		Gaps:            gaps,
		Summary:         longest(summaries),
		Strengths:       cleanList(strengths),
		AttentionPoints: cleanList(attention),
		NextSteps:       cleanList(nextSteps),
		ProviderMeta:    providerMeta,
		Metadata:        meta,
	}, nil
}

// dedupKey identifies gaps reporting the same finding across chunks.
func dedupKey(g Gap) string {
	return strings.ToLower(g.Category) + "::" + strings.ToLower(strings.TrimSpace(g.Description))
}

// mergeGap folds a colliding gap into the existing one: highest severity
// wins, the longer recommendation/deadline wins, norm and evidence sets
// union.
func mergeGap(dst *Gap, src Gap) {
	dst.Severity = MaxSeverity(dst.Severity, src.Severity)
	if len(src.Recommendation) > len(dst.Recommendation) {
		dst.Recommendation = src.Recommendation
	}
	if len(src.Deadline) > len(dst.Deadline) {
		dst.Deadline = src.Deadline
	}
	for _, n := range src.RelatedNorms {
		dst.RelatedNorms = appendUnique(dst.RelatedNorms, n)
	}
	seen := make(map[string]bool, len(dst.Evidence))
	for _, ev := range dst.Evidence {
		seen[ev.ChunkID] = true
	}
	for _, ev := range src.Evidence {
		if !seen[ev.ChunkID] {
			seen[ev.ChunkID] = true
			dst.Evidence = append(dst.Evidence, ev)
		}
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func longest(list []string) string {
	var best string
	for _, s := range list {
		if len(s) > len(best) {
			best = s
		}
	}
	return best
}
