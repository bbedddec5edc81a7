package evidence

import (
	"math"

	"github.com/conformadev/conforma/internal/analysis"
)

// ValidationReport summarizes what Validate removed.
type ValidationReport struct {
	RemovedCount  int
	OriginalCount int
}

// Validate drops every gap whose evidence cannot be traced back to the
// retrieved evidence set: gaps with no evidence at all, or whose entries all
// reference unknown chunk IDs. Surviving gaps keep only their valid entries.
// When gaps are removed the score is raised toward 100 proportionally to the
// discarded share — an unsubstantiated negative finding must not penalize
// the document. Mutates result in place.
func Validate(result *analysis.Result, validChunkIDs map[string]struct{}) ValidationReport {
	report := ValidationReport{OriginalCount: len(result.Gaps)}
	if len(result.Gaps) == 0 {
		return report
	}

	surviving := result.Gaps[:0]
	for _, gap := range result.Gaps {
		var kept []analysis.EvidenceFragment
		for _, ev := range gap.Evidence {
			if _, ok := validChunkIDs[ev.ChunkID]; ok {
				kept = append(kept, ev)
			}
		}
		if len(kept) == 0 {
			report.RemovedCount++
			continue
		}
		gap.Evidence = kept
		surviving = append(surviving, gap)
	}
	result.Gaps = surviving

	if report.RemovedCount > 0 {
		ratio := float64(len(surviving)) / float64(report.OriginalCount)
		newScore := math.Round(result.Score + (100-result.Score)*(1-ratio))
		if newScore > 100 {
			newScore = 100
		}
		result.Score = newScore
		result.RiskLevel = analysis.RiskFromScore(newScore)
	}
	return report
}
