package evidence

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/chunker"
	"github.com/conformadev/conforma/internal/kb"
)

const (
	defaultLimit     = 12
	fragmentSize     = 1400
	fragmentOverlap  = 200
	maxScoringTokens = 80
	minTokenLength   = 4
)

// Retriever scores locally-stored normative text fragments against document
// text by keyword overlap. Deterministic by construction: no embeddings, no
// remote calls.
type Retriever struct {
	store  *kb.Store
	limit  int
	strict bool
}

// NewRetriever creates a Retriever over the given knowledge-base store.
// limit caps how many fragments are returned per retrieval (0 = default 12).
// In strict mode a norm code with no stored text is a hard failure instead of
// a soft MissingNormCodes entry.
func NewRetriever(store *kb.Store, limit int, strict bool) *Retriever {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Retriever{store: store, limit: limit, strict: strict}
}

// Retrieval is the outcome of one evidence lookup.
type Retrieval struct {
	Evidence         []analysis.EvidenceFragment
	MissingNormCodes []string
}

// Retrieve ranks fragments of the stored texts for the given norm codes
// against the input text and returns the top-scoring ones, tagged with the
// chunk ID they were retrieved for. Zero-score fragments are discarded.
func (r *Retriever) Retrieve(normCodes []string, text, chunkID string) (*Retrieval, error) {
	result := &Retrieval{}
	haystack := analysis.FoldAccents(strings.ToLower(text))

	var scored []analysis.EvidenceFragment
	for _, code := range normCodes {
		norm, err := r.store.Get(code)
		if err != nil {
			result.MissingNormCodes = append(result.MissingNormCodes, code)
			continue
		}

		source := "local"
		if norm.FromCatalog {
			source = "catalogo"
		}

		for i, frag := range chunker.Fragments(norm.Content, fragmentSize, fragmentOverlap) {
			score := overlapScore(frag, haystack)
			if score <= 0 {
				continue
			}
			scored = append(scored, analysis.EvidenceFragment{
				ChunkID:  chunkID,
				NormCode: code,
				Section:  fmt.Sprintf("fragmento %d", i+1),
				Content:  frag,
				Score:    score,
				Source:   source,
			})
		}
	}

	if r.strict && len(result.MissingNormCodes) > 0 {
		return nil, fmt.Errorf("normas sem texto na base de conhecimento: %s",
			strings.Join(result.MissingNormCodes, ", "))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > r.limit {
		scored = scored[:r.limit]
	}
	result.Evidence = scored
	return result, nil
}

// overlapScore computes the fraction of fragment tokens present verbatim in
// the lowercased input. A crude relevance proxy, but deterministic.
func overlapScore(fragment, haystack string) float64 {
	tokens := scoringTokens(fragment)
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// scoringTokens extracts up to 80 distinct tokens longer than 3 characters
// from the fragment.
func scoringTokens(fragment string) []string {
	folded := analysis.FoldAccents(strings.ToLower(fragment))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]bool)
	var tokens []string
	for _, f := range fields {
		if len(f) < minTokenLength || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
		if len(tokens) == maxScoringTokens {
			break
		}
	}
	return tokens
}
