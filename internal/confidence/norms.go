package confidence

import (
	"sort"
	"strings"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/kb"
)

// normKeywords maps each norm onto the document vocabulary that implies it.
// Keywords are stored unaccented; the input text is folded before matching.
var normKeywords = map[string][]string{
	"NR-01": {"pgr", "gerenciamento de riscos", "inventario de riscos", "plano de acao"},
	"NR-06": {"epi", "protecao individual", "certificado de aprovacao"},
	"NR-07": {"pcmso", "aso", "exame medico", "atestado de saude ocupacional"},
	"NR-09": {"agentes fisicos", "agentes quimicos", "agentes biologicos", "exposicao ocupacional"},
	"NR-15": {"insalubridade", "insalubre", "limite de tolerancia", "adicional de insalubridade"},
	"NR-17": {"ergonomia", "ergonomico", "levantamento de cargas", "mobiliario"},
	"NR-35": {"trabalho em altura", "protecao contra quedas", "linha de vida", "permissao de trabalho"},
}

// InferNorms returns the norm codes whose keywords appear in the document
// text. This is the independent heuristic the norm-agreement signal compares
// against the provider's citations.
func InferNorms(text string) []string {
	haystack := analysis.FoldAccents(strings.ToLower(text))

	var codes []string
	for code, keywords := range normKeywords {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				codes = append(codes, code)
				break
			}
		}
	}
	sort.Strings(codes)
	return codes
}

// Jaccard computes the Jaccard index of two norm-code sets, comparing codes
// in sanitized form so "NR-06" and "nr 06" agree.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for code := range setA {
		if _, ok := setB[code]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if key := kb.Sanitize(c); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
