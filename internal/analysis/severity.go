package analysis

import "strings"

// Severity is the canonical severity of a gap.
type Severity string

const (
	SeverityLow      Severity = "baixa"
	SeverityMedium   Severity = "media"
	SeverityHigh     Severity = "alta"
	SeverityCritical Severity = "critica"
)

// severityWeights orders severities for comparisons and sorting.
var severityWeights = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Weight returns the ordinal weight of the severity (critica=4 .. baixa=1).
// Unknown severities weigh 0.
func (s Severity) Weight() int {
	return severityWeights[s]
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Weight() > a.Weight() {
		return b
	}
	return a
}

// accentFolder maps accented characters seen in provider replies to their
// unaccented forms.
var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// FoldAccents replaces accented characters with their unaccented forms.
// Shared by everything that compares Portuguese text case/accent-insensitively.
func FoldAccents(s string) string {
	return accentFolder.Replace(s)
}

// severityAliases maps folded variants (Portuguese and English) onto the
// canonical levels.
var severityAliases = map[string]Severity{
	"baixa":    SeverityLow,
	"baixo":    SeverityLow,
	"leve":     SeverityLow,
	"low":      SeverityLow,
	"media":    SeverityMedium,
	"medio":    SeverityMedium,
	"moderada": SeverityMedium,
	"medium":   SeverityMedium,
	"alta":     SeverityHigh,
	"alto":     SeverityHigh,
	"grave":    SeverityHigh,
	"high":     SeverityHigh,
	"critica":  SeverityCritical,
	"critico":  SeverityCritical,
	"critical": SeverityCritical,
}

// NormalizeSeverity folds case and accents and maps known variants onto the
// four canonical levels. Unrecognized values default to media rather than
// dropping the finding.
func NormalizeSeverity(raw string) Severity {
	folded := accentFolder.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if s, ok := severityAliases[folded]; ok {
		return s
	}
	return SeverityMedium
}
