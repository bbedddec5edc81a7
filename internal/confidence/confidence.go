package confidence

// Class is the coarse bucket summarizing the numeric confidence score.
type Class string

const (
	ClassHigh   Class = "alta"
	ClassMedium Class = "media"
	ClassLow    Class = "baixa"
)

// Signals are the five independent inputs to the confidence model.
type Signals struct {
	// ParseOK is false when any provider reply failed schema validation.
	ParseOK bool
	// NormAgreement is the Jaccard index between the norms the provider
	// cited and the norms inferred heuristically from the document text.
	NormAgreement float64
	// Gap evidence coverage.
	TotalGaps        int
	GapsWithEvidence int
	// Knowledge-base coverage.
	TotalNorms       int
	MissingNormCodes []string
	// FallbackTriggered is true when the fallback provider produced any
	// part of the result.
	FallbackTriggered bool
}

// Report is the scored confidence assessment attached to a final result.
// Alerts are human-readable and surface verbatim in the report.
type Report struct {
	Score      int            `json:"confidenceScore"`
	Class      Class          `json:"confidenceClass"`
	Components map[string]int `json:"components"`
	Alerts     []string       `json:"alerts,omitempty"`
}

// Component caps. The five components sum to at most 100.
const (
	parsePoints         = 15
	agreementFullPoints = 20
	agreementHalfPoints = 10
	evidenceFullPoints  = 35
	evidenceMostPoints  = 20
	coverageFullPoints  = 15
	coveragePartPoints  = 5
	stabilityFullPoints = 15
	stabilityDegraded   = 8
	agreementFullCutoff = 0.7
	agreementHalfCutoff = 0.4
	evidenceMostCutoff  = 0.8
)

// Score computes the 0-100 confidence score and its reliability alerts from
// the five signals. Every failed threshold appends a specific alert rather
// than a generic warning, so report readers can trace exactly which signal
// degraded confidence.
func Score(sig Signals) Report {
	components := make(map[string]int, 5)
	var alerts []string

	if sig.ParseOK {
		components["parse"] = parsePoints
	} else {
		components["parse"] = 0
		alerts = append(alerts, "A resposta do provedor de IA não pôde ser validada integralmente; partes do resultado podem estar incompletas.")
	}

	switch {
	case sig.NormAgreement >= agreementFullCutoff:
		components["concordancia_normas"] = agreementFullPoints
	case sig.NormAgreement >= agreementHalfCutoff:
		components["concordancia_normas"] = agreementHalfPoints
		alerts = append(alerts, "Concordância apenas parcial entre as normas citadas pela IA e as normas inferidas do texto do documento.")
	default:
		components["concordancia_normas"] = 0
		alerts = append(alerts, "Baixa concordância entre as normas citadas pela IA e as normas inferidas do texto do documento.")
	}

	coverage := 1.0
	if sig.TotalGaps > 0 {
		coverage = float64(sig.GapsWithEvidence) / float64(sig.TotalGaps)
	}
	switch {
	case coverage >= 1.0:
		components["cobertura_evidencias"] = evidenceFullPoints
	case coverage >= evidenceMostCutoff:
		components["cobertura_evidencias"] = evidenceMostPoints
		alerts = append(alerts, "Alguns gaps reportados não possuem evidência normativa rastreável.")
	default:
		components["cobertura_evidencias"] = 0
		alerts = append(alerts, "Menos de 80% dos gaps reportados possuem evidência normativa rastreável.")
	}

	missing := len(sig.MissingNormCodes)
	switch {
	case missing == 0:
		components["cobertura_base"] = coverageFullPoints
	case missing < sig.TotalNorms:
		components["cobertura_base"] = coveragePartPoints
		alerts = append(alerts, "Normas sem texto na base de conhecimento: "+joinCodes(sig.MissingNormCodes)+".")
	default:
		components["cobertura_base"] = 0
		alerts = append(alerts, "Nenhuma das normas aplicáveis possui texto na base de conhecimento: "+joinCodes(sig.MissingNormCodes)+".")
	}

	if sig.FallbackTriggered {
		components["estabilidade_provedor"] = stabilityDegraded
		alerts = append(alerts, "O provedor primário ficou indisponível durante a análise; o provedor de fallback foi utilizado.")
	} else {
		components["estabilidade_provedor"] = stabilityFullPoints
	}

	total := 0
	for _, v := range components {
		total += v
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return Report{
		Score:      total,
		Class:      classify(total),
		Components: components,
		Alerts:     alerts,
	}
}

func classify(score int) Class {
	switch {
	case score >= 80:
		return ClassHigh
	case score >= 60:
		return ClassMedium
	default:
		return ClassLow
	}
}

func joinCodes(codes []string) string {
	out := ""
	for i, c := range codes {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
