package analysis

import "time"

// DocumentType identifies the kind of regulatory document under analysis.
type DocumentType string

const (
	DocTypePGR   DocumentType = "PGR"
	DocTypePCMSO DocumentType = "PCMSO"
	DocTypeLTCAT DocumentType = "LTCAT"
	DocTypeASO   DocumentType = "ASO"
	DocTypeOutro DocumentType = "OUTRO"
)

// Document is the immutable analysis input: the raw text, its declared type
// and the norm codes it must be checked against.
type Document struct {
	Text      string       `json:"documentText"`
	Type      DocumentType `json:"documentType"`
	NormCodes []string     `json:"applicableNormCodes"`
}

// RiskLevel is the coarse risk bucket derived from the compliance score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "baixo"
	RiskMedium   RiskLevel = "medio"
	RiskHigh     RiskLevel = "alto"
	RiskCritical RiskLevel = "critico"
)

// RiskFromScore maps a 0-100 compliance score onto a risk level using fixed
// thresholds.
func RiskFromScore(score float64) RiskLevel {
	switch {
	case score >= 85:
		return RiskLow
	case score >= 70:
		return RiskMedium
	case score >= 50:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// EvidenceFragment is a ranked excerpt of normative text substantiating a
// finding. Immutable once produced by the retriever.
type EvidenceFragment struct {
	ChunkID  string  `json:"chunkId"`
	NormCode string  `json:"normCode"`
	Section  string  `json:"section,omitempty"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
}

// ChunkMetadata records which chunks surfaced a gap and in what order they
// were processed.
type ChunkMetadata struct {
	ChunkIDsUsed    []string `json:"chunkIdsUsed,omitempty"`
	ProcessingOrder []int    `json:"processingOrder,omitempty"`
}

// Gap is a single compliance finding (non-conformity). Field names follow
// the report vocabulary used across the product.
type Gap struct {
	ID             string             `json:"id"`
	Description    string             `json:"descricao"`
	Severity       Severity           `json:"severidade"`
	Category       string             `json:"categoria"`
	Recommendation string             `json:"recomendacao"`
	Deadline       string             `json:"prazo"`
	RelatedNorms   []string           `json:"normasRelacionadas,omitempty"`
	Evidence       []EvidenceFragment `json:"evidencias,omitempty"`
	ChunkMetadata  ChunkMetadata      `json:"chunkMetadata,omitempty"`
}

// ProviderMeta records which provider produced a result and whether the
// fallback path was taken.
type ProviderMeta struct {
	Provider          string `json:"provider"`
	Model             string `json:"model,omitempty"`
	FallbackTriggered bool   `json:"fallbackTriggered"`
}

// Metadata carries the audit trail of a consolidation.
type Metadata struct {
	Timestamp            time.Time                `json:"timestamp"`
	ModelUsed            string                   `json:"modelUsed,omitempty"`
	TotalChunksProcessed int                      `json:"totalChunksProcessed,omitempty"`
	FailedChunks         int                      `json:"failedChunks,omitempty"`
	GapChunks            map[string][]string      `json:"gapChunks,omitempty"`
	ProcessingOrder      []int                    `json:"processingOrder,omitempty"`
	ChunkLatencies       map[string]time.Duration `json:"chunkLatencies,omitempty"`
}

// Result is the document-level compliance analysis. Immutable after the job
// finalizes it.
type Result struct {
	Score             float64      `json:"score"`
	RiskLevel         RiskLevel    `json:"riskLevel"`
	Gaps              []Gap        `json:"gaps"`
	Summary           string       `json:"summary"`
	Strengths         []string     `json:"strengths,omitempty"`
	AttentionPoints   []string     `json:"attentionPoints,omitempty"`
	NextSteps         []string     `json:"nextSteps,omitempty"`
	ConfidenceScore   int          `json:"confidenceScore"`
	ConfidenceClass   string       `json:"confidenceClass,omitempty"`
	ReliabilityAlerts []string     `json:"reliabilityAlerts,omitempty"`
	ProviderMeta      ProviderMeta `json:"providerMeta"`
	Metadata          Metadata     `json:"metadata"`
}
