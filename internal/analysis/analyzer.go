package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/conformadev/conforma/internal/llm"
)

// Analyzer runs one chunk (or a whole document) through an LLM provider and
// decodes the structured compliance analysis.
type Analyzer struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
}

// NewAnalyzer creates an Analyzer. The timeout bounds each provider call; a
// timed-out call surfaces as a transient failure to the failover layer.
func NewAnalyzer(provider llm.Provider, model string, timeout time.Duration) *Analyzer {
	return &Analyzer{
		provider: provider,
		model:    model,
		timeout:  timeout,
	}
}

// AnalyzeChunk sends the chunk content with its normative evidence to the
// provider and returns the decoded per-chunk result.
func (a *Analyzer) AnalyzeChunk(ctx context.Context, content string, normCodes []string, evidence []EvidenceFragment, docType DocumentType) (*Result, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: buildSystemPrompt(docType)},
			{Role: llm.RoleUser, Content: buildUserPrompt(content, normCodes, evidence)},
		},
		MaxTokens:   4096,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("provider completion: %w", err)
	}

	result, err := ParseResult(resp.Content)
	if err != nil {
		return nil, err
	}

	providerName := resp.Provider
	if providerName == "" {
		providerName = a.provider.Name()
	}
	result.ProviderMeta = ProviderMeta{
		Provider:          providerName,
		Model:             resp.Model,
		FallbackTriggered: resp.FallbackUsed,
	}
	result.Metadata.Timestamp = time.Now()
	result.Metadata.ModelUsed = resp.Model
	return result, nil
}
