package config

// defaultModels maps each provider to its default analysis model.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:    "gpt-4o",
	ProviderGroq:      "llama-3.3-70b-versatile",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOllama:    "llama3",
}

// DefaultModel returns the default model for a provider, or empty when the
// provider is unknown.
func DefaultModel(p ProviderType) string {
	return defaultModels[p]
}

// DefaultConfig returns a Config with sensible defaults: OpenAI primary with
// Groq fallback, standard chunking parameters and a local data directory.
func DefaultConfig() *Config {
	return &Config{
		Provider:         ProviderOpenAI,
		Model:            defaultModels[ProviderOpenAI],
		FallbackProvider: ProviderGroq,
		FallbackModel:    defaultModels[ProviderGroq],
		TimeoutSeconds:   60,
		RPM:              0,

		ChunkSize:    20000,
		OverlapSize:  2000,
		MinChunkSize: 3000,

		MaxChunks:     40,
		HardMaxChunks: 200,
		Concurrency:   3,

		KnowledgeDir:          "normas",
		DataDir:               ".conforma",
		Port:                  8321,
		IdempotencyTTLMinutes: 60,
	}
}
