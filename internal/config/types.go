package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderGroq      ProviderType = "groq"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level conforma configuration, corresponding to
// .conforma.yml.
type Config struct {
	Provider         ProviderType `yaml:"provider" koanf:"provider"`
	Model            string       `yaml:"model" koanf:"model"`
	FallbackProvider ProviderType `yaml:"fallback_provider" koanf:"fallback_provider"`
	FallbackModel    string       `yaml:"fallback_model" koanf:"fallback_model"`
	TimeoutSeconds   int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	RPM              int          `yaml:"rpm" koanf:"rpm"`

	// StrictDeterminism disables the automatic retry-on-transient-failure
	// fallback: any provider error fails the chunk immediately.
	StrictDeterminism bool `yaml:"strict_determinism" koanf:"strict_determinism"`
	// StrictEvidence turns a norm without stored text into a hard failure
	// instead of a reported coverage alert.
	StrictEvidence bool `yaml:"strict_evidence" koanf:"strict_evidence"`

	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	OverlapSize  int `yaml:"overlap_size" koanf:"overlap_size"`
	MinChunkSize int `yaml:"min_chunk_size" koanf:"min_chunk_size"`

	MaxChunks     int `yaml:"max_chunks" koanf:"max_chunks"`
	HardMaxChunks int `yaml:"hard_max_chunks" koanf:"hard_max_chunks"`
	Concurrency   int `yaml:"concurrency" koanf:"concurrency"`

	KnowledgeDir          string `yaml:"knowledge_dir" koanf:"knowledge_dir"`
	DataDir               string `yaml:"data_dir" koanf:"data_dir"`
	Port                  int    `yaml:"port" koanf:"port"`
	IdempotencyTTLMinutes int    `yaml:"idempotency_ttl_minutes" koanf:"idempotency_ttl_minutes"`
}
