package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conformadev/conforma/internal/chunker"
	"github.com/conformadev/conforma/internal/config"
	"github.com/conformadev/conforma/internal/db"
	"github.com/conformadev/conforma/internal/job"
	"github.com/conformadev/conforma/internal/llm"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `conforma init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildProviderChain assembles the provider stack from config: concrete
// clients, the optional requests-per-minute limiter on the primary, and the
// failover wrapper. Each provider resolves its own model, so the chain works
// with heterogeneous primary/fallback models.
func buildProviderChain(cfg *config.Config) (llm.Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	primary, err := llm.NewProvider(llm.ProviderConfig{
		Type:    string(cfg.Provider),
		Model:   cfg.Model,
		APIKey:  os.Getenv(config.APIKeyEnvVar(cfg.Provider)),
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating primary provider: %w", err)
	}
	primary = llm.NewRateLimitedProvider(primary, cfg.RPM)

	var fallback llm.Provider
	if cfg.FallbackProvider != "" && !cfg.StrictDeterminism {
		fallback, err = llm.NewProvider(llm.ProviderConfig{
			Type:    string(cfg.FallbackProvider),
			Model:   cfg.FallbackModel,
			APIKey:  os.Getenv(config.APIKeyEnvVar(cfg.FallbackProvider)),
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating fallback provider: %w", err)
		}
	}

	return llm.NewFailover(primary, fallback, cfg.StrictDeterminism), nil
}

// openDatabase opens (creating if needed) the SQLite database under DataDir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return db.Open(filepath.Join(cfg.DataDir, "conforma.db"))
}

// runnerConfig maps the file config onto the pipeline runner config.
func runnerConfig(cfg *config.Config) job.Config {
	return job.Config{
		ChunkOptions: chunker.Options{
			ChunkSize:    cfg.ChunkSize,
			OverlapSize:  cfg.OverlapSize,
			MinChunkSize: cfg.MinChunkSize,
		},
		MaxChunks:     cfg.MaxChunks,
		HardMaxChunks: cfg.HardMaxChunks,
		Concurrency:   cfg.Concurrency,
	}
}
