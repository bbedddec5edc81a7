package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .conforma.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to conforma! Let's configure your analysis pipeline.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Primary provider.
	providerPrompt := promptui.Select{
		Label: "Select primary LLM provider",
		Items: []string{"openai", "groq", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.Model = DefaultModel(cfg.Provider)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Fallback provider.
	fallbackPrompt := promptui.Select{
		Label: "Select fallback provider (used when the primary fails)",
		Items: []string{"groq", "openai", "anthropic", "ollama", "none"},
	}
	_, fallbackStr, err := fallbackPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("fallback selection: %w", err)
	}
	if fallbackStr == "none" {
		cfg.FallbackProvider = ""
		cfg.FallbackModel = ""
	} else {
		cfg.FallbackProvider = ProviderType(fallbackStr)
		cfg.FallbackModel = DefaultModel(cfg.FallbackProvider)
	}

	// 3. Knowledge base directory.
	kbPrompt := promptui.Prompt{
		Label:   "Directory with normative texts (one .txt per norm, e.g. nr-06.txt)",
		Default: cfg.KnowledgeDir,
	}
	if cfg.KnowledgeDir, err = kbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("knowledge dir: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "API server port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Provider, cfg.FallbackProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: set %s in your environment before running conforma.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
