package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to paperrag! Let's configure your paper library.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Generation provider.
	llmPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{string(ProviderOllama), string(ProviderOpenAI)},
	}
	_, llmStr, err := llmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("llm provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(llmStr)

	modelPrompt := promptui.Prompt{
		Label:   "Generation model",
		Default: LLMPreset(cfg.LLM.Provider),
	}
	if cfg.LLM.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Embedding provider. Changing it later requires re-ingesting every
	// paper because the vector dimensionality changes.
	embPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{string(ProviderOllama), string(ProviderOpenAI)},
	}
	_, embStr, err := embPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.Embedding.Provider = ProviderType(embStr)
	defModel, defDims := EmbeddingPreset(cfg.Embedding.Provider)

	embModelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: defModel,
	}
	if cfg.Embedding.Model, err = embModelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}

	dimsPrompt := promptui.Prompt{
		Label:    "Embedding dimensions",
		Default:  strconv.Itoa(defDims),
		Validate: validatePositiveInt,
	}
	dimsStr, err := dimsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding dimensions: %w", err)
	}
	cfg.Embedding.Dimensions, _ = strconv.Atoi(dimsStr)

	// 3. Cross-encoder re-ranking.
	rerankPrompt := promptui.Select{
		Label: "Enable cross-encoder re-ranking",
		Items: []string{"no", "yes"},
	}
	_, rerankStr, err := rerankPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rerank selection: %w", err)
	}
	if rerankStr == "yes" {
		cfg.Rerank.Enabled = true
		urlPrompt := promptui.Prompt{
			Label:   "Re-ranker endpoint",
			Default: cfg.Rerank.URL,
		}
		if cfg.Rerank.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("rerank url: %w", err)
		}
	}

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []ProviderType{cfg.LLM.Provider, cfg.Embedding.Provider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running paperrag.\n", envVar)
			break
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive integer")
	}
	return nil
}
