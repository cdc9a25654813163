package config

// DefaultClusters are the keyword groups the scope detector classifies
// questions against.
var DefaultClusters = []KeywordCluster{
	{Name: "transformers", Terms: []string{"transformer", "attention", "self-attention", "encoder", "decoder", "bert", "gpt"}},
	{Name: "vision", Terms: []string{"vision", "image", "convolutional", "cnn", "visual", "segmentation"}},
	{Name: "reinforcement", Terms: []string{"reinforcement", "reward", "policy", "agent", "q-learning"}},
	{Name: "machine-learning", Terms: []string{"machine learning", "neural", "deep learning", "training", "network"}},
	{Name: "blockchain", Terms: []string{"blockchain", "ledger", "smart contract", "consensus", "crypto", "decentralized"}},
}

// DefaultBoostTerms are query cues that trigger the retrieval keyword boost.
var DefaultBoostTerms = []string{"attention", "transformer"}

// DefaultGreetings are small-talk inputs answered without retrieval.
var DefaultGreetings = []string{
	"hi", "hello", "hey", "hi there", "hello there", "thanks", "thank you",
	"good morning", "good afternoon", "good evening", "how are you", "ok", "bye",
}

// DefaultUncertaintyPhrases lower confidence when found in a generated answer.
var DefaultUncertaintyPhrases = []string{
	"don't know", "do not know", "not sure", "cannot answer", "can't answer",
	"insufficient information", "not enough information", "unclear",
}

// DefaultExcludes are glob patterns skipped during directory ingestion.
var DefaultExcludes = []string{
	".git/**",
	"**/.*",
	"node_modules/**",
}

// embeddingPresets maps an embedding provider to its default model and
// vector dimensionality.
var embeddingPresets = map[ProviderType]struct {
	Model      string
	Dimensions int
}{
	ProviderOpenAI: {Model: "text-embedding-3-small", Dimensions: 1536},
	ProviderOllama: {Model: "all-minilm", Dimensions: 384},
}

// llmPresets maps a generation provider to its default model.
var llmPresets = map[ProviderType]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".paperrag",
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			AllowedOrigins: []string{"*"},
			TimeoutSeconds: 120,
		},
		LLM: LLMConfig{
			Provider:  ProviderOllama,
			Model:     "llama3",
			MaxTokens: 512,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOllama,
			Model:      "all-minilm",
			Dimensions: 384,
			CacheSize:  256,
		},
		Chunking: ChunkingConfig{
			MaxChars:     1000,
			OverlapChars: 150,
		},
		Retrieval: RetrievalConfig{
			TopK:              5,
			MaxTopK:           20,
			Multiplier:        2,
			ScopedThreshold:   0.05,
			UnscopedThreshold: 0.15,
			BoostTerms:        DefaultBoostTerms,
			ChunkBoost:        0.05,
			TitleBoost:        0.1,
		},
		Scope: ScopeConfig{
			Clusters:         DefaultClusters,
			MinQuotedLen:     5,
			MinKeywordHits:   2,
			MinMediumMatches: 2,
		},
		Rerank: RerankConfig{
			Enabled:        false,
			URL:            "http://127.0.0.1:8080/rerank",
			Model:          "cross-encoder/ms-marco-MiniLM-L-6-v2",
			TimeoutSeconds: 30,
		},
		Answer: AnswerConfig{
			MinQuestionLen:     3,
			Greetings:          DefaultGreetings,
			UncertaintyPhrases: DefaultUncertaintyPhrases,
			CitationBonus:      0.1,
			UncertaintyPenalty: 0.2,
			RecordHistory:      true,
		},
		Ingest: IngestConfig{
			Concurrency:    3,
			Include:        []string{"**/*.pdf"},
			Exclude:        DefaultExcludes,
			MaxUploadBytes: 50 << 20,
		},
	}
}

// EmbeddingPreset returns the default model and dimensionality for an
// embedding provider. Unknown providers get the Ollama preset.
func EmbeddingPreset(provider ProviderType) (model string, dims int) {
	p, ok := embeddingPresets[provider]
	if !ok {
		p = embeddingPresets[ProviderOllama]
	}
	return p.Model, p.Dimensions
}

// LLMPreset returns the default generation model for a provider.
func LLMPreset(provider ProviderType) string {
	if m, ok := llmPresets[provider]; ok {
		return m
	}
	return llmPresets[ProviderOllama]
}
