package config

import "path/filepath"

// ProviderType identifies an LLM or embedding backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level paperrag configuration, corresponding to .paperrag.yml.
type Config struct {
	DataDir   string          `yaml:"data_dir" koanf:"data_dir"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Scope     ScopeConfig     `yaml:"scope" koanf:"scope"`
	Rerank    RerankConfig    `yaml:"rerank" koanf:"rerank"`
	Answer    AnswerConfig    `yaml:"answer" koanf:"answer"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	TimeoutSeconds int      `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// LLMConfig selects the text generation backend.
type LLMConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// EmbeddingConfig selects the embedding backend. Dimensions must match the
// vector index; a mismatch is fatal at startup.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	Dimensions int          `yaml:"dimensions" koanf:"dimensions"`
	BaseURL    string       `yaml:"base_url" koanf:"base_url"`
	CacheSize  int          `yaml:"cache_size" koanf:"cache_size"`
}

// ChunkingConfig bounds chunk sizes in characters.
type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars" koanf:"max_chars"`
	OverlapChars int `yaml:"overlap_chars" koanf:"overlap_chars"`
}

// RetrievalConfig tunes vector search and the keyword boost layer.
type RetrievalConfig struct {
	TopK              int      `yaml:"top_k" koanf:"top_k"`
	MaxTopK           int      `yaml:"max_top_k" koanf:"max_top_k"`
	Multiplier        int      `yaml:"multiplier" koanf:"multiplier"`
	ScopedThreshold   float64  `yaml:"scoped_threshold" koanf:"scoped_threshold"`
	UnscopedThreshold float64  `yaml:"unscoped_threshold" koanf:"unscoped_threshold"`
	BoostTerms        []string `yaml:"boost_terms" koanf:"boost_terms"`
	ChunkBoost        float64  `yaml:"chunk_boost" koanf:"chunk_boost"`
	TitleBoost        float64  `yaml:"title_boost" koanf:"title_boost"`
}

// KeywordCluster is a named group of related domain terms.
type KeywordCluster struct {
	Name  string   `yaml:"name" koanf:"name"`
	Terms []string `yaml:"terms" koanf:"terms"`
}

// ScopeConfig controls when a question is narrowed to specific papers.
type ScopeConfig struct {
	Clusters         []KeywordCluster `yaml:"clusters" koanf:"clusters"`
	MinQuotedLen     int              `yaml:"min_quoted_len" koanf:"min_quoted_len"`
	MinKeywordHits   int              `yaml:"min_keyword_hits" koanf:"min_keyword_hits"`
	MinMediumMatches int              `yaml:"min_medium_matches" koanf:"min_medium_matches"`
}

// RerankConfig points at a cross-encoder service.
type RerankConfig struct {
	Enabled        bool   `yaml:"enabled" koanf:"enabled"`
	URL            string `yaml:"url" koanf:"url"`
	Model          string `yaml:"model" koanf:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// AnswerConfig holds the guard word lists and confidence adjustments.
type AnswerConfig struct {
	MinQuestionLen     int      `yaml:"min_question_len" koanf:"min_question_len"`
	Greetings          []string `yaml:"greetings" koanf:"greetings"`
	UncertaintyPhrases []string `yaml:"uncertainty_phrases" koanf:"uncertainty_phrases"`
	CitationBonus      float64  `yaml:"citation_bonus" koanf:"citation_bonus"`
	UncertaintyPenalty float64  `yaml:"uncertainty_penalty" koanf:"uncertainty_penalty"`
	RecordHistory      bool     `yaml:"record_history" koanf:"record_history"`
}

// IngestConfig controls document ingestion.
type IngestConfig struct {
	Concurrency    int      `yaml:"concurrency" koanf:"concurrency"`
	Include        []string `yaml:"include" koanf:"include"`
	Exclude        []string `yaml:"exclude" koanf:"exclude"`
	ArtifactDir    string   `yaml:"artifact_dir" koanf:"artifact_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" koanf:"max_upload_bytes"`
}

// DBPath is the SQLite file holding the paper registry and query history.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "paperrag.db")
}

// VectorDir is the directory the vector index persists to.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectordb")
}

// ArtifactPath returns the inspection artifact directory, defaulting to
// a subdirectory of DataDir.
func (c *Config) ArtifactPath() string {
	if c.Ingest.ArtifactDir != "" {
		return c.Ingest.ArtifactDir
	}
	return filepath.Join(c.DataDir, "artifacts")
}

// UploadPath is where PDFs uploaded through the HTTP API are stored.
func (c *Config) UploadPath() string {
	return filepath.Join(c.DataDir, "uploads")
}
