package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/paper-rag/internal/answer"
	"github.com/ziadkadry99/paper-rag/internal/chunker"
	"github.com/ziadkadry99/paper-rag/internal/config"
	"github.com/ziadkadry99/paper-rag/internal/db"
	"github.com/ziadkadry99/paper-rag/internal/embeddings"
	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/ingest"
	"github.com/ziadkadry99/paper-rag/internal/llm"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/rerank"
	"github.com/ziadkadry99/paper-rag/internal/retrieval"
	"github.com/ziadkadry99/paper-rag/internal/vectordb"
)

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, e.Model, e.Dimensions, e.BaseURL), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(e.Model, e.Dimensions, e.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", e.Provider)
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.LLM.Provider), cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.RequestsPerMinute > 0 {
		p = llm.NewRateLimitedProvider(p, cfg.LLM.RequestsPerMinute)
	}
	return p, nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `paperrag init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// services holds the handles every command builds on. Nothing here is
// global; each command opens its own set and closes it when done.
type services struct {
	cfg      *config.Config
	db       *db.DB
	embedder embeddings.Embedder
	index    *vectordb.ChromemIndex
	papers   *papers.Store
	history  *history.Store
}

// openServices opens the database and vector index. A vector index built
// with a different embedding dimensionality is a fatal error.
func openServices(cfg *config.Config) (*services, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	index, err := vectordb.OpenChromem(cfg.VectorDir(), embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	if err := index.EnsureCollection(embedder.Dimensions()); err != nil {
		database.Close()
		return nil, err
	}

	return &services{
		cfg:      cfg,
		db:       database,
		embedder: embedder,
		index:    index,
		papers:   papers.NewStore(database),
		history:  history.NewStore(database),
	}, nil
}

func (s *services) Close() error {
	return s.db.Close()
}

func (s *services) pipeline() *ingest.Pipeline {
	return ingest.NewPipeline(s.papers, s.index, s.embedder, ingest.Options{
		Chunking: chunker.Options{
			MaxChars:     s.cfg.Chunking.MaxChars,
			OverlapChars: s.cfg.Chunking.OverlapChars,
		},
		ArtifactDir: s.cfg.ArtifactPath(),
	})
}

// retriever embeds queries through a cache; ingestion bypasses it so
// document chunks never evict query vectors.
func (s *services) retriever() *retrieval.Retriever {
	cached := embeddings.NewCachedEmbedder(s.embedder, s.cfg.Embedding.CacheSize)
	return retrieval.NewRetriever(cached, s.index, s.papers, retrieval.OptionsFromConfig(s.cfg.Retrieval))
}

func (s *services) reranker() *rerank.Reranker {
	rc := s.cfg.Rerank
	if !rc.Enabled {
		return rerank.New(nil, false)
	}
	timeout := time.Duration(rc.TimeoutSeconds) * time.Second
	return rerank.New(rerank.NewHTTPCrossEncoder(rc.URL, rc.Model, timeout), true)
}

func (s *services) recorder() history.Recorder {
	if !s.cfg.Answer.RecordHistory {
		return history.NopRecorder{}
	}
	return history.StoreRecorder{Store: s.history}
}

func (s *services) synthesizer() (*answer.Synthesizer, error) {
	provider, err := createLLMProviderFromConfig(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	scope := retrieval.NewScopeDetector(s.papers, s.cfg.Scope)
	return answer.NewSynthesizer(scope, s.retriever(), s.reranker(), provider, s.recorder(),
		answer.OptionsFromConfig(s.cfg)), nil
}
