package pipeline

import (
	"fmt"

	"notedraft/internal/chains"
	"notedraft/internal/config"
	"notedraft/internal/llm"
	"notedraft/internal/persistence"
	"notedraft/internal/rerank"
	"notedraft/internal/search"
	"notedraft/internal/verify"
)

// Builder constructs a fully wired Pipeline from application configuration.
type Builder struct {
	cfg      *config.Config
	client   *llm.Client
	db       persistence.Database
	reranker rerank.Reranker
}

// NewBuilder creates a pipeline builder over the loaded configuration.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithLLMClient sets the shared LLM client.
func (b *Builder) WithLLMClient(client *llm.Client) *Builder {
	b.client = client
	return b
}

// WithDatabase sets the shared database handle.
func (b *Builder) WithDatabase(db persistence.Database) *Builder {
	b.db = db
	return b
}

// WithReranker overrides the reranker built from configuration.
func (b *Builder) WithReranker(r rerank.Reranker) *Builder {
	b.reranker = r
	return b
}

// Build constructs the Pipeline. The LLM client and database are required;
// a missing reranker falls back to the configured service or a no-op.
func (b *Builder) Build() (*Pipeline, error) {
	if b.client == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if b.db == nil {
		return nil, fmt.Errorf("database is required")
	}

	reranker := b.reranker
	if reranker == nil {
		reranker = rerank.New(rerank.Config{
			URL:     b.cfg.Reranker.URL,
			Enabled: b.cfg.Reranker.Enabled,
			Timeout: b.cfg.Reranker.Timeout,
		})
	}

	catalog := chains.New(b.client)
	searcher := search.NewHybridSearcher(b.db.Documents(), b.client, reranker)
	styles := search.NewStyleRetriever(b.db.Styles(), b.client, reranker)
	gate := verify.New(catalog)

	return New(catalog, searcher, styles, gate, b.db.Articles(), OptionsFromConfig(b.cfg)), nil
}

// OptionsFromConfig maps the generation and retrieval configuration onto
// pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UseQueryGenerator:   cfg.Generation.UseQueryGenerator,
		UseStyleProfileKB:   cfg.Generation.UseStyleProfileKB,
		UseAutoRewrite:      cfg.Generation.UseAutoRewrite,
		MaxParallelSections: cfg.Generation.MaxParallelSections,
		RequestTimeout:      cfg.Generation.RequestTimeout,
		Search: search.Options{
			LaneK:       cfg.Retrieval.LaneK,
			RRFK:        cfg.Retrieval.RRFK,
			FinalK:      cfg.Retrieval.FinalK,
			UseReranker: cfg.RerankerAvailable(),
			RerankTopK:  cfg.Reranker.TopK,
		},
	}
}
