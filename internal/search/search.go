// Package search fuses the lexical and vector retrieval lanes over the
// knowledge base and retrieves writing-style references for drafting.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/persistence"
	"notedraft/internal/rerank"
)

// Defaults for hybrid search tuning.
const (
	DefaultLaneK      = 20 // Candidates fetched per lane
	DefaultRRFK       = 60 // Reciprocal rank fusion constant
	DefaultFinalK     = 10 // Results kept after fusion
	DefaultRerankTopK = 5  // Results kept after reranking
)

// Embedder produces query embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures one hybrid search.
type Options struct {
	Category    core.Category // Optional category filter ("" searches all)
	LaneK       int           // Candidates per lane, default DefaultLaneK
	RRFK        int           // Fusion constant, default DefaultRRFK
	FinalK      int           // Fused results kept, default DefaultFinalK
	UseReranker bool          // Rerank the fused head when a reranker is available
	RerankTopK  int           // Reranked results kept, default DefaultRerankTopK
}

func (o Options) withDefaults() Options {
	if o.LaneK <= 0 {
		o.LaneK = DefaultLaneK
	}
	if o.RRFK <= 0 {
		o.RRFK = DefaultRRFK
	}
	if o.FinalK <= 0 {
		o.FinalK = DefaultFinalK
	}
	if o.RerankTopK <= 0 {
		o.RerankTopK = DefaultRerankTopK
	}
	return o
}

// HybridSearcher runs the vector and trigram lanes in parallel and fuses
// their rankings with reciprocal rank fusion.
type HybridSearcher struct {
	docs     persistence.DocumentRepository
	embedder Embedder
	reranker rerank.Reranker
}

// NewHybridSearcher creates a hybrid searcher. A nil reranker disables
// reranking.
func NewHybridSearcher(docs persistence.DocumentRepository, embedder Embedder, reranker rerank.Reranker) *HybridSearcher {
	if reranker == nil {
		reranker = &rerank.NoopReranker{}
	}
	return &HybridSearcher{docs: docs, embedder: embedder, reranker: reranker}
}

// Search retrieves the documents most relevant to the query. Both lanes
// returning nothing yields an empty result; either lane failing returns
// core.ErrRetrieval rather than a half-fused result set.
func (s *HybridSearcher) Search(ctx context.Context, query string, opts Options) ([]core.ScoredDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	opts = opts.withDefaults()

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	vectorDocs, trigramDocs, err := s.parallelLanes(ctx, query, embedding, opts)
	if err != nil {
		return nil, err
	}

	fused := fuse(vectorDocs, trigramDocs, opts.RRFK)
	if len(fused) > opts.FinalK {
		fused = fused[:opts.FinalK]
	}

	if opts.UseReranker && s.reranker.Available() && len(fused) > 1 {
		fused = s.rerankFused(ctx, query, fused, opts.RerankTopK)
	}
	return fused, nil
}

// MultiSearch runs one search per query and merges the result sets, keeping
// the highest-scoring entry when multiple queries return the same document.
func (s *HybridSearcher) MultiSearch(ctx context.Context, queries []string, opts Options) ([]core.ScoredDocument, error) {
	best := make(map[string]core.ScoredDocument)
	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		docs, err := s.Search(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if existing, ok := best[doc.ID]; !ok || doc.Score > existing.Score {
				best[doc.ID] = doc
			}
		}
	}

	merged := make([]core.ScoredDocument, 0, len(best))
	for _, doc := range best {
		merged = append(merged, doc)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged, nil
}

// parallelLanes runs both retrieval lanes concurrently. Lane errors are
// captured rather than returned from the group so the sibling lane finishes
// its work before the combined verdict.
func (s *HybridSearcher) parallelLanes(ctx context.Context, query string, embedding []float32, opts Options) (vectorDocs, trigramDocs []core.ScoredDocument, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var vecErr, triErr error

	g.Go(func() error {
		var laneErr error
		vectorDocs, laneErr = s.docs.VectorSearch(gctx, embedding, opts.Category, opts.LaneK)
		if laneErr != nil {
			vecErr = laneErr
		}
		return nil
	})

	g.Go(func() error {
		var laneErr error
		trigramDocs, laneErr = s.docs.TrigramSearch(gctx, query, opts.Category, opts.LaneK)
		if laneErr != nil {
			triErr = laneErr
		}
		return nil
	})

	_ = g.Wait()

	if vecErr != nil || triErr != nil {
		if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("retrieval lane failed: %w: %w", core.ErrRetrieval, errors.Join(vecErr, triErr))
	}
	return vectorDocs, trigramDocs, nil
}

// rerankFused reorders the fused head with the cross-encoder, attaching the
// scores to each document's attrs. Rerank failures keep the fused order.
func (s *HybridSearcher) rerankFused(ctx context.Context, query string, fused []core.ScoredDocument, topK int) []core.ScoredDocument {
	passages := make([]string, len(fused))
	for i, doc := range fused {
		passages[i] = doc.Body
	}

	results, err := s.reranker.Rerank(ctx, query, passages, topK)
	if err != nil {
		logger.Warn("Rerank failed, keeping fused order", "error", err.Error())
		return fused
	}
	if len(results) == 0 {
		return fused
	}

	reranked := make([]core.ScoredDocument, 0, len(results))
	for position, result := range results {
		doc := fused[result.Index]
		attrs := make(map[string]any, len(doc.Attrs)+3)
		for k, v := range doc.Attrs {
			attrs[k] = v
		}
		attrs["rerank_score"] = result.Raw
		attrs["rerank_score_normalized"] = result.Normalized
		attrs["rerank_position"] = position + 1
		doc.Attrs = attrs
		doc.Rank = position + 1
		reranked = append(reranked, doc)
	}
	return reranked
}

// fusedEntry accumulates one document's lane contributions during fusion.
type fusedEntry struct {
	doc      core.ScoredDocument
	score    float64
	bestRank int
	sources  []string
}

// fuse merges lane results with reciprocal rank fusion: each lane adds
// 1/(k+rank) for the documents it found, summed per document. The result is
// ordered by fused score descending, then smallest contributing lane rank,
// then id, with 1-based ranks reassigned over the final order.
func fuse(vectorDocs, trigramDocs []core.ScoredDocument, k int) []core.ScoredDocument {
	entries := make(map[string]*fusedEntry)
	for _, lane := range [][]core.ScoredDocument{vectorDocs, trigramDocs} {
		for _, doc := range lane {
			entry, ok := entries[doc.ID]
			if !ok {
				entry = &fusedEntry{doc: doc, bestRank: doc.Rank}
				entries[doc.ID] = entry
			}
			entry.score += 1.0 / float64(k+doc.Rank)
			if doc.Rank < entry.bestRank {
				entry.bestRank = doc.Rank
			}
			entry.sources = append(entry.sources, doc.Sources...)
		}
	}

	ordered := make([]*fusedEntry, 0, len(entries))
	for _, entry := range entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		if ordered[i].bestRank != ordered[j].bestRank {
			return ordered[i].bestRank < ordered[j].bestRank
		}
		return ordered[i].doc.ID < ordered[j].doc.ID
	})

	fused := make([]core.ScoredDocument, len(ordered))
	for i, entry := range ordered {
		doc := entry.doc
		doc.Score = entry.score
		doc.Rank = i + 1
		doc.Sources = entry.sources
		fused[i] = doc
	}
	return fused
}
