package search

import (
	"context"
	"errors"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/persistence"
	"notedraft/internal/rerank"
)

// DefaultExcerptTopK is the number of style excerpts fetched for analysis.
const DefaultExcerptTopK = 3

// StyleRetriever loads writing-style references for a category. Style
// context is advisory: every failure degrades to an empty result so the
// pipeline keeps drafting without it.
type StyleRetriever struct {
	styles   persistence.StyleRepository
	embedder Embedder
	reranker rerank.Reranker
}

// NewStyleRetriever creates a style retriever. A nil reranker disables
// excerpt reranking.
func NewStyleRetriever(styles persistence.StyleRepository, embedder Embedder, reranker rerank.Reranker) *StyleRetriever {
	if reranker == nil {
		reranker = &rerank.NoopReranker{}
	}
	return &StyleRetriever{styles: styles, embedder: embedder, reranker: reranker}
}

// Profile returns the stored style profile body for the category, or ""
// when no profile exists or the lookup fails.
func (r *StyleRetriever) Profile(ctx context.Context, category core.Category) string {
	profile, err := r.styles.ProfileByCategory(ctx, category)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			logger.Warn("Style profile lookup failed", "category", string(category), "error", err.Error())
		}
		return ""
	}
	return profile.Body
}

// Excerpts returns up to topK excerpt texts for the category, ranked against
// the theme. Twice topK candidates come back by embedding similarity; the
// reranker narrows them to topK when available, otherwise the closest topK
// are kept.
func (r *StyleRetriever) Excerpts(ctx context.Context, category core.Category, theme string, topK int) []string {
	if topK <= 0 {
		topK = DefaultExcerptTopK
	}
	if strings.TrimSpace(theme) == "" {
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, theme)
	if err != nil {
		logger.Warn("Style excerpt embedding failed", "category", string(category), "error", err.Error())
		return nil
	}

	rows, err := r.styles.ExcerptsByEmbedding(ctx, category, embedding, topK*2)
	if err != nil {
		logger.Warn("Style excerpt lookup failed", "category", string(category), "error", err.Error())
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = row.Body
	}

	if r.reranker.Available() && len(texts) > topK {
		results, rerankErr := r.reranker.Rerank(ctx, theme, texts, topK)
		if rerankErr != nil {
			logger.Warn("Style excerpt rerank failed, keeping similarity order", "error", rerankErr.Error())
		} else if len(results) > 0 {
			selected := make([]string, 0, len(results))
			seen := make(map[int]bool, len(results))
			for _, result := range results {
				if seen[result.Index] {
					continue
				}
				seen[result.Index] = true
				selected = append(selected, result.Text)
			}
			return selected
		}
	}

	if len(texts) > topK {
		texts = texts[:topK]
	}
	return texts
}
