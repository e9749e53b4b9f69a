package pipeline

import (
	"context"

	"notedraft/internal/chains"
	"notedraft/internal/core"
	"notedraft/internal/search"
	"notedraft/internal/verify"
)

// BriefParser extracts the structured brief from raw input material.
type BriefParser interface {
	Run(ctx context.Context, material string) (*core.ArticleInput, error)
}

// CategoryClassifier decides the editorial category of a brief.
type CategoryClassifier interface {
	Run(ctx context.Context, in *core.ArticleInput) (*core.Classification, error)
}

// QueryGenerator produces keyword queries for reference retrieval.
type QueryGenerator interface {
	Run(ctx context.Context, in *core.ArticleInput, category core.Category) (*core.QuerySet, error)
}

// ReferenceSearcher retrieves knowledge-base passages for a query set.
type ReferenceSearcher interface {
	MultiSearch(ctx context.Context, queries []string, opts search.Options) ([]core.ScoredDocument, error)
}

// StyleSource loads the stored style rulebook and exemplar excerpts for a
// category. Both degrade to empty results on failure.
type StyleSource interface {
	Profile(ctx context.Context, category core.Category) string
	Excerpts(ctx context.Context, category core.Category, theme string, topK int) []string
}

// StyleAnalyzer summarizes the writing style of reference passages.
type StyleAnalyzer interface {
	Run(ctx context.Context, category core.Category, references []string) (*core.StyleFeatures, error)
}

// StructureAnalyzer summarizes the composition of reference passages.
type StructureAnalyzer interface {
	Run(ctx context.Context, category core.Category, references []string) (*core.StructureFeatures, error)
}

// OutlinePlanner plans the article skeleton.
type OutlinePlanner interface {
	Run(ctx context.Context, in chains.OutlineInput) (*core.Outline, error)
}

// TitleWriter drafts the three candidate titles.
type TitleWriter interface {
	Run(ctx context.Context, in chains.TitleInput) ([]string, error)
}

// LeadWriter writes the opening paragraph.
type LeadWriter interface {
	Run(ctx context.Context, in chains.LeadInput) (string, error)
}

// SectionWriter writes the body of one outline section.
type SectionWriter interface {
	Run(ctx context.Context, in chains.SectionInput) (*core.DraftSection, error)
}

// ClosingWriter writes the closing paragraph.
type ClosingWriter interface {
	Run(ctx context.Context, in chains.ClosingInput) (string, error)
}

// QualityGate verifies and optionally rewrites a generated draft.
type QualityGate interface {
	Run(ctx context.Context, req verify.Request) (*verify.Result, error)
}

// DraftStore persists finished drafts into generation history.
type DraftStore interface {
	Save(ctx context.Context, material string, draft *core.ArticleDraft) (string, error)
}
