// Package persistence provides database abstraction interfaces for storing
// knowledge-base documents, style profiles and generated drafts.
package persistence

import (
	"context"
	"time"

	"notedraft/internal/core"
)

// DocumentRepository handles knowledge-base chunk persistence and the two
// retrieval lanes the hybrid searcher fuses.
type DocumentRepository interface {
	// Insert stores chunks, replacing any existing row with the same id
	Insert(ctx context.Context, docs []core.Document) error

	// VectorSearch retrieves chunks by cosine distance to the embedding,
	// closest first, with 1-based ranks and source "vector"
	VectorSearch(ctx context.Context, embedding []float32, category core.Category, limit int) ([]core.ScoredDocument, error)

	// TrigramSearch retrieves chunks by trigram similarity to the query text,
	// most similar first, with 1-based ranks and source "trigram"
	TrigramSearch(ctx context.Context, query string, category core.Category, limit int) ([]core.ScoredDocument, error)

	// Count returns the number of stored chunks
	Count(ctx context.Context) (int, error)
}

// StyleRepository handles writing-style profile and excerpt persistence.
type StyleRepository interface {
	// ProfileByCategory retrieves the single profile row for a category
	ProfileByCategory(ctx context.Context, category core.Category) (*core.StyleProfile, error)

	// ExcerptsByEmbedding retrieves excerpt rows closest to the embedding
	ExcerptsByEmbedding(ctx context.Context, category core.Category, embedding []float32, limit int) ([]core.StyleProfile, error)

	// UpsertProfile stores the profile row for its category, replacing any
	// existing profile of that category
	UpsertProfile(ctx context.Context, profile *core.StyleProfile) error

	// InsertExcerpts stores excerpt rows
	InsertExcerpts(ctx context.Context, excerpts []core.StyleProfile) error
}

// ArticleRepository handles generation history persistence.
type ArticleRepository interface {
	// Save stores a generated draft with its input material and returns the
	// assigned id
	Save(ctx context.Context, material string, draft *core.ArticleDraft) (string, error)

	// List retrieves stored drafts, newest first
	List(ctx context.Context, opts ListOptions) ([]ArticleSummary, error)

	// Get retrieves one stored draft by id
	Get(ctx context.Context, id string) (*StoredArticle, error)

	// Delete removes a stored draft by id
	Delete(ctx context.Context, id string) error
}

// ListOptions controls pagination for listing operations
type ListOptions struct {
	Limit  int // Maximum number of results (0 for the default)
	Offset int // Number of results to skip
}

// ArticleSummary is one row of the generation history listing
type ArticleSummary struct {
	ID        string        `json:"id"`
	Category  core.Category `json:"category"`
	Theme     string        `json:"theme"`
	CreatedAt time.Time     `json:"created_at"`
}

// StoredArticle is a fully stored generation result
type StoredArticle struct {
	ID            string            `json:"id"`
	InputMaterial string            `json:"input_material"`
	Category      core.Category     `json:"category"`
	Draft         core.ArticleDraft `json:"draft"`
	Markdown      string            `json:"markdown"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	// Documents returns the knowledge-base document repository
	Documents() DocumentRepository

	// Styles returns the style profile repository
	Styles() StyleRepository

	// Articles returns the generation history repository
	Articles() ArticleRepository

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Documents returns the document repository within this transaction
	Documents() DocumentRepository

	// Styles returns the style repository within this transaction
	Styles() StyleRepository

	// Articles returns the history repository within this transaction
	Articles() ArticleRepository
}
