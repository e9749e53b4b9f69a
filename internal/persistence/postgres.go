package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // Postgres driver

	"notedraft/internal/core"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	db        *sql.DB
	documents DocumentRepository
	styles    StyleRepository
	articles  ArticleRepository
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{db: db}
	pgDB.documents = &postgresDocumentRepo{db: db}
	pgDB.styles = &postgresStyleRepo{db: db}
	pgDB.articles = &postgresArticleRepo{db: db}

	return pgDB, nil
}

func (p *PostgresDB) Documents() DocumentRepository { return p.documents }
func (p *PostgresDB) Styles() StyleRepository       { return p.styles }
func (p *PostgresDB) Articles() ArticleRepository   { return p.articles }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:        tx,
		documents: &postgresDocumentRepo{db: p.db, tx: tx},
		styles:    &postgresStyleRepo{db: p.db, tx: tx},
		articles:  &postgresArticleRepo{db: p.db, tx: tx},
	}, nil
}

// postgresTx implements Transaction interface
type postgresTx struct {
	tx        *sql.Tx
	documents DocumentRepository
	styles    StyleRepository
	articles  ArticleRepository
}

func (t *postgresTx) Commit() error                 { return t.tx.Commit() }
func (t *postgresTx) Rollback() error               { return t.tx.Rollback() }
func (t *postgresTx) Documents() DocumentRepository { return t.documents }
func (t *postgresTx) Styles() StyleRepository       { return t.styles }
func (t *postgresTx) Articles() ArticleRepository   { return t.articles }

// postgresDocumentRepo implements DocumentRepository for PostgreSQL
type postgresDocumentRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresDocumentRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresDocumentRepo) Insert(ctx context.Context, docs []core.Document) error {
	query := `
		INSERT INTO documents (
			id, body, attrs, embedding, category, source, chunk_index, total_chunks
		) VALUES ($1, $2, $3, CAST($4 AS VECTOR(768)), $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			body = EXCLUDED.body,
			attrs = EXCLUDED.attrs,
			embedding = EXCLUDED.embedding,
			category = EXCLUDED.category,
			source = EXCLUDED.source,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			updated_at = NOW()
	`

	for _, doc := range docs {
		attrsJSON := []byte("{}")
		if doc.Attrs != nil {
			var err error
			attrsJSON, err = json.Marshal(doc.Attrs)
			if err != nil {
				return fmt.Errorf("failed to marshal attrs for %s: %w", doc.ID, err)
			}
		}

		var embeddingVector interface{}
		if len(doc.Embedding) > 0 {
			embeddingVector = formatVector(doc.Embedding)
		}

		_, err := r.query().ExecContext(ctx, query,
			doc.ID, doc.Body, attrsJSON, embeddingVector,
			string(doc.Category), doc.Source, doc.ChunkIndex, doc.TotalChunks,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (r *postgresDocumentRepo) VectorSearch(ctx context.Context, embedding []float32, category core.Category, limit int) ([]core.ScoredDocument, error) {
	if limit <= 0 {
		limit = 20
	}
	vectorStr := formatVector(embedding)

	categoryClause := ""
	args := []interface{}{vectorStr, limit}
	if category != "" {
		categoryClause = "AND category = $3"
		args = append(args, string(category))
	}

	sqlQuery := fmt.Sprintf(`
		SELECT id, body, attrs, category, source, chunk_index, total_chunks,
		       created_at, updated_at,
		       1 - (embedding <=> $1::vector) AS score
		FROM documents
		WHERE embedding IS NOT NULL
		  %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, categoryClause)

	rows, err := r.query().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	defer rows.Close()

	return scanScoredDocuments(rows, "vector")
}

func (r *postgresDocumentRepo) TrigramSearch(ctx context.Context, query string, category core.Category, limit int) ([]core.ScoredDocument, error) {
	if limit <= 0 {
		limit = 20
	}

	categoryClause := ""
	args := []interface{}{query, limit}
	if category != "" {
		categoryClause = "AND category = $3"
		args = append(args, string(category))
	}

	sqlQuery := fmt.Sprintf(`
		SELECT id, body, attrs, category, source, chunk_index, total_chunks,
		       created_at, updated_at,
		       similarity(body, $1) AS score
		FROM documents
		WHERE similarity(body, $1) > 0.1
		  %s
		ORDER BY score DESC
		LIMIT $2
	`, categoryClause)

	rows, err := r.query().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run trigram search: %w", err)
	}
	defer rows.Close()

	return scanScoredDocuments(rows, "trigram")
}

func (r *postgresDocumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	row := r.query().QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// scanScoredDocuments reads lane rows into scored documents, assigning
// 1-based ranks in result order and labelling each with its lane source.
func scanScoredDocuments(rows *sql.Rows, source string) ([]core.ScoredDocument, error) {
	docs := []core.ScoredDocument{}
	rank := 0
	for rows.Next() {
		rank++
		var doc core.ScoredDocument
		var attrsJSON []byte
		if err := rows.Scan(
			&doc.ID, &doc.Body, &attrsJSON, &doc.Category, &doc.Source,
			&doc.ChunkIndex, &doc.TotalChunks, &doc.CreatedAt, &doc.UpdatedAt,
			&doc.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &doc.Attrs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attrs for %s: %w", doc.ID, err)
			}
		}
		doc.Rank = rank
		doc.Sources = []string{source}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// postgresStyleRepo implements StyleRepository for PostgreSQL
type postgresStyleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresStyleRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresStyleRepo) ProfileByCategory(ctx context.Context, category core.Category) (*core.StyleProfile, error) {
	query := `
		SELECT id, category, kind, body, created_at, updated_at
		FROM style_profiles
		WHERE category = $1 AND kind = 'profile'
	`
	row := r.query().QueryRowContext(ctx, query, string(category))

	var profile core.StyleProfile
	err := row.Scan(&profile.ID, &profile.Category, &profile.Kind, &profile.Body,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("style profile for %s: %w", category, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get style profile: %w", err)
	}
	return &profile, nil
}

func (r *postgresStyleRepo) ExcerptsByEmbedding(ctx context.Context, category core.Category, embedding []float32, limit int) ([]core.StyleProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	vectorStr := formatVector(embedding)

	query := `
		SELECT id, category, kind, body, created_at, updated_at
		FROM style_profiles
		WHERE category = $1 AND kind = 'excerpt' AND embedding IS NOT NULL
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := r.query().QueryContext(ctx, query, string(category), vectorStr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query style excerpts: %w", err)
	}
	defer rows.Close()

	var excerpts []core.StyleProfile
	for rows.Next() {
		var excerpt core.StyleProfile
		if err := rows.Scan(&excerpt.ID, &excerpt.Category, &excerpt.Kind, &excerpt.Body,
			&excerpt.CreatedAt, &excerpt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan style excerpt: %w", err)
		}
		excerpts = append(excerpts, excerpt)
	}
	return excerpts, rows.Err()
}

func (r *postgresStyleRepo) UpsertProfile(ctx context.Context, profile *core.StyleProfile) error {
	var embeddingVector interface{}
	if len(profile.Embedding) > 0 {
		embeddingVector = formatVector(profile.Embedding)
	}

	query := `
		INSERT INTO style_profiles (category, kind, body, embedding)
		VALUES ($1, 'profile', $2, CAST($3 AS VECTOR(768)))
		ON CONFLICT (category) WHERE kind = 'profile' DO UPDATE SET
			body = EXCLUDED.body,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
		RETURNING id
	`
	row := r.query().QueryRowContext(ctx, query, string(profile.Category), profile.Body, embeddingVector)
	if err := row.Scan(&profile.ID); err != nil {
		return fmt.Errorf("failed to upsert style profile: %w", err)
	}
	return nil
}

func (r *postgresStyleRepo) InsertExcerpts(ctx context.Context, excerpts []core.StyleProfile) error {
	query := `
		INSERT INTO style_profiles (category, kind, body, embedding)
		VALUES ($1, 'excerpt', $2, CAST($3 AS VECTOR(768)))
	`
	for _, excerpt := range excerpts {
		var embeddingVector interface{}
		if len(excerpt.Embedding) > 0 {
			embeddingVector = formatVector(excerpt.Embedding)
		}
		_, err := r.query().ExecContext(ctx, query, string(excerpt.Category), excerpt.Body, embeddingVector)
		if err != nil {
			return fmt.Errorf("failed to insert style excerpt: %w", err)
		}
	}
	return nil
}

// postgresArticleRepo implements ArticleRepository for PostgreSQL
type postgresArticleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresArticleRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresArticleRepo) Save(ctx context.Context, material string, draft *core.ArticleDraft) (string, error) {
	content, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	query := `
		INSERT INTO generated_articles (input_material, category, content, markdown)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	row := r.query().QueryRowContext(ctx, query, material, string(draft.Category), content, draft.Markdown)

	var id string
	var createdAt time.Time
	if err := row.Scan(&id, &createdAt); err != nil {
		return "", fmt.Errorf("failed to save draft: %w", err)
	}
	draft.ID = id
	draft.CreatedAt = createdAt
	return id, nil
}

func (r *postgresArticleRepo) List(ctx context.Context, opts ListOptions) ([]ArticleSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20 // Default limit
	}

	query := `
		SELECT id, category, COALESCE(content->>'theme', ''), created_at
		FROM generated_articles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.query().QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var summaries []ArticleSummary
	for rows.Next() {
		var summary ArticleSummary
		if err := rows.Scan(&summary.ID, &summary.Category, &summary.Theme, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (r *postgresArticleRepo) Get(ctx context.Context, id string) (*StoredArticle, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("article %s: %w", id, core.ErrNotFound)
	}

	query := `
		SELECT id, input_material, category, content, markdown, created_at
		FROM generated_articles
		WHERE id = $1
	`
	row := r.query().QueryRowContext(ctx, query, id)

	var article StoredArticle
	var content []byte
	err := row.Scan(&article.ID, &article.InputMaterial, &article.Category,
		&content, &article.Markdown, &article.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if err := json.Unmarshal(content, &article.Draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft content: %w", err)
	}
	article.Draft.ID = article.ID
	article.Draft.CreatedAt = article.CreatedAt
	return &article, nil
}

func (r *postgresArticleRepo) Delete(ctx context.Context, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("article %s: %w", id, core.ErrNotFound)
	}

	result, err := r.query().ExecContext(ctx, `DELETE FROM generated_articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("article %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// formatVector converts an embedding to the pgvector text format
// Example: [0.1, 0.2, 0.3] -> "[0.1,0.2,0.3]"
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}

	result := "["
	for i, val := range embedding {
		if i > 0 {
			result += ","
		}
		result += fmt.Sprintf("%f", val)
	}
	result += "]"
	return result
}
