// Package ingest imports reference articles into the knowledge base:
// loading files, chunking with overlap, embedding in batches and writing
// document rows. It also seeds per-category style profiles.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/persistence"
)

// Embedder turns chunk texts into embedding vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tunes chunking and embedding. Zero values fall back to defaults.
type Options struct {
	ChunkSize      int // Maximum chunk length in runes (default 1000)
	ChunkOverlap   int // Runes shared between consecutive chunks (default 200)
	EmbedBatchSize int // Chunks per embedding call (default 16)
}

// Ingester loads reference files into the documents table.
type Ingester struct {
	docs      persistence.DocumentRepository
	embedder  Embedder
	chunker   *Chunker
	batchSize int
}

// New returns an Ingester writing through docs with embeddings from embedder.
func New(docs persistence.DocumentRepository, embedder Embedder, opts Options) *Ingester {
	batch := opts.EmbedBatchSize
	if batch <= 0 {
		batch = 16
	}
	return &Ingester{
		docs:      docs,
		embedder:  embedder,
		chunker:   NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		batchSize: batch,
	}
}

// Result summarizes a directory ingestion run.
type Result struct {
	Files  int // Files that produced at least one chunk
	Chunks int // Total chunks written
}

// IngestFile imports one file and returns the number of chunks written.
// An empty category is classified from the file and parent directory names.
func (in *Ingester) IngestFile(ctx context.Context, path string, category core.Category) (int, error) {
	chunks, err := in.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		logger.Warn("No chunks produced", "path", path)
		return 0, nil
	}

	base := filepath.Base(path)
	if category == "" {
		category = ClassifyName(base, filepath.Base(filepath.Dir(path)))
	}

	vectors, err := in.embedBatches(ctx, chunks)
	if err != nil {
		return 0, err
	}

	docs := make([]core.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = core.Document{
			ID:          uuid.NewString(),
			Body:        chunk,
			Embedding:   vectors[i],
			Category:    category,
			Source:      base,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Attrs: map[string]any{
				"source": base,
				"path":   path,
			},
		}
	}
	if err := in.docs.Insert(ctx, docs); err != nil {
		return 0, fmt.Errorf("insert %s: %w", base, err)
	}

	logger.Info("Ingested file", "path", path, "category", string(category), "chunks", len(chunks))
	return len(chunks), nil
}

// IngestDir walks dir and imports every supported file. Files that fail are
// logged and skipped so one bad file does not abort the run.
func (in *Ingester) IngestDir(ctx context.Context, dir string, category core.Category) (Result, error) {
	var result Result
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !SupportedFile(path) {
			return nil
		}
		count, err := in.IngestFile(ctx, path, category)
		if err != nil {
			logger.Error("File ingestion failed", err, "path", path)
			return nil
		}
		if count > 0 {
			result.Files++
			result.Chunks += count
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", dir, err)
	}
	return result, nil
}

// embedBatches embeds texts in groups of batchSize, preserving order.
func (in *Ingester) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += in.batchSize {
		end := start + in.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := in.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
