package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notedraft/internal/config"
	"notedraft/internal/core"
	"notedraft/internal/ingest"
)

// NewIngestCmd creates the ingest command for importing reference articles
func NewIngestCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Import reference articles into the knowledge base",
		Long: `Import published articles into the searchable knowledge base.

The path may be a single file or a directory tree. Markdown, plain text,
JSONL (one pre-chunked passage per line) and HTML files are supported.
Each file is chunked, embedded and stored; the article type is inferred
from file and folder names unless --category forces one.

Examples:
  # Import a directory of past articles
  notedraft ingest ./articles

  # Import one file with an explicit type
  notedraft ingest 社員インタビュー.md --category INTERVIEW`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), args[0], category)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Article type for every imported file (default inferred per file)")

	return cmd
}

func runIngest(ctx context.Context, path, category string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var forced core.Category
	if token := strings.TrimSpace(category); token != "" {
		parsed, ok := core.ParseCategory(strings.ToUpper(token))
		if !ok {
			return fmt.Errorf("unknown category %q", category)
		}
		forced = parsed
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ingester := ingest.New(db.Documents(), client, ingest.Options{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
	})

	start := time.Now()
	var result ingest.Result
	if info.IsDir() {
		fmt.Printf("📥 Importing directory %s\n", path)
		result, err = ingester.IngestDir(ctx, path, forced)
	} else {
		fmt.Printf("📥 Importing %s\n", path)
		var chunks int
		chunks, err = ingester.IngestFile(ctx, path, forced)
		result = ingest.Result{Files: 1, Chunks: chunks}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\n✅ Import complete\n")
	fmt.Printf("   Files: %d\n", result.Files)
	fmt.Printf("   Chunks: %d\n", result.Chunks)
	fmt.Printf("   Duration: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("\n💡 Try 'notedraft search \"<query>\"' to check retrieval\n")

	return nil
}
