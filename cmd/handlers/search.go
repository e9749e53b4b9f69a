package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notedraft/internal/config"
	"notedraft/internal/core"
	"notedraft/internal/rerank"
	"notedraft/internal/search"
)

// NewSearchCmd creates the search command for querying the knowledge base
func NewSearchCmd() *cobra.Command {
	var (
		category string
		topK     int
		noRerank bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search reference articles in the knowledge base",
		Long: `Search past article passages with hybrid retrieval.

The query runs through the lexical and vector lanes, the ranked lists are
fused, and (when the reranker service is configured) the fused list is
reordered by a cross-encoder.

Examples:
  # Search across all article types
  notedraft search "リモートワーク 制度"

  # Restrict to one type and take more results
  notedraft search "新卒 研修" --category INTERVIEW --top-k 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), category, topK, noRerank)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to one article type")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default from config: 5)")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Skip the cross-encoder rerank stage")

	return cmd
}

func runSearch(ctx context.Context, query, category string, topK int, noRerank bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := search.Options{
		LaneK:       cfg.Retrieval.LaneK,
		RRFK:        cfg.Retrieval.RRFK,
		FinalK:      cfg.Retrieval.FinalK,
		UseReranker: cfg.RerankerAvailable() && !noRerank,
		RerankTopK:  cfg.Reranker.TopK,
	}
	if topK > 0 {
		opts.FinalK = topK
	}
	if token := strings.TrimSpace(category); token != "" {
		parsed, ok := core.ParseCategory(strings.ToUpper(token))
		if !ok {
			return fmt.Errorf("unknown category %q", category)
		}
		opts.Category = parsed
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

	reranker := rerank.New(rerank.Config{
		URL:     cfg.Reranker.URL,
		Enabled: cfg.Reranker.Enabled,
		Timeout: cfg.Reranker.Timeout,
	})
	searcher := search.NewHybridSearcher(db.Documents(), client, reranker)

	fmt.Printf("🔍 Searching for: \"%s\"\n\n", query)

	results, err := searcher.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("❌ No matching passages found")
		fmt.Println("   Run 'notedraft ingest <dir>' to add reference articles")
		return nil
	}

	fmt.Printf("✨ Found %d passages:\n\n", len(results))
	for _, result := range results {
		fmt.Printf("[%d] %.4f - %s (%s)\n", result.Rank, result.Score, result.Source, result.Category)
		fmt.Printf("    %s\n", truncate(strings.ReplaceAll(result.Body, "\n", " "), 120))
		fmt.Printf("    lanes: %s\n", strings.Join(result.Sources, ", "))
		fmt.Println()
	}

	return nil
}

// truncate shortens a string to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
