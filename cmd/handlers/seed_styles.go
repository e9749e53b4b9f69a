package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notedraft/internal/chains"
	"notedraft/internal/config"
	"notedraft/internal/ingest"
)

// NewSeedStylesCmd creates the seed-styles command for building the
// per-category style rulebooks
func NewSeedStylesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-styles [dir]",
		Short: "Build style profiles and excerpts from sample articles",
		Long: `Build the per-category style knowledge base from sample articles.

The directory must contain one representative sample per article type:
announcement.md, event_report.md, interview.md and culture.md. Each sample
is analyzed into a style profile (one per category, replacing any existing
profile) and chunked into embedded excerpt rows used as style exemplars
during generation. Missing samples are skipped with a warning.

Example:
  notedraft seed-styles ./data/style_samples`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedStyles(cmd.Context(), args[0])
		},
	}

	return cmd
}

func runSeedStyles(ctx context.Context, dir string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
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

	catalog := chains.New(client)
	seeder := ingest.NewStyleSeeder(db.Styles(), client, catalog.StyleAnalyze, ingest.Options{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	})

	fmt.Printf("🎨 Seeding style profiles from %s\n", dir)
	start := time.Now()

	result, err := seeder.SeedDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("style seeding failed: %w", err)
	}

	fmt.Printf("\n✅ Seeding complete\n")
	fmt.Printf("   Profiles: %d\n", result.Profiles)
	fmt.Printf("   Excerpts: %d\n", result.Excerpts)
	fmt.Printf("   Duration: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}
