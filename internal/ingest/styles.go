package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/persistence"
)

// profileFiles names the sample file expected for each category inside the
// seed directory.
var profileFiles = map[core.Category]string{
	core.CategoryAnnouncement: "announcement.md",
	core.CategoryEventReport:  "event_report.md",
	core.CategoryInterview:    "interview.md",
	core.CategoryCulture:      "culture.md",
}

// StyleAnalyzer extracts style features from sample article bodies.
type StyleAnalyzer interface {
	Run(ctx context.Context, category core.Category, references []string) (*core.StyleFeatures, error)
}

// StyleSeeder builds per-category style profiles from sample articles and
// stores them with their excerpt rows.
type StyleSeeder struct {
	styles   persistence.StyleRepository
	embedder Embedder
	analyzer StyleAnalyzer
	chunker  *Chunker
}

// NewStyleSeeder returns a StyleSeeder writing through styles.
func NewStyleSeeder(styles persistence.StyleRepository, embedder Embedder, analyzer StyleAnalyzer, opts Options) *StyleSeeder {
	return &StyleSeeder{
		styles:   styles,
		embedder: embedder,
		analyzer: analyzer,
		chunker:  NewChunker(opts.ChunkSize, opts.ChunkOverlap),
	}
}

// SeedResult summarizes a seeding run.
type SeedResult struct {
	Profiles int // Profile rows upserted
	Excerpts int // Excerpt rows inserted
}

// SeedDir reads the category sample files from dir, analyzes each sample's
// writing style into a profile (one upsert per category) and stores the
// chunked sample as excerpt rows. Missing or failing categories are logged
// and skipped; seeding nothing at all is an error.
func (s *StyleSeeder) SeedDir(ctx context.Context, dir string) (SeedResult, error) {
	var result SeedResult
	for _, category := range core.Categories() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(dir, profileFiles[category])
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Style sample missing, skipping", "category", string(category), "path", path)
			continue
		}
		sample := strings.TrimSpace(string(raw))
		if sample == "" {
			logger.Warn("Style sample empty, skipping", "category", string(category), "path", path)
			continue
		}

		if err := s.seedCategory(ctx, category, sample, &result); err != nil {
			logger.Error("Style seeding failed", err, "category", string(category))
		}
	}
	if result.Profiles == 0 {
		return result, fmt.Errorf("no style profiles seeded from %s", dir)
	}
	return result, nil
}

func (s *StyleSeeder) seedCategory(ctx context.Context, category core.Category, sample string, result *SeedResult) error {
	features, err := s.analyzer.Run(ctx, category, []string{sample})
	if err != nil {
		return fmt.Errorf("analyze style: %w", err)
	}

	body := renderProfile(category, features)
	vectors, err := s.embedder.EmbedBatch(ctx, []string{body})
	if err != nil {
		return fmt.Errorf("embed profile: %w", err)
	}
	profile := &core.StyleProfile{
		ID:        uuid.NewString(),
		Category:  category,
		Kind:      core.StyleKindProfile,
		Body:      body,
		Embedding: vectors[0],
	}
	if err := s.styles.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	result.Profiles++

	chunks := s.chunker.Split(sample)
	if len(chunks) == 0 {
		return nil
	}
	chunkVectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed excerpts: %w", err)
	}
	excerpts := make([]core.StyleProfile, len(chunks))
	for i, chunk := range chunks {
		excerpts[i] = core.StyleProfile{
			ID:        uuid.NewString(),
			Category:  category,
			Kind:      core.StyleKindExcerpt,
			Body:      chunk,
			Embedding: chunkVectors[i],
		}
	}
	if err := s.styles.InsertExcerpts(ctx, excerpts); err != nil {
		return fmt.Errorf("insert excerpts: %w", err)
	}
	result.Excerpts += len(excerpts)

	logger.Info("Seeded style profile", "category", string(category), "excerpts", len(excerpts))
	return nil
}

// renderProfile formats analyzed style features as the profile text stored
// for prompt injection.
func renderProfile(category core.Category, features *core.StyleFeatures) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s記事のスタイルガイド\n\n", category.Label())
	fmt.Fprintf(&b, "## トーン\n%s\n\n", features.Tone)
	fmt.Fprintf(&b, "## 一人称\n%s\n\n", features.FirstPerson)
	b.WriteString("## 文末表現\n")
	for _, ending := range features.SentenceEndings {
		fmt.Fprintf(&b, "- %s\n", ending)
	}
	b.WriteString("\n## 特徴的な表現\n")
	for _, phrase := range features.NotablePhrases {
		fmt.Fprintf(&b, "- %s\n", phrase)
	}
	return strings.TrimSpace(b.String())
}
