package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notedraft/internal/config"
	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/pipeline"
	"notedraft/internal/render"
	"notedraft/internal/tui"
)

// NewGenerateCmd creates the generate command for one-shot draft generation
func NewGenerateCmd() *cobra.Command {
	var (
		file     string
		category string
		theme    string
		length   int
		output   string
		useTUI   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an article draft from input material",
		Long: `Generate a Japanese recruiting-article draft from raw material.

The material is read from --file, or from stdin when no file is given.
The pipeline classifies the material (unless --category is set), retrieves
similar past articles and style guidance, and writes the draft to a
markdown file. Unsupported statements are tagged [要確認: ...].

Examples:
  # Generate from a file, auto-detecting the article type
  notedraft generate --file notes.md

  # Pipe material in and force the type
  cat minutes.txt | notedraft generate --category EVENT_REPORT

  # Watch progress in the terminal
  notedraft generate --file notes.md --theme "新卒研修の裏側" --tui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), file, category, theme, length, output, useTUI)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input material file (reads stdin when omitted)")
	cmd.Flags().StringVarP(&category, "category", "c", "auto", "Article type: ANNOUNCEMENT, EVENT_REPORT, INTERVIEW, CULTURE or auto")
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme override (default is inferred from the material)")
	cmd.Flags().IntVarP(&length, "length", "l", 0, "Target body length in characters (default from config: 2000)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default drafts/draft_<date>.md)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show interactive progress while generating")

	return cmd
}

func runGenerate(ctx context.Context, file, category, theme string, length int, output string, useTUI bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	material, err := readMaterial(file)
	if err != nil {
		return err
	}

	req := pipeline.GenerateRequest{
		Material:      material,
		Theme:         strings.TrimSpace(theme),
		DesiredLength: length,
	}
	if req.DesiredLength <= 0 {
		req.DesiredLength = cfg.Generation.DesiredLength
	}
	if token := strings.TrimSpace(category); token != "" && !strings.EqualFold(token, "auto") {
		parsed, ok := core.ParseCategory(strings.ToUpper(token))
		if !ok {
			return fmt.Errorf("unknown category %q (use ANNOUNCEMENT, EVENT_REPORT, INTERVIEW, CULTURE or auto)", category)
		}
		req.Category = parsed
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

	generator, err := buildPipeline(cfg, client, db)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	outputDir, filename := splitOutputPath(output)

	if useTUI {
		return generateWithTUI(ctx, generator, req, outputDir, filename)
	}
	return generatePlain(ctx, generator, req, outputDir, filename)
}

// generatePlain runs the pipeline with progress printed as log lines.
func generatePlain(ctx context.Context, generator *pipeline.Pipeline, req pipeline.GenerateRequest, outputDir, filename string) error {
	progress := make(chan core.Progress, len(pipeline.Stages()))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			logger.Info(p.Message, "step", p.Step, "percentage", p.Percentage)
		}
	}()

	start := time.Now()
	draft, err := generator.Generate(ctx, req, progress)
	close(progress)
	<-done
	if err != nil {
		if errors.Is(err, core.ErrCancelled) {
			return fmt.Errorf("generation cancelled")
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	path, err := render.WriteDraftToFile(draft.Markdown, outputDir, filename)
	if err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}

	printDraftSummary(draft, path, time.Since(start))
	return nil
}

// generateWithTUI runs the pipeline behind the terminal progress view.
func generateWithTUI(ctx context.Context, generator *pipeline.Pipeline, req pipeline.GenerateRequest, outputDir, filename string) error {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := make(chan core.Progress, len(pipeline.Stages()))
	outcome := make(chan tui.Outcome, 1)

	go func() {
		draft, err := generator.Generate(genCtx, req, progress)
		close(progress)
		if err != nil {
			outcome <- tui.Outcome{Err: err}
			return
		}
		path, err := render.WriteDraftToFile(draft.Markdown, outputDir, filename)
		outcome <- tui.Outcome{Path: path, Err: err}
	}()

	result, err := tui.Run(req.Theme, progress, outcome, cancel)
	if err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}
	if result.Err != nil {
		if errors.Is(result.Err, core.ErrCancelled) {
			return fmt.Errorf("generation cancelled")
		}
		return fmt.Errorf("generation failed: %w", result.Err)
	}
	return nil
}

// readMaterial reads the input material from a file, or stdin when no
// file is given.
func readMaterial(file string) (string, error) {
	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	material := strings.TrimSpace(string(data))
	if material == "" {
		return "", fmt.Errorf("input material is empty (pass --file or pipe material on stdin)")
	}
	return material, nil
}

// splitOutputPath maps the --output flag onto a directory and filename.
// An empty flag keeps the dated default inside drafts/.
func splitOutputPath(output string) (dir, filename string) {
	if output == "" {
		return "", fmt.Sprintf("draft_%s.md", time.Now().Format("2006-01-02"))
	}
	return filepath.Dir(output), filepath.Base(output)
}

func printDraftSummary(draft *core.ArticleDraft, path string, duration time.Duration) {
	fmt.Printf("\n✅ Draft generated\n")
	fmt.Printf("   Category: %s (%s)\n", draft.Category, draft.Category.Label())
	if draft.Theme != "" {
		fmt.Printf("   Theme: %s\n", draft.Theme)
	}
	fmt.Printf("   Length: %d characters (target %d)\n", draft.ActualLength, draft.DesiredLength)
	fmt.Printf("   Style consistency: %.2f\n", draft.ConsistencyScore)
	if draft.TagCount > 0 {
		fmt.Printf("   ⚠️  %d statements tagged [要確認], review before publishing\n", draft.TagCount)
	}
	fmt.Printf("   Output: %s\n", path)
	fmt.Printf("   Duration: %s\n", duration.Round(time.Millisecond))
}
