package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"notedraft/internal/chains"
	"notedraft/internal/config"
	"notedraft/internal/core"
	"notedraft/internal/verify"
)

// NewVerifyCmd creates the verify command for checking existing text
func NewVerifyCmd() *cobra.Command {
	var (
		textFile     string
		materialFile string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an existing draft for style and unsupported statements",
		Long: `Run the style check and hallucination detection over existing text.

The draft text is scored against the house style rulebook, and every
statement the source material does not support is listed with a reason.
With --output the text is written back with [要確認: ...] tags inserted
after each unsupported statement.

Examples:
  # Check a hand-written draft against its source notes
  notedraft verify --text draft.md --material notes.md

  # Also write the tagged version
  notedraft verify --text draft.md --material notes.md --output tagged.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), textFile, materialFile, output)
		},
	}

	cmd.Flags().StringVar(&textFile, "text", "", "Draft text file to check (required)")
	cmd.Flags().StringVar(&materialFile, "material", "", "Source material file to ground the fact check (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the tagged text to this file")
	cmd.MarkFlagRequired("text")
	cmd.MarkFlagRequired("material")

	return cmd
}

func runVerify(ctx context.Context, textFile, materialFile, output string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	text, err := os.ReadFile(textFile)
	if err != nil {
		return fmt.Errorf("failed to read draft text: %w", err)
	}
	material, err := os.ReadFile(materialFile)
	if err != nil {
		return fmt.Errorf("failed to read material: %w", err)
	}
	body := strings.TrimSpace(string(text))
	if body == "" {
		return fmt.Errorf("draft text is empty")
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}
	catalog := chains.New(client)

	fmt.Println("🔍 Parsing source material...")
	in, err := catalog.Parse.Run(ctx, string(material))
	if err != nil {
		return fmt.Errorf("failed to parse material: %w", err)
	}

	fmt.Println("   Running style check and fact verification...")

	var (
		check        *core.StyleCheck
		verification *core.Verification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		check, err = catalog.StyleCheck.Run(gctx, chains.StyleCheckInput{
			Body:  body,
			Style: chains.DefaultStyleFeatures(),
		})
		if err != nil {
			return fmt.Errorf("style check failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		verification, err = catalog.Hallucination.Run(gctx, chains.HallucinationInput{
			Body:  body,
			Input: in,
		})
		if err != nil {
			return fmt.Errorf("hallucination detection failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	printVerifyReport(check, verification)

	if output != "" {
		tagged := verify.Tag(body, verification.UnverifiedClaims)
		if err := os.WriteFile(output, []byte(tagged), 0o644); err != nil {
			return fmt.Errorf("failed to write tagged text: %w", err)
		}
		fmt.Printf("\n   Tagged text written to %s\n", output)
	}

	return nil
}

func printVerifyReport(check *core.StyleCheck, verification *core.Verification) {
	fmt.Printf("\n📊 Style consistency: %.2f\n", check.ConsistencyScore)
	if len(check.Issues) == 0 {
		fmt.Println("   No style issues found")
	}
	for _, issue := range check.Issues {
		fmt.Printf("   • [%s] %s: %s\n", issue.Severity, issue.Location, issue.Description)
	}
	for _, c := range check.CorrectedSections {
		fmt.Printf("   ✏️  %s\n      → %s (%s)\n", truncate(c.Original, 60), truncate(c.Corrected, 60), c.Reason)
	}

	fmt.Printf("\n📊 Fact-check confidence: %.2f\n", verification.Confidence)
	if len(verification.UnverifiedClaims) == 0 {
		fmt.Println("   ✅ Every statement is grounded in the material")
		return
	}
	fmt.Printf("   ⚠️  %d statements need review:\n", len(verification.UnverifiedClaims))
	for i, claim := range verification.UnverifiedClaims {
		fmt.Printf("   [%d] %s\n       %s\n", i+1, truncate(claim.Claim, 80), claim.Reason)
	}
}
