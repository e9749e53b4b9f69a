package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notedraft/internal/config"
	"notedraft/internal/persistence"
)

// NewHistoryCmd creates the parent history command with subcommands
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse generated drafts",
		Long: `Browse the generation history stored in the database.

Subcommands:
  list    - List recent drafts
  get     - Print one stored draft
  delete  - Remove a stored draft

Examples:
  # List the last 20 drafts
  notedraft history list

  # Print a stored draft as markdown
  notedraft history get 3f2a...

  # Remove a draft
  notedraft history delete 3f2a...`,
	}

	cmd.AddCommand(NewHistoryListCmd())
	cmd.AddCommand(NewHistoryGetCmd())
	cmd.AddCommand(NewHistoryDeleteCmd())

	return cmd
}

// NewHistoryListCmd creates the list subcommand
func NewHistoryListCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd.Context(), limit, offset)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of drafts to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of drafts to skip")

	return cmd
}

// NewHistoryGetCmd creates the get subcommand
func NewHistoryGetCmd() *cobra.Command {
	var showMaterial bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print one stored draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryGet(cmd.Context(), args[0], showMaterial)
		},
	}

	cmd.Flags().BoolVar(&showMaterial, "material", false, "Print the input material instead of the draft")

	return cmd
}

// NewHistoryDeleteCmd creates the delete subcommand
func NewHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a stored draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd.Context(), args[0])
		},
	}
}

func historyDatabase() (persistence.Database, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openDatabase(cfg)
}

func runHistoryList(ctx context.Context, limit, offset int) error {
	db, err := historyDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	summaries, err := db.Articles().List(ctx, persistence.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No drafts found")
		fmt.Println("💡 Run 'notedraft generate --file notes.md' to create one")
		return nil
	}

	fmt.Printf("\n📄 Generated Drafts\n")
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Printf("%-36s  %-13s  %-16s  %s\n", "ID", "Category", "Created", "Theme")
	fmt.Println("───────────────────────────────────────────────────────────────────")
	for _, s := range summaries {
		fmt.Printf("%-36s  %-13s  %-16s  %s\n",
			s.ID, s.Category, s.CreatedAt.Format("2006-01-02 15:04"), truncate(s.Theme, 40))
	}
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Printf("\n💡 Use 'notedraft history get <id>' to print a draft\n")

	return nil
}

func runHistoryGet(ctx context.Context, id string, showMaterial bool) error {
	db, err := historyDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := db.Articles().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get draft: %w", err)
	}

	if showMaterial {
		fmt.Fprintln(os.Stdout, stored.InputMaterial)
		return nil
	}
	fmt.Fprintln(os.Stdout, stored.Markdown)
	return nil
}

func runHistoryDelete(ctx context.Context, id string) error {
	db, err := historyDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Articles().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	fmt.Printf("✅ Draft %s deleted\n", id)
	return nil
}
