package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notedraft/internal/chains"
	"notedraft/internal/config"
	"notedraft/internal/logger"
	"notedraft/internal/pipeline"
	"notedraft/internal/rerank"
	"notedraft/internal/search"
	"notedraft/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP API
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the notedraft HTTP API.

The server provides:
  • POST /api/generate          one-shot draft generation
  • POST /api/generate/stream   SSE progress streaming
  • POST /api/generate/async    background jobs with polling
  • POST /api/search            hybrid reference search
  • POST /api/verify            style and fact checks on existing text
  • /api/history                generated draft history

Examples:
  # Start server on the configured port (default 8080)
  notedraft serve

  # Start on a custom port
  notedraft serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override server config from flags if provided
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	logger.Info("Connecting to database")
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// The API surface and the pipeline share one chain catalog, searcher
	// and reranker.
	reranker := rerank.New(rerank.Config{
		URL:     cfg.Reranker.URL,
		Enabled: cfg.Reranker.Enabled,
		Timeout: cfg.Reranker.Timeout,
	})
	catalog := chains.New(client)
	searcher := search.NewHybridSearcher(db.Documents(), client, reranker)

	generator, err := pipeline.NewBuilder(cfg).
		WithLLMClient(client).
		WithDatabase(db).
		WithReranker(reranker).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	srv := server.New(cfg, server.Deps{
		Generator: generator,
		Searcher:  searcher,
		Parser:    catalog.Parse,
		Style:     catalog.StyleCheck,
		Fact:      catalog.Hallucination,
		Articles:  db.Articles(),
		DB:        db,
	})

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		logger.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive our signal or an error from server
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed, forcing close", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info("Server stopped successfully")
	}

	return nil
}
