package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/prdforge/prdforge/internal/api"
	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/identity"
	"github.com/prdforge/prdforge/internal/llm"
	"github.com/prdforge/prdforge/internal/llm/providers"
	"github.com/prdforge/prdforge/internal/storage"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "prdforge",
	Short: "AI-assisted PRD drafting service",
	Long: `PRDForge walks a product idea through drafting, clarification,
refinement, page planning, and final assembly, persisting progress as a
project. The serve command runs the HTTP API the wizard talks to.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the PRDForge API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe() error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "prdforge",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	handler, err := providers.BuildApiHandler(providers.ProviderType(cfg.Provider), llm.ApiHandlerOptions{
		APIKey:    cfg.APIKey,
		ModelID:   cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("configure provider: %w", err)
	}

	var store storage.ProjectStore
	if cfg.DatabasePath == "" {
		logger.Warn("no database path configured, projects will not survive restarts")
		store = storage.NewMemoryProjectStore()
	} else {
		store, err = storage.NewLibsqlProjectStore(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open project store: %w", err)
		}
	}
	defer store.Close()

	server := api.NewServer(cfg, gateway.New(handler), store,
		identity.NewTokenProvider(cfg.AuthTokens), logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
