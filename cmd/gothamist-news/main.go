package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gothamist-news-parser/internal/app"
	"gothamist-news-parser/internal/config"
	"gothamist-news-parser/internal/fetcher"
	"gothamist-news-parser/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gothamist-news",
		Short:         "Search gothamist.com and export matching articles to Excel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(configPath); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML config file")

	return cmd
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)
	defer func() {
		_ = logger.Close()
	}()

	locators, err := config.LoadLocators(cfg.LocatorsFile)
	if err != nil {
		logger.Error("Failed to load locators", "path", cfg.LocatorsFile, "error", err.Error())
		return err
	}

	ctx, cancel := app.GracefulShutdown(logger, cfg.GetRunTimeout())
	defer cancel()

	metrics := observability.NewMetrics()
	f := fetcher.NewFetcher(cfg, logger)

	sess, err := app.NewSession(ctx, cfg, f, logger)
	if err != nil {
		logger.Error("Failed to start browser session", "error", err.Error())
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Failed to close browser session", "error", err.Error())
		}
	}()

	repo, err := app.OpenRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", "error", err.Error())
		return err
	}
	if repo != nil {
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close storage", "error", err.Error())
			}
		}()
	}

	ext := app.NewExtractor(cfg, locators, logger, metrics)
	orch := app.NewOrchestrator(cfg, logger, metrics, f, sess, locators, ext, repo)

	stats, err := orch.Run(ctx)
	if err != nil {
		logger.Error("Run failed", "error", err.Error())
		return err
	}

	logger.Info("Done",
		"run_id", stats.RunID,
		"available", stats.Available,
		"scraped", stats.Scraped,
		"stored", stats.Stored,
		"report", stats.ReportPath,
		"reason", stats.StoppedReason,
	)
	return nil
}
