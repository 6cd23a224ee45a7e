package app

import (
	"context"
	"fmt"

	"gothamist-news-parser/internal/browser"
	"gothamist-news-parser/internal/config"
	"gothamist-news-parser/internal/fetcher"
	"gothamist-news-parser/internal/normalize"
	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/scraper"
	"gothamist-news-parser/internal/storage"
	"gothamist-news-parser/internal/storage/mssql"
	"gothamist-news-parser/internal/storage/postgres"
	"gothamist-news-parser/internal/storage/sqlite"
)

// NewSession запускает Chrome, если rod включён, иначе проигрывает
// сохранённые страницы (или один раз скачивает страницу поиска по HTTP).
func NewSession(ctx context.Context, cfg *config.Config, f *fetcher.Fetcher, logger *observability.Logger) (scraper.Session, error) {
	if cfg.Rod.Enabled {
		sess, err := browser.NewRodSession(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	pages, err := browser.LoadSnapshotFiles(cfg.Snapshot.Files)
	if err != nil {
		return nil, err
	}
	return browser.NewSnapshotSession(pages, f, logger), nil
}

// OpenRepository возвращает nil при storage.driver = "none".
func OpenRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	var (
		repo storage.Repository
		err  error
	)

	switch cfg.Storage.Driver {
	case "", "none":
		return nil, nil
	case "mssql":
		repo, err = mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	case "sqlite":
		repo, err = sqlite.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	case "postgres":
		repo, err = postgres.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	logger.Info("Storage opened", "driver", cfg.Storage.Driver)
	return repo, nil
}

func NewExtractor(cfg *config.Config, locators *scraper.Locators, logger *observability.Logger, metrics *observability.Metrics) *scraper.Extractor {
	norm := normalize.NewNormalizer(cfg)
	return scraper.NewExtractor(scraper.ExtractorConfig{
		Locators: locators,
		Phrase:   cfg.Parameters.SearchPhrase,
		Timeouts: scraper.Timeouts{
			Overlay:      cfg.GetOverlayTimeout(),
			OverlayClick: cfg.GetOverlayClickTimeout(),
			RenderCheck:  cfg.GetRenderCheckTimeout(),
			TitleWait:    cfg.GetTitleWaitTimeout(),
			Element:      cfg.GetElementTimeout(),
		},
		Clean: norm.Text,
	}, logger, metrics)
}
