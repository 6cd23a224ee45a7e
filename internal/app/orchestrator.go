package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gothamist-news-parser/internal/config"
	"gothamist-news-parser/internal/fetcher"
	"gothamist-news-parser/internal/normalize"
	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/report"
	"gothamist-news-parser/internal/scraper"
	"gothamist-news-parser/internal/storage"
)

type Orchestrator struct {
	cfg        *config.Config
	logger     *observability.Logger
	metrics    *observability.Metrics
	fetcher    *fetcher.Fetcher
	session    scraper.Session
	locators   *scraper.Locators
	extractor  *scraper.Extractor
	repo       storage.Repository
	normalizer *normalize.Normalizer
}

// NewOrchestrator собирает один запуск. repo может быть nil.
func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	f *fetcher.Fetcher,
	sess scraper.Session,
	locators *scraper.Locators,
	ext *scraper.Extractor,
	repo storage.Repository,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		fetcher:    f,
		session:    sess,
		locators:   locators,
		extractor:  ext,
		repo:       repo,
		normalizer: normalize.NewNormalizer(cfg),
	}
}

type RunStats struct {
	RunID         string
	Requested     int
	Available     int
	Scraped       int
	ImageBytes    int
	Stored        int // новые строки в БД
	RunRows       int // строки БД, принадлежащие этому запуску
	ReportPath    string
	StoppedReason string
}

// Run выполняет поиск, обходит min(NewsAmount, available) результатов и
// пишет отчёт. Любая ошибка прерывает запуск без частичного отчёта.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{
		RunID:     uuid.NewString(),
		Requested: o.cfg.Parameters.NewsAmount,
	}
	logger := o.logger.With("run_id", stats.RunID)
	defer o.flushMetrics(logger, start)

	searchURL := o.cfg.SearchURL()

	allowed, err := o.fetcher.Allowed(ctx, searchURL)
	if err != nil {
		return stats, fmt.Errorf("failed to check robots.txt: %w", err)
	}
	if !allowed {
		stats.StoppedReason = "disallowed by robots.txt"
		return stats, fmt.Errorf("search page %s is disallowed by robots.txt", searchURL)
	}

	logger.Info("Opening search page",
		"url", searchURL,
		"phrase", o.cfg.Parameters.SearchPhrase,
		"news_amount", o.cfg.Parameters.NewsAmount,
	)

	if err := o.session.Open(ctx, searchURL); err != nil {
		logger.Error("Open failed", "url", searchURL, "error", err.Error())
		stats.StoppedReason = "open error"
		return stats, fmt.Errorf("failed to open search page: %w", err)
	}

	available, err := o.availableResults(ctx)
	if err != nil {
		logger.Error("Result count unavailable", "error", err.Error())
		stats.StoppedReason = "result count error"
		return stats, err
	}
	stats.Available = available
	o.metrics.ResultsAvailable.Set(float64(available))

	if available == 0 {
		logger.Info("No results for the search phrase", "phrase", o.cfg.Parameters.SearchPhrase)
		stats.StoppedReason = "no results"
		return stats, nil
	}

	bound := min(o.cfg.Parameters.NewsAmount, available)
	logger.Info("Search results",
		"available", available,
		"requested", o.cfg.Parameters.NewsAmount,
		"bound", bound,
	)

	results := &scraper.ResultSet{}
	for i := 1; i <= bound; i++ {
		if err := ctx.Err(); err != nil {
			stats.StoppedReason = fmt.Sprintf("cancelled at result %d", i)
			return stats, err
		}

		article, err := o.extractor.Extract(ctx, o.session, i)
		if err != nil {
			logger.Error("Extract failed", "index", i, "error", err.Error())
			stats.StoppedReason = fmt.Sprintf("extract error at result %d", i)
			return stats, err
		}

		imagePath := filepath.Join(o.cfg.Output.Dir, normalize.SanitizeFilename(article.Title)+o.cfg.Output.ImageExt)
		n, err := o.fetcher.SaveImage(ctx, article.PictureURL, imagePath)
		if err != nil {
			logger.Error("Image download failed",
				"index", i,
				"url", article.PictureURL,
				"error", err.Error(),
			)
			stats.StoppedReason = fmt.Sprintf("image error at result %d", i)
			return stats, fmt.Errorf("failed to save image of result %d: %w", i, err)
		}
		o.metrics.ImagesDownloaded.Inc()
		o.metrics.ImageBytes.Add(float64(n))
		stats.ImageBytes += n

		results.Append(article.Row())
		o.metrics.ArticlesScraped.Inc()
		stats.Scraped++

		logger.Info("Result processed",
			"index", i,
			"title", o.normalizer.TruncatePreview(article.Title),
			"image", imagePath,
			"bytes", n,
		)
	}

	rows := results.Rows()
	reportPath := filepath.Join(o.cfg.Output.Dir, o.cfg.Output.ReportFile)
	if err := report.WriteExcel(reportPath, rows); err != nil {
		stats.StoppedReason = "report error"
		return stats, err
	}
	stats.ReportPath = reportPath
	o.metrics.LastSuccess.SetToCurrentTime()

	if o.repo != nil {
		records, err := storage.RecordsFromRows(stats.RunID, rows, time.Now())
		if err != nil {
			return stats, err
		}
		created, err := storage.SaveAll(ctx, o.repo, records)
		if err != nil {
			logger.Error("Storage failed", "error", err.Error())
			stats.StoppedReason = "storage error"
			return stats, err
		}
		stats.Stored = created

		runRows, err := o.repo.CountByRun(ctx, stats.RunID)
		if err != nil {
			stats.StoppedReason = "storage error"
			return stats, err
		}
		stats.RunRows = runRows
		logger.Info("Articles stored", "total", len(records), "new", created, "run_rows", runRows)
	}

	stats.StoppedReason = "completed"
	logger.Info("Run completed",
		"scraped", stats.Scraped,
		"report", reportPath,
		"duration", time.Since(start).String(),
	)

	return stats, nil
}

func (o *Orchestrator) availableResults(ctx context.Context) (int, error) {
	text, err := o.session.Text(ctx, o.locators.ResultAmount(), o.cfg.GetTitleWaitTimeout())
	if err != nil {
		return 0, fmt.Errorf("failed to read result count: %w", err)
	}
	return scraper.ParseResultCount(text)
}

func (o *Orchestrator) flushMetrics(logger *observability.Logger, start time.Time) {
	o.metrics.RunDuration.Set(time.Since(start).Seconds())

	path := o.cfg.Observability.MetricsPath
	if path == "" {
		return
	}
	if err := o.metrics.WriteTextfile(path); err != nil {
		logger.Warn("Metrics not written", "path", path, "error", err.Error())
	}
}
