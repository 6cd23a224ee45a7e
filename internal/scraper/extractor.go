package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gothamist-news-parser/internal/observability"
)

// Timeouts bounds each wait of the extraction steps.
type Timeouts struct {
	Overlay      time.Duration // popup visibility check
	OverlayClick time.Duration
	RenderCheck  time.Duration // is result N already rendered
	TitleWait    time.Duration
	Element      time.Duration
}

type ExtractorConfig struct {
	Locators *Locators
	Phrase   string
	Timeouts Timeouts
	// Clean is applied to title and description before metrics. Optional.
	Clean func(string) string
}

// Extractor reads one search result from the page into an Article.
type Extractor struct {
	cfg     ExtractorConfig
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewExtractor(cfg ExtractorConfig, logger *observability.Logger, metrics *observability.Metrics) *Extractor {
	if cfg.Locators == nil {
		cfg.Locators = DefaultLocators()
	}
	if cfg.Clean == nil {
		cfg.Clean = strings.TrimSpace
	}
	return &Extractor{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Extract runs the per-result steps against sess for the 1-based index:
// close popup, load more if needed, read title, description and picture,
// then compute phrase count and cash flag.
func (e *Extractor) Extract(ctx context.Context, sess Session, index int) (*Article, error) {
	if err := e.dismissOverlay(ctx, sess); err != nil {
		return nil, err
	}

	if err := e.ensureRendered(ctx, sess, index); err != nil {
		return nil, err
	}

	loc := e.cfg.Locators
	article := &Article{}

	title, err := sess.Text(ctx, loc.Title(index), e.cfg.Timeouts.TitleWait)
	if err != nil {
		return nil, fmt.Errorf("failed to read title of result %d: %w", index, err)
	}
	article.Title = e.cfg.Clean(title)

	description, err := sess.Text(ctx, loc.Description(index), e.cfg.Timeouts.Element)
	if err != nil {
		return nil, fmt.Errorf("failed to read description of result %d: %w", index, err)
	}
	article.Description = e.cfg.Clean(description)

	src, err := sess.Attribute(ctx, loc.Picture(index), "src", e.cfg.Timeouts.Element)
	if err != nil {
		return nil, fmt.Errorf("failed to read picture of result %d: %w", index, err)
	}
	article.PictureURL = strings.TrimSpace(src)

	article.PhraseCount = PhraseCount(article.Title, article.Description, e.cfg.Phrase)
	article.MentionsCash = MentionsCash(article.Title, article.Description)

	e.logger.Debug("Result extracted",
		"index", index,
		"title", article.Title,
		"phrase_count", article.PhraseCount,
		"about_cash", article.MentionsCash,
	)

	return article, nil
}

func (e *Extractor) dismissOverlay(ctx context.Context, sess Session) error {
	closeXPath := e.cfg.Locators.Close()

	present, err := sess.Visible(ctx, closeXPath, e.cfg.Timeouts.Overlay)
	if err != nil {
		return fmt.Errorf("failed to check for popup: %w", err)
	}
	if !present {
		e.logger.Debug("PopUp not present")
		return nil
	}

	if err := sess.Click(ctx, closeXPath, e.cfg.Timeouts.OverlayClick); err != nil {
		return fmt.Errorf("failed to close popup: %w", err)
	}
	e.metrics.OverlaysDismissed.Inc()
	e.logger.Info("PopUp closed")
	return nil
}

func (e *Extractor) ensureRendered(ctx context.Context, sess Session, index int) error {
	rendered, err := sess.Exists(ctx, e.cfg.Locators.Title(index), e.cfg.Timeouts.RenderCheck)
	if err != nil {
		return fmt.Errorf("failed to check result %d: %w", index, err)
	}
	if rendered {
		return nil
	}

	// Native clicks on this control do not trigger loading; only a
	// script-level click does.
	if err := sess.ClickByScript(ctx, e.cfg.Locators.LoadMore()); err != nil {
		return fmt.Errorf("failed to load more results for index %d: %w", index, err)
	}
	e.metrics.LoadMoreClicks.Inc()
	e.logger.Debug("Load More triggered", "index", index)
	return nil
}
