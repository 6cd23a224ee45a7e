package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gothamist-news-parser/internal/browser"
	"gothamist-news-parser/internal/config"
	"gothamist-news-parser/internal/fetcher"
	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/report"
	"gothamist-news-parser/internal/scraper"
)

// resultsPage рендерит страницу поиска с первыми n карточками, картинки отдаёт imgBase.
func resultsPage(imgBase string, total, n int, popup, loadMore bool) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><div class="col"><div class="search-page results">`)
	fmt.Fprintf(&b, `<span>Showing <strong>%d</strong></span></div></div>`, total)
	if popup {
		b.WriteString(`<div class="CloseButton__ButtonElement-sc-1">x</div>`)
	}
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<div class="card">`+
			`<div style="aspect-ratio: 3 / 2;"><img src="%s/%d-mobile.jpg"></div>`+
			`<div style="aspect-ratio: 3 / 2;"><img src="%s/%d.jpg"></div>`+
			`<div class="h2"> Budget story %d </div>`+
			`<p class="desc">The budget grew by $%d million</p></div>`, imgBase, i, imgBase, i, i, i)
	}
	if loadMore {
		b.WriteString(`<button aria-label="Load More">Load More</button>`)
	}
	b.WriteString(`</body></html>`)
	return []byte(b.String())
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("image:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, newsAmount int) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Parameters.SearchPhrase = "Budget"
	cfg.Parameters.NewsAmount = newsAmount
	cfg.Rod.Enabled = false
	cfg.RateLimit.RPS = 1000
	cfg.Output.Dir = filepath.Join(t.TempDir(), "output")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, pages [][]byte) (*Orchestrator, *observability.Metrics) {
	t.Helper()
	logger := observability.NewNopLogger()
	metrics := observability.NewMetrics()
	locators := scraper.DefaultLocators()
	f := fetcher.NewFetcher(cfg, logger)
	sess := browser.NewSnapshotSession(pages, f, logger)

	repo, err := OpenRepository(cfg, logger)
	require.NoError(t, err)
	if repo != nil {
		t.Cleanup(func() { _ = repo.Close() })
	}

	ext := NewExtractor(cfg, locators, logger, metrics)
	return NewOrchestrator(cfg, logger, metrics, f, sess, locators, ext, repo), metrics
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	return rows
}

func TestRunStopsAtAvailableResults(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 10)
	pages := [][]byte{
		resultsPage(srv.URL, 3, 2, true, true),
		resultsPage(srv.URL, 3, 3, false, false),
	}
	orch, metrics := newTestOrchestrator(t, cfg, pages)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Available)
	assert.Equal(t, 3, stats.Scraped)
	assert.Equal(t, "completed", stats.StoppedReason)
	assert.NotEmpty(t, stats.RunID)

	rows := readReport(t, stats.ReportPath)
	require.Len(t, rows, 4)
	assert.Equal(t, scraper.ReportColumns, rows[0])
	assert.Equal(t, []string{
		"Budget story 1",
		"The budget grew by $1 million",
		srv.URL + "/1.jpg",
		"2",
		"true",
		"Budget story 1",
	}, rows[1])
	assert.Equal(t, "Budget story 3", rows[3][0])

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Budget story 3.png"))
	require.NoError(t, err)
	assert.Equal(t, "image:/3.jpg", string(data))

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ArticlesScraped))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LoadMoreClicks))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.OverlaysDismissed))
}

func TestRunStopsAtRequestedResults(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 1)
	orch, metrics := newTestOrchestrator(t, cfg, [][]byte{resultsPage(srv.URL, 5, 5, false, true)})

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Available)
	assert.Equal(t, 1, stats.Scraped)
	assert.Len(t, readReport(t, stats.ReportPath), 2)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.LoadMoreClicks))
}

func TestRunResolvesRelativeImageURLs(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 2)
	cfg.Site.BaseURL = srv.URL
	// пустой imgBase: src вида "/1.jpg"
	orch, _ := newTestOrchestrator(t, cfg, [][]byte{resultsPage("", 2, 2, false, false)})

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)

	rows := readReport(t, stats.ReportPath)
	require.Len(t, rows, 3)
	assert.Equal(t, srv.URL+"/2.jpg", rows[2][2])

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Budget story 1.png"))
	require.NoError(t, err)
	assert.Equal(t, "image:/1.jpg", string(data))
}

func TestRunNoResultsWritesNoReport(t *testing.T) {
	cfg := testConfig(t, 10)
	orch, _ := newTestOrchestrator(t, cfg, [][]byte{resultsPage("", 0, 0, false, false)})

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Available)
	assert.Equal(t, "no results", stats.StoppedReason)
	assert.Empty(t, stats.ReportPath)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, cfg.Output.ReportFile))
}

func TestRunOverwritesPreviousOutput(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 2)
	require.NoError(t, os.MkdirAll(cfg.Output.Dir, 0o755))
	stale := filepath.Join(cfg.Output.Dir, "Budget story 1.png")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	pages := [][]byte{resultsPage(srv.URL, 2, 2, false, false)}
	for run := 0; run < 2; run++ {
		orch, _ := newTestOrchestrator(t, cfg, pages)
		stats, err := orch.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, readReport(t, stats.ReportPath), 3)
	}

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "image:/1.jpg", string(data))
}

func TestRunMissingTitleFails(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 3)
	// страница обещает 3 результата, показывает 2 и не имеет Load More
	orch, _ := newTestOrchestrator(t, cfg, [][]byte{resultsPage(srv.URL, 3, 2, false, false)})

	stats, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, stats.Scraped)
	assert.Equal(t, "extract error at result 3", stats.StoppedReason)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, cfg.Output.ReportFile))
}

func TestRunStoresArticles(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 2)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "articles.db")
	cfg.Observability.MetricsPath = filepath.Join(t.TempDir(), "gothamist.prom")

	pages := [][]byte{resultsPage(srv.URL, 2, 2, false, false)}

	orch, _ := newTestOrchestrator(t, cfg, pages)
	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 2, stats.RunRows)

	orch, _ = newTestOrchestrator(t, cfg, pages)
	stats, err = orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Stored)
	// повторно найденные статьи переходят к новому запуску
	assert.Equal(t, 2, stats.RunRows)

	prom, err := os.ReadFile(cfg.Observability.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "gothamist_articles_scraped_total 2")
	assert.Contains(t, string(prom), "gothamist_results_available 2")
}

func TestRunCancelled(t *testing.T) {
	srv := imageServer(t)
	cfg := testConfig(t, 2)
	orch, _ := newTestOrchestrator(t, cfg, [][]byte{resultsPage(srv.URL, 2, 2, false, false)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
