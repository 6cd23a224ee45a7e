package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf).With("run_id", "abc")

	logger.Info("Page opened", "url", "https://gothamist.com/search?q=x", "results", 3)
	logger.Debug("odd", "dangling")

	out := buf.String()
	assert.Contains(t, out, "Page opened")
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "results=3")
	assert.Contains(t, out, `dangling="(MISSING)"`)
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger := NewLogger(path, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shown")
	assert.NotContains(t, string(data), "hidden")
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.ArticlesScraped.Add(3)
	m.LoadMoreClicks.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArticlesScraped))

	path := filepath.Join(t.TempDir(), "gothamist.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gothamist_articles_scraped_total 3")
	assert.Contains(t, string(data), "gothamist_load_more_clicks_total 1")
}
