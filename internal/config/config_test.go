package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
Parameters:
  SearchPhrase: "rent guidelines"
  NewsAmount: 4
rod:
  enabled: false
output:
  dir: "out"
storage:
  driver: sqlite
  dsn: "articles.db"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "rent guidelines", cfg.Parameters.SearchPhrase)
	assert.Equal(t, 4, cfg.Parameters.NewsAmount)
	assert.False(t, cfg.Rod.Enabled)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)

	// untouched sections keep defaults
	assert.Equal(t, "Data.xlsx", cfg.Output.ReportFile)
	assert.Equal(t, ".png", cfg.Output.ImageExt)
	assert.Equal(t, 0, cfg.HTTP.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.GetTotalTimeout())
	assert.Equal(t, 200*time.Millisecond, cfg.GetOverlayTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetTitleWaitTimeout())
	assert.Equal(t, "https://gothamist.com/search?q=rent+guidelines", cfg.SearchURL())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
Parameters:
  SearchPhrase: "budget"
  NewsAmount: 4
`)
	t.Setenv(EnvSearchPhrase, "subway")
	t.Setenv(EnvNewsAmount, "12")
	t.Setenv(EnvOutputDir, "/tmp/gothamist")
	t.Setenv(EnvChromePath, "/usr/bin/chromium")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "subway", cfg.Parameters.SearchPhrase)
	assert.Equal(t, 12, cfg.Parameters.NewsAmount)
	assert.Equal(t, "/tmp/gothamist", cfg.Output.Dir)
	assert.Equal(t, "/usr/bin/chromium", cfg.Rod.ChromePath)
}

func TestLoadConfigInvalidEnvAmount(t *testing.T) {
	path := writeFile(t, "config.yaml", "Parameters:\n  SearchPhrase: budget\n")
	t.Setenv(EnvNewsAmount, "ten")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "Parameters: [unclosed"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "empty-phrase.yaml", "Parameters:\n  NewsAmount: 3\n"))
	assert.ErrorContains(t, err, "SearchPhrase")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Parameters.SearchPhrase = "budget"
		cfg.Parameters.NewsAmount = 3
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative amount", func(c *Config) { c.Parameters.NewsAmount = -1 }},
		{"no base url", func(c *Config) { c.Site.BaseURL = "" }},
		{"zero rod timeout", func(c *Config) { c.Rod.PageTimeoutS = 0 }},
		{"zero overlay timeout", func(c *Config) { c.Timeouts.OverlayMS = 0 }},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }},
		{"backoff inverted", func(c *Config) { c.Backoff.MinMS = 5000 }},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "oracle" }},
		{"driver without dsn", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"negative run timeout", func(c *Config) { c.RunTimeoutMin = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadLocators(t *testing.T) {
	locators, err := LoadLocators("")
	require.NoError(t, err)
	assert.Equal(t, `(//*[@class="h2"])[3]`, locators.Title(3))

	path := writeFile(t, "locators.yaml", `
title: '(//h3)[%d]'
picture_index_stride: 1
`)
	locators, err = LoadLocators(path)
	require.NoError(t, err)
	assert.Equal(t, `(//h3)[3]`, locators.Title(3))
	assert.Equal(t, `(//*[@style="aspect-ratio: 3 / 2;"]/img[1])[3]`, locators.Picture(3))
	assert.Equal(t, `(//*[@class="desc"])[3]`, locators.Description(3))
}

func TestLoadLocatorsInvalid(t *testing.T) {
	_, err := LoadLocators(writeFile(t, "no-index.yaml", "title: '//h3'\n"))
	assert.ErrorContains(t, err, "title")

	_, err = LoadLocators(writeFile(t, "indexed-close.yaml", "close: '(//button)[%d]'\n"))
	assert.ErrorContains(t, err, "close")

	_, err = LoadLocators(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
