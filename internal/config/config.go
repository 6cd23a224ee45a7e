package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Parameters    ParametersConfig    `yaml:"Parameters"`
	Site          SiteConfig          `yaml:"site"`
	Rod           RodConfig           `yaml:"rod"`
	Snapshot      SnapshotConfig      `yaml:"snapshot"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	HTTP          HttpConfig          `yaml:"http"`
	Backoff       BackoffConfig       `yaml:"backoff"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Output        OutputConfig        `yaml:"output"`
	LocatorsFile  string              `yaml:"locators_file"`
	Normalize     NormalizeConfig     `yaml:"normalize"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	// 0 disables the deadline; SIGINT/SIGTERM still cancel the run.
	RunTimeoutMin int `yaml:"run_timeout_min"`
}

// ParametersConfig is the search input. Key names follow the task config
// format used by the automation: Parameters.SearchPhrase / Parameters.NewsAmount.
type ParametersConfig struct {
	SearchPhrase string `yaml:"SearchPhrase"`
	NewsAmount   int    `yaml:"NewsAmount"`
}

type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	SearchPath string `yaml:"search_path"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	Headless         bool   `yaml:"headless"`
	NoSandbox        bool   `yaml:"no_sandbox"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
}

// SnapshotConfig lists saved search pages replayed when rod is disabled.
// Each file is one "load more" step; with no files the search URL is fetched over HTTP.
type SnapshotConfig struct {
	Files []string `yaml:"files"`
}

type TimeoutsConfig struct {
	OverlayMS      int `yaml:"overlay_ms"`
	OverlayClickMS int `yaml:"overlay_click_ms"`
	RenderCheckMS  int `yaml:"render_check_ms"`
	TitleWaitMS    int `yaml:"title_wait_ms"`
	ElementMS      int `yaml:"element_ms"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type HttpConfig struct {
	UserAgent              string `yaml:"user_agent"`
	ConnectTimeoutMS       int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS         int    `yaml:"total_timeout_ms"`
	MaxRetries             int    `yaml:"max_retries"`
	MaxIdleConnections     int    `yaml:"max_idle_connections"`
	IdleConnectionTimeoutS int    `yaml:"idle_connection_timeout_s"`
	RespectRobots          bool   `yaml:"respect_robots"`
	RobotsCacheTTLHours    int    `yaml:"robots_cache_ttl_hours"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	ReportFile string `yaml:"report_file"`
	ImageExt   string `yaml:"image_ext"`
}

type NormalizeConfig struct {
	TrimNBSP        bool `yaml:"trim_nbsp"`
	CollapseSpaces  bool `yaml:"collapse_spaces"`
	MaxPreviewChars int  `yaml:"max_preview_chars"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ObservabilityConfig struct {
	LogPath     string `yaml:"log_path"`
	LogLevel    string `yaml:"log_level"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default returns a config with every optional field filled in. LoadConfig
// decodes the YAML file on top of it.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:    "https://gothamist.com",
			SearchPath: "/search",
		},
		Rod: RodConfig{
			Enabled:          true,
			Headless:         true,
			PageTimeoutS:     60,
			WaitLoadTimeoutS: 30,
		},
		Timeouts: TimeoutsConfig{
			OverlayMS:      200,
			OverlayClickMS: 5000,
			RenderCheckMS:  1000,
			TitleWaitMS:    5000,
			ElementMS:      5000,
		},
		HTTP: HttpConfig{
			UserAgent:              "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ConnectTimeoutMS:       5000,
			TotalTimeoutMS:         10000,
			MaxRetries:             0,
			MaxIdleConnections:     10,
			IdleConnectionTimeoutS: 90,
			RobotsCacheTTLHours:    12,
		},
		Backoff: BackoffConfig{
			MinMS:     250,
			MaxMS:     2000,
			JitterPct: 20,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 1,
		},
		Output: OutputConfig{
			Dir:        "output",
			ReportFile: "Data.xlsx",
			ImageExt:   ".png",
		},
		Normalize: NormalizeConfig{
			TrimNBSP:        true,
			MaxPreviewChars: 80,
		},
		Storage: StorageConfig{
			Driver:           "none",
			CommandTimeoutMS: 5000,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
		RunTimeoutMin: 30,
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Parameters.SearchPhrase == "" {
		return fmt.Errorf("Parameters.SearchPhrase is required")
	}
	if c.Parameters.NewsAmount < 0 {
		return fmt.Errorf("Parameters.NewsAmount must be >= 0")
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if _, err := url.Parse(c.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url is invalid: %w", err)
	}
	if c.Site.SearchPath == "" {
		return fmt.Errorf("site.search_path is required")
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
	}
	if c.Timeouts.OverlayMS <= 0 || c.Timeouts.OverlayClickMS <= 0 || c.Timeouts.RenderCheckMS <= 0 ||
		c.Timeouts.TitleWaitMS <= 0 || c.Timeouts.ElementMS <= 0 {
		return fmt.Errorf("timeouts.* must all be > 0")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.RespectRobots && c.HTTP.RobotsCacheTTLHours <= 0 {
		return fmt.Errorf("http.robots_cache_ttl_hours must be > 0 when respect_robots is true")
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be > 0")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Output.ReportFile == "" {
		return fmt.Errorf("output.report_file is required")
	}
	switch c.Storage.Driver {
	case "", "none":
	case "mssql", "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is %q", c.Storage.Driver)
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("storage.driver must be 'none', 'mssql', 'sqlite' or 'postgres'")
	}
	if c.RunTimeoutMin < 0 {
		return fmt.Errorf("run_timeout_min must be >= 0")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// SearchURL builds https://<site>/search?q=<phrase>.
func (c *Config) SearchURL() string {
	return fmt.Sprintf("%s%s?q=%s", c.Site.BaseURL, c.Site.SearchPath, url.QueryEscape(c.Parameters.SearchPhrase))
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.HTTP.RobotsCacheTTLHours) * time.Hour
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetOverlayTimeout() time.Duration {
	return time.Duration(c.Timeouts.OverlayMS) * time.Millisecond
}

func (c *Config) GetOverlayClickTimeout() time.Duration {
	return time.Duration(c.Timeouts.OverlayClickMS) * time.Millisecond
}

func (c *Config) GetRenderCheckTimeout() time.Duration {
	return time.Duration(c.Timeouts.RenderCheckMS) * time.Millisecond
}

func (c *Config) GetTitleWaitTimeout() time.Duration {
	return time.Duration(c.Timeouts.TitleWaitMS) * time.Millisecond
}

func (c *Config) GetElementTimeout() time.Duration {
	return time.Duration(c.Timeouts.ElementMS) * time.Millisecond
}

func (c *Config) GetRunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMin) * time.Minute
}
