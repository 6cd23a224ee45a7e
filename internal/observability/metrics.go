package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for one run. They are written once, at the end,
// in the node_exporter textfile format.
type Metrics struct {
	registry *prometheus.Registry

	ArticlesScraped   prometheus.Counter
	ImagesDownloaded  prometheus.Counter
	ImageBytes        prometheus.Counter
	OverlaysDismissed prometheus.Counter
	LoadMoreClicks    prometheus.Counter
	ResultsAvailable  prometheus.Gauge
	RunDuration       prometheus.Gauge
	LastSuccess       prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ArticlesScraped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gothamist_articles_scraped_total",
			Help: "Articles extracted and appended to the report",
		}),
		ImagesDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "gothamist_images_downloaded_total",
			Help: "Article images written to disk",
		}),
		ImageBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "gothamist_image_bytes_total",
			Help: "Bytes of article images written to disk",
		}),
		OverlaysDismissed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gothamist_overlays_dismissed_total",
			Help: "Popups closed before reading a result",
		}),
		LoadMoreClicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "gothamist_load_more_clicks_total",
			Help: "Times the Load More control was triggered",
		}),
		ResultsAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gothamist_results_available",
			Help: "Total results reported by the search page",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gothamist_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gothamist_last_success_timestamp_seconds",
			Help: "Unix time of the last run that wrote a report",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
