// Package stats defines the Prometheus metrics the Supervisor (C7) exposes
// alongside the state store's polling statistics view.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's counters and gauges.
type Metrics struct {
	FilesDownloaded    prometheus.Counter
	FilesFailed        prometheus.Counter
	DownloadDuration    prometheus.Histogram
	VolumesAssembled   prometheus.Counter
	VolumesDecoded     prometheus.Counter
	VolumesDecodeFailed prometheus.Counter
	DecodeDuration      prometheus.Histogram
	ProductsRendered    prometheus.Counter
	ProductsRenderFailed prometheus.Counter
	RenderDuration       prometheus.Histogram
	StuckVolumesReset    prometheus.Counter
	StuckProductsReset   prometheus.Counter
	PipelineRunning      prometheus.Gauge

	QueueDepth *prometheus.GaugeVec // labels: status={pending,processing,completed,failed}
}

// NewMetrics creates and registers the pipeline's metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesDownloaded, m.FilesFailed, m.DownloadDuration,
		m.VolumesAssembled, m.VolumesDecoded, m.VolumesDecodeFailed, m.DecodeDuration,
		m.ProductsRendered, m.ProductsRenderFailed, m.RenderDuration,
		m.StuckVolumesReset, m.StuckProductsReset, m.PipelineRunning, m.QueueDepth,
	)
	return m
}

// NewMetricsForTesting builds Metrics without registering them, avoiding
// "duplicate metrics collector registration" panics across test packages.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "files_downloaded_total", Help: "Total files successfully downloaded.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "files_failed_total", Help: "Total files that failed to download permanently.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_ingest", Name: "download_duration_seconds", Help: "Duration of a single file download.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		VolumesAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "volumes_assembled_total", Help: "Total volumes that reached is_complete.",
		}),
		VolumesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "volumes_decoded_total", Help: "Total volumes successfully decoded and written.",
		}),
		VolumesDecodeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "volumes_decode_failed_total", Help: "Total volumes that failed decode permanently.",
		}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_ingest", Name: "decode_duration_seconds", Help: "Duration of one volume's decode-align-write pipeline.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ProductsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "products_rendered_total", Help: "Total rendered product artifacts.",
		}),
		ProductsRenderFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "products_render_failed_total", Help: "Total products that failed rendering permanently.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_ingest", Name: "render_duration_seconds", Help: "Duration of one volume's render pass.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		StuckVolumesReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "stuck_volumes_reset_total", Help: "Total volumes reset from processing back to pending by the retention sweep.",
		}),
		StuckProductsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_ingest", Name: "stuck_products_reset_total", Help: "Total products reset from processing back to pending by the retention sweep.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_ingest", Name: "pipeline_running", Help: "1 while the supervisor's workers are active, 0 once draining completes.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radar_ingest", Name: "volume_queue_depth", Help: "Volume rows by status.",
		}, []string{"status"}),
	}
}
