package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus exposition
// format, or OpenMetrics when the scraper asks for it. A nil or disabled
// collector answers 404 so the route can be mounted unconditionally.
//
//	mux.Handle("GET "+cfg.Telemetry.Metrics.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	if !c.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          scrapeErrorLogger{slog.Default().With("component", "metrics")},
	})
}

// scrapeErrorLogger adapts slog to promhttp.Logger.
type scrapeErrorLogger struct {
	logger *slog.Logger
}

func (l scrapeErrorLogger) Println(v ...any) {
	l.logger.Error("metrics scrape error", "detail", v)
}
