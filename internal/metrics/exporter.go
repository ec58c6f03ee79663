package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Exporter serves the agent's own system/hardware metrics on an optional
// /metrics endpoint, for operators who want to scrape the agent itself
// rather than only consume its uploaded profiles.
type Exporter struct {
	logger zerolog.Logger
	server *http.Server

	cpuAvg      prometheus.Gauge
	memAvg      prometheus.Gauge
	cpuFreq     prometheus.Gauge
	cpi         prometheus.Gauge
	tmaFrontend prometheus.Gauge
	tmaBackend  prometheus.Gauge
	tmaBadSpec  prometheus.Gauge
	tmaRetiring prometheus.Gauge
}

// NewExporter registers the gauge set against a dedicated registry so
// this package's metrics don't collide with anything else the process
// might expose.
func NewExporter(logger zerolog.Logger) *Exporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	e := &Exporter{
		logger:      logger.With().Str("component", "metrics_exporter").Logger(),
		cpuAvg:      factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_cpu_avg_percent", Help: "Average CPU utilization over the last cycle."}),
		memAvg:      factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_mem_avg_percent", Help: "Average memory utilization over the last cycle."}),
		cpuFreq:     factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_cpu_freq_ghz", Help: "Average CPU operating frequency over the last cycle."}),
		cpi:         factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_cpi", Help: "Average cycles per instruction over the last cycle."}),
		tmaFrontend: factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_tma_frontend_bound_percent", Help: "TMA frontend-bound percentage over the last cycle."}),
		tmaBackend:  factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_tma_backend_bound_percent", Help: "TMA backend-bound percentage over the last cycle."}),
		tmaBadSpec:  factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_tma_bad_speculation_percent", Help: "TMA bad-speculation percentage over the last cycle."}),
		tmaRetiring: factory.NewGauge(prometheus.GaugeOpts{Name: "gprofiler_tma_retiring_percent", Help: "TMA retiring percentage over the last cycle."}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return e
}

// Serve starts the /metrics HTTP server on addr in the background.
// Listen errors other than the server being closed are logged, not
// returned, since the exporter is an optional side channel - its failure
// must never abort a profiling cycle.
func (e *Exporter) Serve(addr string) {
	e.server.Addr = addr
	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error().Err(err).Str("addr", addr).Msg("metrics exporter stopped")
		}
	}()
}

// Shutdown gracefully stops the exporter's HTTP server.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

// Observe records one cycle's worth of system and hardware metrics.
func (e *Exporter) Observe(m Metrics) {
	setIfPresent(e.cpuAvg, m.CPUAvg)
	setIfPresent(e.memAvg, m.MemAvg)
	setIfPresent(e.cpuFreq, m.CPUFreq)
	setIfPresent(e.cpi, m.CPI)
	setIfPresent(e.tmaFrontend, m.TMAFrontend)
	setIfPresent(e.tmaBackend, m.TMABackend)
	setIfPresent(e.tmaBadSpec, m.TMABadSpec)
	setIfPresent(e.tmaRetiring, m.TMARetiring)
}

func setIfPresent(gauge prometheus.Gauge, v *float64) {
	if v == nil {
		return
	}
	gauge.Set(*v)
}
