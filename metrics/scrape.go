package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry implements Registry on a private Prometheus registry that
// the diagnostics server exposes on /metrics.
type ScrapeRegistry struct {
	prom *prometheus.Registry
}

// NewScrapeRegistry creates a registry preloaded with the Go runtime and
// process collectors.
func NewScrapeRegistry() (*ScrapeRegistry, error) {
	reg := prometheus.NewRegistry()
	for name, c := range map[string]prometheus.Collector{
		"go":      collectors.NewGoCollector(),
		"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering %s collector: %w", name, err)
		}
	}
	return &ScrapeRegistry{prom: reg}, nil
}

// Handler serves the registry in the OpenMetrics or text format.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func register[C prometheus.Collector](reg *prometheus.Registry, kind, name string, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var zero C
		return zero, fmt.Errorf("registering %s %q: %w", kind, name, err)
	}
	return c, nil
}

func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return register(r.prom, "gauge", opts.Name, prometheus.NewGauge(opts))
}

func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	g, err := register(r.prom, "gauge vec", opts.Name, prometheus.NewGaugeVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return gaugeVec{g}, nil
}

func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return register(r.prom, "counter", opts.Name, prometheus.NewCounter(opts))
}

func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	c, err := register(r.prom, "counter vec", opts.Name, prometheus.NewCounterVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return counterVec{c}, nil
}

func (r *ScrapeRegistry) NewHistogram(opts prometheus.HistogramOpts) (Histogram, error) {
	return register(r.prom, "histogram", opts.Name, prometheus.NewHistogram(opts))
}

// The Prometheus vec types return their own metric types from With, so they
// need adapting to this package's interfaces. Plain metrics already match.
type gaugeVec struct{ *prometheus.GaugeVec }

func (g gaugeVec) With(labels prometheus.Labels) Gauge { return g.GaugeVec.With(labels) }

type counterVec struct{ *prometheus.CounterVec }

func (c counterVec) With(labels prometheus.Labels) Counter { return c.CounterVec.With(labels) }
