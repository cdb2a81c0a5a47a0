package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the default time between flushes
	DefaultInterval = 5 * time.Second
)

// PushRegistry implements Registry for push-based metrics collection.
// Setting a metric only records its value; Run flushes every recorded series
// to the remote write endpoint in one request per interval, so the control
// loop never waits on the network.
type PushRegistry struct {
	pusher *pusher
	store  *store
}

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:9090").
	URL string
	// Prefix is the metric name prefix. All metric names will be prefixed with this value
	// followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Interval is the flush period used by Run. Defaults to DefaultInterval.
	Interval time.Duration
	// Logger receives flush failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to the given URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &pusher{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		interval:   interval,
		logger:     logger.With("component", "metrics_push"),
	}
	return &PushRegistry{pusher: p, store: newStore()}
}

// NewGauge creates a new push-based Gauge.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{store: r.store, name: opts.Name}, nil
}

// NewGaugeVec creates a new push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{store: r.store, name: opts.Name, labels: labels}, nil
}

// NewCounter creates a new push-based Counter.
func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{store: r.store, name: opts.Name}, nil
}

// NewCounterVec creates a new push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{store: r.store, name: opts.Name, labels: labels}, nil
}

// NewHistogram creates a new push-based Histogram. Only the _sum and
// _count series are pushed.
func (r *PushRegistry) NewHistogram(opts prometheus.HistogramOpts) (Histogram, error) {
	return &pushHistogram{store: r.store, name: opts.Name}, nil
}

// Flush sends every recorded series now.
func (r *PushRegistry) Flush(ctx context.Context) error {
	return r.pusher.push(ctx, r.store.snapshot())
}

// Run flushes on every interval until ctx is done, then flushes once more.
func (r *PushRegistry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pusher.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), r.pusher.httpClient.Timeout)
			defer cancel()
			if err := r.Flush(flushCtx); err != nil {
				r.pusher.logger.Warn("final metrics flush failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.pusher.logger.Warn("metrics flush failed", "error", err)
			}
		}
	}
}

// series is one labelled value waiting to be pushed.
type series struct {
	name   string
	labels map[string]string
	value  float64
}

// store holds the latest value of every series.
type store struct {
	mu     sync.Mutex
	series map[string]*series
}

func newStore() *store {
	return &store{series: make(map[string]*series)}
}

func (s *store) get(name string, labels map[string]string) *series {
	key := name + "{" + labelsToKey(labels) + "}"
	sr, ok := s.series[key]
	if !ok {
		sr = &series{name: name, labels: labels}
		s.series[key] = sr
	}
	return sr
}

func (s *store) set(name string, labels map[string]string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(name, labels).value = v
}

func (s *store) add(name string, labels map[string]string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(name, labels).value += v
}

func (s *store) value(name string, labels map[string]string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(name, labels).value
}

func (s *store) snapshot() []series {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]series, 0, len(s.series))
	for _, sr := range s.series {
		out = append(out, *sr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return labelsToKey(out[i].labels) < labelsToKey(out[j].labels)
	})
	return out
}

// pusher handles remote write to VictoriaMetrics/Prometheus.
type pusher struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	interval   time.Duration
	logger     *slog.Logger
}

// push sends a batch of series to the remote write endpoint.
func (p *pusher) push(ctx context.Context, batch []series) error {
	if len(batch) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	req := &prompb.WriteRequest{
		Timeseries: make([]prompb.TimeSeries, 0, len(batch)),
	}
	for _, sr := range batch {
		req.Timeseries = append(req.Timeseries, p.toTimeSeries(sr, now))
	}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// toTimeSeries converts a series to Prometheus TimeSeries format.
func (p *pusher) toTimeSeries(sr series, timestamp int64) prompb.TimeSeries {
	promLabels := make([]prompb.Label, 0, len(sr.labels)+3)

	metricName := sr.name
	if p.prefix != "" {
		metricName = p.prefix + "_" + sr.name
	}
	promLabels = append(promLabels, prompb.Label{Name: "__name__", Value: metricName})

	if p.job != "" {
		promLabels = append(promLabels, prompb.Label{Name: "job", Value: p.job})
	}
	if p.instance != "" {
		promLabels = append(promLabels, prompb.Label{Name: "instance", Value: p.instance})
	}

	keys := make([]string, 0, len(sr.labels))
	for k := range sr.labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		promLabels = append(promLabels, prompb.Label{Name: k, Value: sr.labels[k]})
	}

	return prompb.TimeSeries{
		Labels:  promLabels,
		Samples: []prompb.Sample{{Value: sr.value, Timestamp: timestamp}},
	}
}

// pushGauge implements Gauge for push mode.
type pushGauge struct {
	store  *store
	name   string
	labels map[string]string
}

func (g *pushGauge) Set(v float64) {
	g.store.set(g.name, g.labels, v)
}

// pushGaugeVec implements GaugeVec for push mode.
type pushGaugeVec struct {
	store  *store
	name   string
	labels []string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{store: g.store, name: g.name, labels: labels}
}

// pushCounter implements Counter for push mode.
type pushCounter struct {
	store  *store
	name   string
	labels map[string]string
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.store.add(c.name, c.labels, v)
}

// pushCounterVec implements CounterVec for push mode.
type pushCounterVec struct {
	store  *store
	name   string
	labels []string
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{store: c.store, name: c.name, labels: labels}
}

// pushHistogram implements Histogram for push mode.
type pushHistogram struct {
	store *store
	name  string
}

func (h *pushHistogram) Observe(v float64) {
	h.store.add(h.name+"_sum", nil, v)
	h.store.add(h.name+"_count", nil, 1)
}

// labelsToKey creates a stable string key from labels for map lookup.
func labelsToKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
		sb.WriteString(",")
	}
	return sb.String()
}
