package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProbeEvent records one completed connectivity probe.
type ProbeEvent struct {
	Resource  string
	Name      string
	Timestamp time.Time
	Duration  time.Duration
	OK        bool
}

// Option customises collector creation.
type Option func(*collectorConfig)

type collectorConfig struct {
	namespace string
	registry  prometheus.Registerer
}

// WithNamespace overrides the metric namespace (default: dxruntime).
func WithNamespace(ns string) Option {
	return func(cfg *collectorConfig) {
		if ns != "" {
			cfg.namespace = ns
		}
	}
}

// WithRegistry overrides the Prometheus registerer (useful for tests).
func WithRegistry(reg prometheus.Registerer) Option {
	return func(cfg *collectorConfig) {
		if reg != nil {
			cfg.registry = reg
		}
	}
}

type Collector struct {
	eventCh chan ProbeEvent
	metrics *Metrics
	logger  *slog.Logger

	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	up       *prometheus.GaugeVec
}

func NewCollector(bufferSize int, logger *slog.Logger, opts ...Option) *Collector {
	cfg := collectorConfig{
		namespace: "dxruntime",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	labels := []string{"resource", "name"}

	return &Collector{
		eventCh: make(chan ProbeEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
		checks: promauto.With(cfg.registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "probe_checks_total",
			Help:      "Total number of connectivity probes, partitioned by result.",
		}, append(labels, "result")),
		duration: promauto.With(cfg.registry).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time taken to acquire and ping a resource handle.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
		up: promauto.With(cfg.registry).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Name:      "probe_up",
			Help:      "Whether the last probe of a resource succeeded (1) or failed (0).",
		}, labels),
	}
}

func (c *Collector) EventChannel() chan<- ProbeEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event ProbeEvent) {
	c.metrics.RecordProbe(event.Resource, event.Name, event.Duration, event.OK)

	result, up := "failure", 0.0
	if event.OK {
		result, up = "success", 1.0
	}

	c.checks.WithLabelValues(event.Resource, event.Name, result).Inc()
	c.duration.WithLabelValues(event.Resource, event.Name).Observe(event.Duration.Seconds())
	c.up.WithLabelValues(event.Resource, event.Name).Set(up)
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
