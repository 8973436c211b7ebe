package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chaos-disruptor/pkg/disruptor"
)

const namespace = "disruptor"

// Collector はエンジンの動作を Prometheus メトリクスとして公開する。
// disruptor.Observer を実装する
type Collector struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	triggers    *prometheus.CounterVec
	disruptions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

// NewCollector は専用レジストリを持つ Collector を作成する
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations of configured groups.",
		}, []string{"group", "phase"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Configs whose trigger fired.",
		}, []string{"group", "phase"}),
		disruptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disruptions_total",
			Help:      "Disruptions run, by outcome.",
		}, []string{"group", "kind", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "disruption_duration_seconds",
			Help:      "Time spent inside disruptions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"group", "kind"}),
	}
	c.registry.MustRegister(c.evaluations, c.triggers, c.disruptions, c.durations)
	return c
}

// Registry はメトリクスのレジストリを返す
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler は /metrics 用の HTTP ハンドラを返す
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Evaluated implements disruptor.Observer.
func (c *Collector) Evaluated(dc disruptor.Context, phase disruptor.Phase) {
	c.evaluations.WithLabelValues(dc.Group(), phase.String()).Inc()
}

// Triggered implements disruptor.Observer.
func (c *Collector) Triggered(dc disruptor.Context, phase disruptor.Phase) {
	c.triggers.WithLabelValues(dc.Group(), phase.String()).Inc()
}

// DisruptionApplied implements disruptor.Observer.
func (c *Collector) DisruptionApplied(dc disruptor.Context, _ disruptor.Phase, d disruptor.Disruption, elapsed time.Duration, err error) {
	outcome := "applied"
	if err != nil {
		outcome = "failed"
	}
	c.disruptions.WithLabelValues(dc.Group(), d.Kind(), outcome).Inc()
	c.durations.WithLabelValues(dc.Group(), d.Kind()).Observe(elapsed.Seconds())
}
