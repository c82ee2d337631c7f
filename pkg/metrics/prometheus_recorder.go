package metrics

import (
	"net/http"
	"time"

	"github.com/goliatone/go-ambient"
	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ambient"

var _ ambient.Recorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder implements ambient.Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reads               *prom.CounterVec
	writeDuration       *prom.HistogramVec
	writes              *prom.CounterVec
	subscriptionsActive *prom.GaugeVec
	subscriptions       *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them with
// reg. A nil reg uses a fresh registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "binding_reads_total",
			Help:      "Binding initial reads by outcome",
		}, []string{"key", "outcome"}),
		writeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "binding_write_duration_seconds",
			Help:      "Duration of encode plus backend write",
			Buckets:   prom.DefBuckets,
		}, []string{"key", "result"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "binding_writes_total",
			Help:      "Binding writes by result",
		}, []string{"key", "result"}),
		subscriptionsActive: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Currently attached subscriptions",
		}, []string{"event"}),
		subscriptions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Subscription lifecycle transitions",
		}, []string{"event", "state"}),
	}
	reg.MustRegister(pr.reads, pr.writeDuration, pr.writes, pr.subscriptionsActive, pr.subscriptions)
	return pr
}

func (p *PrometheusRecorder) ObserveRead(key, outcome string) {
	if p == nil {
		return
	}
	p.reads.WithLabelValues(key, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveWrite(key string, d time.Duration, err error) {
	if p == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
	}
	p.writeDuration.WithLabelValues(key, result).Observe(d.Seconds())
	p.writes.WithLabelValues(key, result).Inc()
}

func (p *PrometheusRecorder) SubscriptionAttached(event string) {
	if p == nil {
		return
	}
	p.subscriptionsActive.WithLabelValues(event).Inc()
	p.subscriptions.WithLabelValues(event, "attached").Inc()
}

func (p *PrometheusRecorder) SubscriptionDetached(event string) {
	if p == nil {
		return
	}
	p.subscriptionsActive.WithLabelValues(event).Dec()
	p.subscriptions.WithLabelValues(event, "detached").Inc()
}

// HTTPHandler serves the metrics gathered by g.
func HTTPHandler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
