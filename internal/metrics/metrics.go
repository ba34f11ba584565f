// Package metrics exposes placement counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "missilewars"

// Paste results.
const (
	ResultOK        = "ok"
	ResultNoFacing  = "no_facing"
	ResultBadConfig = "bad_config"
	ResultLoadError = "load_error"
	ResultFailed    = "failed"
)

type Metrics struct {
	reg prometheus.Gatherer

	pastes       *prometheus.CounterVec
	blocks       prometheus.Histogram
	pasteSeconds *prometheus.HistogramVec
	cleanups     *prometheus.CounterVec
	cleared      prometheus.Counter
	pendingClean prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		pastes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pastes_total",
			Help:      "Structure placements by result.",
		}, []string{"result"}),
		blocks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paste_blocks",
			Help:      "Blocks written per placement.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 7),
		}),
		pasteSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paste_duration_seconds",
			Help:      "Time from request to the last block reaching the world.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"engine"}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_cleanups_total",
			Help:      "Sentinel cleanups by outcome.",
		}, []string{"outcome"}),
		cleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_blocks_cleared_total",
			Help:      "Trigger blocks removed by sentinel cleanups.",
		}),
		pendingClean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sentinel_cleanups_pending",
			Help:      "Cleanups scheduled but not yet fired.",
		}),
	}
	reg.MustRegister(m.pastes, m.blocks, m.pasteSeconds, m.cleanups, m.cleared, m.pendingClean)
	return m
}

func (m *Metrics) Paste(result string) { m.pastes.WithLabelValues(result).Inc() }

// Applied records a placement whose blocks are all in the world.
func (m *Metrics) Applied(engine string, blocks int, took time.Duration) {
	m.blocks.Observe(float64(blocks))
	m.pasteSeconds.WithLabelValues(engine).Observe(took.Seconds())
}

func (m *Metrics) CleanupScheduled() { m.pendingClean.Inc() }

// CleanupFinished records a fired or cancelled cleanup.
func (m *Metrics) CleanupFinished(outcome string, cleared int) {
	m.pendingClean.Dec()
	m.cleanups.WithLabelValues(outcome).Inc()
	if cleared > 0 {
		m.cleared.Add(float64(cleared))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
