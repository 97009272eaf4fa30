package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quotedeck"

// Draw results.
const (
	DrawOK        = "ok"
	DrawExhausted = "exhausted"
	DrawFallback  = "fallback"
)

// Sync results.
const (
	SyncUpdated     = "updated"
	SyncUnchanged   = "unchanged"
	SyncUnavailable = "remote_unavailable"
)

// Post results.
const (
	PostSent      = "sent"
	PostExhausted = "exhausted"
	PostFailed    = "failed"
)

// Metrics holds the Prometheus collectors for the deck and sync engine.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	draws          *prometheus.CounterVec
	syncs          *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	changes        *prometheus.CounterVec
	posts          *prometheus.CounterVec
	deckSize       prometheus.Gauge
	historySize    prometheus.Gauge
	collectionSize prometheus.Gauge
	quarantineSize prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry, along with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		draws: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Quote draws by kind and result.",
		}, []string{"kind", "result"}),
		syncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Sync cycles by result.",
		}, []string{"result"}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Sync cycle duration, including the remote fetch.",
			Buckets:   prometheus.DefBuckets,
		}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_changes_total",
			Help:      "Records added, removed, or changed by sync.",
		}, []string{"change"}),
		posts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Scheduled posts by result.",
		}, []string{"result"}),
		deckSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deck_size",
			Help:      "Keys still eligible this cycle.",
		}),
		historySize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_size",
			Help:      "Stored draw history entries.",
		}),
		collectionSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_size",
			Help:      "Quotes in the authoritative collection.",
		}),
		quarantineSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quarantine_size",
			Help:      "Records held in quarantine.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDraw counts a draw. kind is "random" or "specific".
func (m *Metrics) ObserveDraw(kind, result string) {
	if m == nil {
		return
	}

	m.draws.WithLabelValues(kind, result).Inc()
}

// ObserveSync records a finished sync cycle.
func (m *Metrics) ObserveSync(result string, d time.Duration, additions, removals, changes int) {
	if m == nil {
		return
	}

	m.syncs.WithLabelValues(result).Inc()
	m.syncDuration.Observe(d.Seconds())
	m.changes.WithLabelValues("added").Add(float64(additions))
	m.changes.WithLabelValues("removed").Add(float64(removals))
	m.changes.WithLabelValues("changed").Add(float64(changes))
}

// ObservePost counts a scheduled post attempt.
func (m *Metrics) ObservePost(result string) {
	if m == nil {
		return
	}

	m.posts.WithLabelValues(result).Inc()
}

// SetDeck records the deck and history sizes.
func (m *Metrics) SetDeck(deck, history int) {
	if m == nil {
		return
	}

	m.deckSize.Set(float64(deck))
	m.historySize.Set(float64(history))
}

// SetCollection records the collection and quarantine sizes.
func (m *Metrics) SetCollection(collection, quarantine int) {
	if m == nil {
		return
	}

	m.collectionSize.Set(float64(collection))
	m.quarantineSize.Set(float64(quarantine))
}
