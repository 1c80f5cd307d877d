// Package metrics exposes Prometheus metrics for matches, clicks and
// persistence.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		m.subsystem = subsystem
	}
}

// WithReactionBuckets sets the histogram buckets for reaction times in ms.
func WithReactionBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.reactionBuckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

var defaultReactionBuckets = []float64{150, 200, 250, 300, 400, 500, 750, 1000, 2000, 5000, 30000}

// Manager holds every collector. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace       string
	subsystem       string
	reactionBuckets []float64
	registry        *prometheus.Registry

	matchesCreated   prometheus.Counter
	matchesFinished  prometheus.Counter
	matchesAbandoned prometheus.Counter
	roundsStarted    prometheus.Counter
	clicks           prometheus.Counter
	reactionTime     prometheus.Histogram
	waitingPlayers   prometheus.Gauge
	activeSessions   prometheus.Gauge
	connections      prometheus.Gauge
	persistErrors    *prometheus.CounterVec
	highscoresSaved  prometheus.Counter
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "reactionduel",
		reactionBuckets: defaultReactionBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.matchesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_created_total",
		Help:      "Total number of matches formed from the waiting queue",
	})
	m.matchesFinished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_finished_total",
		Help:      "Total number of matches that played every round",
	})
	m.matchesAbandoned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_abandoned_total",
		Help:      "Total number of matches torn down by a disconnect",
	})
	m.roundsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_started_total",
		Help:      "Total number of rounds started",
	})
	m.clicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clicks_total",
		Help:      "Total number of click events received",
	})
	m.reactionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reaction_time_milliseconds",
		Help:      "Reported reaction times in milliseconds",
		Buckets:   m.reactionBuckets,
	})
	m.waitingPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "waiting_players",
		Help:      "Players currently waiting for an opponent",
	})
	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions",
		Help:      "Match sessions currently held in memory",
	})
	m.connections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "websocket_connections",
		Help:      "Open websocket connections",
	})
	m.persistErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Failed persistence operations by operation",
	}, []string{"op"})
	m.highscoresSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "highscores_saved_total",
		Help:      "Total number of highscore entries written",
	})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) MatchCreated() {
	if m == nil {
		return
	}
	m.matchesCreated.Inc()
	m.activeSessions.Inc()
}

func (m *Manager) MatchFinished() {
	if m == nil {
		return
	}
	m.matchesFinished.Inc()
}

func (m *Manager) MatchAbandoned() {
	if m == nil {
		return
	}
	m.matchesAbandoned.Inc()
}

// SessionRemoved decrements the in-memory session gauge.
func (m *Manager) SessionRemoved() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Manager) RoundStarted() {
	if m == nil {
		return
	}
	m.roundsStarted.Inc()
}

// Click counts one click and observes its reaction time.
func (m *Manager) Click(elapsedMs float64) {
	if m == nil {
		return
	}
	m.clicks.Inc()
	m.reactionTime.Observe(elapsedMs)
}

func (m *Manager) SetWaiting(n int) {
	if m == nil {
		return
	}
	m.waitingPlayers.Set(float64(n))
}

func (m *Manager) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Manager) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// PersistError counts a failed write or read against op.
func (m *Manager) PersistError(op string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(op).Inc()
}

func (m *Manager) HighscoreSaved() {
	if m == nil {
		return
	}
	m.highscoresSaved.Inc()
}
