// Package metrics provides Prometheus metrics for call sessions.
//
// Each Metrics owns its registry so tests and multiple sessions in one
// process never collide on registration. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callbot"

// Chat request results.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	Turns             prometheus.Counter
	ChatRequests      *prometheus.CounterVec
	ChatLatency       prometheus.Histogram
	RecognitionErrors *prometheus.CounterVec
	MicTimeouts       prometheus.Counter
	StateTransitions  *prometheus.CounterVec
	SessionsActive    prometheus.Gauge
	SpeakerToggles    prometheus.Counter
	SynthesisFailures prometheus.Counter
}

// New creates a Metrics with a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Turns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of recognized user turns",
		}),
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total number of chat backend requests by result",
		}, []string{"result"}),
		ChatLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "Chat backend round-trip latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RecognitionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Total number of speech recognition errors by kind",
		}, []string{"kind"}),
		MicTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mic_timeouts_total",
			Help:      "Total number of listening sessions that timed out",
		}),
		StateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of call state transitions",
		}, []string{"from", "to"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of call sessions currently active",
		}),
		SpeakerToggles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speaker_toggles_total",
			Help:      "Total number of speaker button presses",
		}),
		SynthesisFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failures_total",
			Help:      "Total number of utterances that failed to play",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart records a call session starting.
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a call session ending.
func (m *Metrics) RecordSessionEnd() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordTurn records a recognized transcript.
func (m *Metrics) RecordTurn() {
	if m == nil {
		return
	}
	m.Turns.Inc()
}

// RecordChat records one chat backend round trip.
func (m *Metrics) RecordChat(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(result).Inc()
	m.ChatLatency.Observe(latency.Seconds())
}

// RecordRecognitionError records a recognition error of the given kind.
func (m *Metrics) RecordRecognitionError(kind string) {
	if m == nil {
		return
	}
	m.RecognitionErrors.WithLabelValues(kind).Inc()
}

// RecordMicTimeout records a listening timeout.
func (m *Metrics) RecordMicTimeout() {
	if m == nil {
		return
	}
	m.MicTimeouts.Inc()
}

// RecordTransition records a state change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordSpeakerToggle records a speaker button press.
func (m *Metrics) RecordSpeakerToggle() {
	if m == nil {
		return
	}
	m.SpeakerToggles.Inc()
}

// RecordSynthesisFailure records an utterance that failed to play.
func (m *Metrics) RecordSynthesisFailure() {
	if m == nil {
		return
	}
	m.SynthesisFailures.Inc()
}
