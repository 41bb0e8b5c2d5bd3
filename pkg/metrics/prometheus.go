// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes replay progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// delayBuckets covers sub-second GPS rates up to a minute of signal loss.
var delayBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Manager owns the replay metrics and the registry they live in.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	trackPoints   prometheus.Gauge
	eventsEmitted prometheus.Counter
	emitErrors    *prometheus.CounterVec
	delaysClamped prometheus.Counter
	delay         prometheus.Histogram
}

// NewManager builds a Manager on its own registry so the Go runtime
// collectors are not exported alongside replay data.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "gps_replay",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.trackPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "track_points",
		Help:      "Number of points in the track being replayed.",
	})
	m.eventsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_emitted_total",
		Help:      "Events handed to the output sinks.",
	})
	m.emitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "emit_errors_total",
		Help:      "Events a sink failed to deliver.",
	}, []string{"sink"})
	m.delaysClamped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "delays_clamped_total",
		Help:      "Negative inter-point delays replaced by zero.",
	})
	m.delay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "delay_seconds",
		Help:      "Scheduled wait before each emitted event.",
		Buckets:   delayBuckets,
	})

	m.registry.MustRegister(m.trackPoints, m.eventsEmitted, m.emitErrors, m.delaysClamped, m.delay)
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) SetTrackPoints(n int) {
	m.trackPoints.Set(float64(n))
}

func (m *Manager) IncEmitted() {
	m.eventsEmitted.Inc()
}

func (m *Manager) IncEmitErrors(sink string) {
	m.emitErrors.WithLabelValues(sink).Inc()
}

func (m *Manager) IncDelaysClamped() {
	m.delaysClamped.Inc()
}

func (m *Manager) ObserveDelay(d time.Duration) {
	m.delay.Observe(d.Seconds())
}
