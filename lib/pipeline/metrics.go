// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Entry outcomes recorded by Metrics.
const (
	OutcomeRecoded     = "recoded"
	OutcomeCacheHit    = "cache_hit"
	OutcomePassthrough = "passthrough"
	OutcomeDegraded    = "degraded"
)

// Metrics holds Prometheus collectors for builds. One Metrics may
// span several builds; counters accumulate. A nil *Metrics records
// nothing.
type Metrics struct {
	registry      *prometheus.Registry
	entries       *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	encodeSeconds *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	buildSeconds  prometheus.Gauge
}

// NewMetrics creates and registers the build collectors on a private
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "renpak_entries_total",
		Help: "Archive entries written, by outcome.",
	}, []string{"outcome"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "renpak_bytes_total",
		Help: "Entry bytes read from the input and written to the output.",
	}, []string{"direction"})
	encodeSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "renpak_encode_seconds",
		Help:    "Wall time of one decode and encode, by payload kind.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"kind"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "renpak_cache_lookups_total",
		Help: "Payload cache lookups, by result.",
	}, []string{"result"})
	buildSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "renpak_build_seconds",
		Help: "Wall time of the most recent build.",
	})

	registry.MustRegister(entries, bytes, encodeSeconds, cacheLookups, buildSeconds)

	return &Metrics{
		registry:      registry,
		entries:       entries,
		bytes:         bytes,
		encodeSeconds: encodeSeconds,
		cacheLookups:  cacheLookups,
		buildSeconds:  buildSeconds,
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the current values in the node_exporter
// textfile format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) entry(outcome string, in, out int64) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(outcome).Inc()
	m.bytes.WithLabelValues("in").Add(float64(in))
	m.bytes.WithLabelValues("out").Add(float64(out))
}

func (m *Metrics) encode(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.encodeSeconds.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) build(seconds float64) {
	if m == nil {
		return
	}
	m.buildSeconds.Set(seconds)
}
