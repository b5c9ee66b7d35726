// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results recorded in the lookups counter.
const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultRemote  = "remote"
	resultFailure = "failure"
)

// Metrics are the cache's Prometheus collectors.
type Metrics struct {
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// NewMetrics registers the cache collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatepass_authority_cache_lookups_total",
				Help: "Authority cache lookups by result: hit, miss, remote (calls to the source), failure.",
			},
			[]string{"result"},
		),
		entries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatepass_authority_cache_entries",
				Help: "Authority records currently held by the cache, fresh or expired.",
			},
		),
	}
}

func (m *Metrics) observe(result string) {
	if m != nil {
		m.lookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) setEntries(count int) {
	if m != nil {
		m.entries.Set(float64(count))
	}
}
