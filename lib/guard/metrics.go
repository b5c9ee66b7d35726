// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decisions recorded besides rejection names.
const (
	decisionAllow  = "allow"
	decisionBypass = "bypass"
)

// Metrics are the guard's Prometheus collectors.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the guard collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		decisions: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatepass_guard_decisions_total",
				Help: "Guard decisions by operation and outcome: allow, bypass, or a rejection name.",
			},
			[]string{"operation", "decision"},
		),
	}
}

func (m *Metrics) observe(operation, decision string) {
	if m != nil {
		m.decisions.WithLabelValues(operation, decision).Inc()
	}
}
