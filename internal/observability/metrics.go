// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Parley application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	OperationsTotal      *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
	SubscriptionsActive  *prometheus.GaugeVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_operations_total",
				Help: "GraphQL operations by field and outcome",
			},
			[]string{"operation", "outcome"},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_events_published_total",
				Help: "Chat events published by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		SubscriptionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parley_subscriptions_active",
				Help: "Open GraphQL subscriptions by field",
			},
			[]string{"subscription"},
		),
	}

	reg.MustRegister(m.OperationsTotal, m.EventsPublishedTotal, m.SubscriptionsActive)
	return m
}

// RecordOperation counts one resolver outcome.
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordPublish counts one publish outcome.
func (m *Metrics) RecordPublish(transport, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(transport, outcome).Inc()
}

// SubscriptionOpened marks a subscription as active. The returned func marks
// it closed.
func (m *Metrics) SubscriptionOpened(subscription string) func() {
	if m == nil {
		return func() {}
	}
	g := m.SubscriptionsActive.WithLabelValues(subscription)
	g.Inc()
	return g.Dec
}
