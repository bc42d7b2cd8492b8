// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"github.com/prometheus/client_golang/prometheus"
)

type busMetrics struct {
	published *prometheus.CounterVec
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// newBusMetrics builds the relay counters and registers them with reg when
// it is non-nil.
func newBusMetrics(reg prometheus.Registerer) *busMetrics {
	m := &busMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcm",
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Publications accepted by the relay.",
		}, []string{"channel"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcm",
			Subsystem: "bus",
			Name:      "delivered_total",
			Help:      "Publications written to subscribers.",
		}, []string{"channel"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcm",
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Publications or deliveries the relay discarded.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.published, m.delivered, m.dropped)
	}
	return m
}
