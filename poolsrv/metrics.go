// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Runner's prometheus instrumentation. All metrics
// are optional: a Runner built without a registerer holds a nil
// *metrics, and every method checks for a nil receiver and does
// nothing.
type metrics struct {
	sendDuration   *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	chainUpdates   prometheus.Counter
	newHeadsSent   prometheus.Counter
	lagged         prometheus.Counter
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent handling a single Handle request, labeled by request kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of asynchronously dispatched requests currently executing.",
		}),
		chainUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_updates_total",
			Help:      "Number of chain updates applied across all configured mempools.",
		}),
		newHeadsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_heads_broadcast_total",
			Help:      "Number of NewHead events broadcast to subscribers.",
		}),
		lagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_head_subscribers_lagged_total",
			Help:      "Number of NewHead events dropped for a lagging subscriber, summed across all subscribers.",
		}),
	}

	for _, c := range []prometheus.Collector{m.sendDuration, m.requestsInFlight, m.chainUpdates, m.newHeadsSent, m.lagged} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeSend(kind Kind, seconds float64) {
	if m == nil {
		return
	}
	m.sendDuration.WithLabelValues(kind.String()).Observe(seconds)
}

func (m *metrics) incInFlight() {
	if m == nil {
		return
	}
	m.requestsInFlight.Inc()
}

func (m *metrics) decInFlight() {
	if m == nil {
		return
	}
	m.requestsInFlight.Dec()
}

func (m *metrics) incChainUpdates() {
	if m == nil {
		return
	}
	m.chainUpdates.Inc()
}

func (m *metrics) incNewHeadsSent() {
	if m == nil {
		return
	}
	m.newHeadsSent.Inc()
}

func (m *metrics) addLagged(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.lagged.Add(float64(n))
}
