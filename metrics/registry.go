// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the request-lifecycle counters used by the
// consensus package and the Averagers registered alongside them.
// Committee observes ElectionLatency; QuorumProbeLatency and
// QuotedCost are registered but no package observes them.
type Registry struct {
	RequestsCreated       prometheus.Counter
	RequestsFinalized     *prometheus.CounterVec // labeled by status
	PayoutTotal           *prometheus.CounterVec // labeled by recipient_kind
	QuorumProbeLatency    Averager
	ElectionLatency       Averager
	QuotedCost            Averager
}

// NewRegistry registers every metric under reg. Callers that do not
// want Prometheus wiring (most tests) can pass prometheus.NewRegistry()
// for an isolated registerer.
func NewRegistry(namespace string, reg prometheus.Registerer) (*Registry, error) {
	r := &Registry{
		RequestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Total requests allocated in the ledger.",
		}),
		RequestsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_finalized_total",
			Help:      "Total requests finalized, labeled by terminal status.",
		}, []string{"status"}),
		PayoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_total",
			Help:      "Total value credited to PendingBalance, labeled by recipient kind.",
		}, []string{"recipient_kind"}),
	}
	for _, c := range []prometheus.Collector{r.RequestsCreated, r.RequestsFinalized, r.PayoutTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	var err error
	if r.QuorumProbeLatency, err = NewAverager(namespace+"_quorum_probe_latency_ms", "quorum probe round-trip latency in ms", reg); err != nil {
		return nil, err
	}
	if r.ElectionLatency, err = NewAverager(namespace+"_election_latency_us", "subcommittee election latency in us", reg); err != nil {
		return nil, err
	}
	if r.QuotedCost, err = NewAverager(namespace+"_quoted_cost", "runner-quoted execution cost", reg); err != nil {
		return nil, err
	}
	return r, nil
}
