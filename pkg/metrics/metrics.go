// Package metrics provides the Prometheus metrics of the feeder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts aggregation cycles by outcome (success, failed, cancelled)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_cycles_total",
			Help: "Aggregation cycles by outcome",
		},
		[]string{"outcome"},
	)

	// FetchesTotal counts source fetches by source and result (ok, error)
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_source_fetches_total",
			Help: "Source fetches by source and result",
		},
		[]string{"source", "result"},
	)

	// ObservationsCollected counts raw observations collected per source
	ObservationsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_observations_collected_total",
			Help: "Raw observations collected per source",
		},
		[]string{"source"},
	)

	// SymbolsAggregated counts symbols that produced an aggregated price
	SymbolsAggregated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeder_symbols_aggregated_total",
			Help: "Symbols that produced an aggregated price",
		},
	)

	// SymbolsDropped counts symbols dropped during aggregation
	SymbolsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeder_symbols_dropped_total",
			Help: "Symbols dropped during aggregation",
		},
	)

	// BatchesSubmitted counts sub-batch submissions by result (sent, failed)
	BatchesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_batches_submitted_total",
			Help: "Sub-batch submissions by result",
		},
		[]string{"result"},
	)

	// BatchesConfirmed counts confirmed sub-batches
	BatchesConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeder_batches_confirmed_total",
			Help: "Sub-batches confirmed on-chain",
		},
	)

	// SweepsTotal counts sweep attempts by result (swept, skipped, failed)
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_sweeps_total",
			Help: "Sweep attempts by result",
		},
		[]string{"result"},
	)

	// AttestationsTotal counts attestation writes by result (ok, failed)
	AttestationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeder_attestations_total",
			Help: "Attestation writes by result",
		},
		[]string{"result"},
	)

	// CycleDuration observes end-to-end cycle latency in seconds
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feeder_cycle_duration_seconds",
			Help:    "End-to-end cycle latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)
