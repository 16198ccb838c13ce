// Package metrics holds the prometheus collectors of the annotation engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Propagation metrics
	PropagatedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_propagated_records_total",
			Help: "Records created, updated or deleted by propagation",
		},
		[]string{"action", "kind", "change"},
	)

	SkippedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_propagation_skipped_documents_total",
			Help: "Documents skipped during a propagation scan",
		},
		[]string{"action"},
	)

	PropagationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotation_propagation_duration_seconds",
			Help:    "Time spent planning and committing one propagation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action", "kind"},
	)

	// Agreement and consensus metrics
	AgreementComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotation_agreement_computations_total",
			Help: "Agreement scores computed",
		},
		[]string{"outcome"},
	)

	GoldDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "annotation_gold_documents_total",
		Help: "Documents emitted by gold export",
	})
)
