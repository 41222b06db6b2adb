// Package metrics holds the Prometheus collectors for strategy evaluations and
// remote HNR lookups.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reap",
		Name:      "strategy_evaluations_total",
		Help:      "Total strategy evaluations by strategy, evaluation path and result.",
	}, []string{"strategy", "path", "result"})

	EvaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reap",
		Name:      "strategy_evaluation_duration_seconds",
		Help:      "Strategy evaluation duration in seconds.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"strategy", "path"})

	TorrentsSelected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reap",
		Name:      "strategy_torrents",
		Help:      "Number of torrents in the remove and remain sets of the last evaluation.",
	}, []string{"strategy", "set"})

	HNRRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reap",
		Name:      "hnr_requests_total",
		Help:      "Total HNR lookup requests by HTTP status code, or \"error\" for transport failures.",
	}, []string{"code"})

	HNRRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reap",
		Name:      "hnr_request_duration_seconds",
		Help:      "HNR lookup request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	})

	HNRRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reap",
		Name:      "hnr_records_total",
		Help:      "Total HNR records received, by whether the obligation is satisfied.",
	}, []string{"satisfied"})
)

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		EvaluationsTotal,
		EvaluationDuration,
		TorrentsSelected,
		HNRRequestsTotal,
		HNRRequestDuration,
		HNRRecordsTotal,
	)
}

// NewRegistry returns a registry holding every collector.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	Register(reg)

	return reg
}

// WriteTextfile writes the current values in the textfile collector format,
// replacing path atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	err := prometheus.WriteToTextfile(path, g)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
