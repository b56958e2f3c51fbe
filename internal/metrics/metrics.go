package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binrelay_requests_total",
			Help: "Total number of relay requests by outcome",
		},
		[]string{"outcome"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binrelay_upstream_duration_seconds",
			Help:    "Duration of calls to the upstream processing API",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 20, 25, 30, 45},
		},
		[]string{"outcome"},
	)
	PayloadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binrelay_payload_bytes",
			Help:    "Size of accepted binary payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
	CSVRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binrelay_csv_rows",
			Help:    "Number of metric rows in synthesized CSV artifacts",
			Buckets: prometheus.LinearBuckets(0, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(UpstreamDuration)
	prometheus.MustRegister(PayloadBytes)
	prometheus.MustRegister(CSVRows)
}
