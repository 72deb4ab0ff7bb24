package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultgate_deposits_total",
		Help: "The total number of deposit operations processed",
	}, []string{"kind", "status"})

	WithdrawalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultgate_withdrawals_total",
		Help: "The total number of withdrawal operations processed",
	}, []string{"kind", "status"})

	CapRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultgate_cap_rejects_total",
		Help: "Total operations rejected by the cap policy or reentrancy guard",
	}, []string{"reason"})

	SwapDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultgate_swap_duration_seconds",
		Help:    "Swap adapter execution time in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
