// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the protocol.
type Metrics struct {
	// Instruction metrics
	InstructionsTotal  *prometheus.CounterVec
	InstructionLatency *prometheus.HistogramVec

	// Proposal metrics
	ProposalsCreated  *prometheus.CounterVec
	ProposalsResolved *prometheus.CounterVec
	PendingProposals  *prometheus.GaugeVec

	// Stake metrics
	TreasuryStaked    prometheus.Gauge
	StakeSlashedTotal *prometheus.CounterVec
	StakeRefunded     prometheus.Counter

	// Registry metrics
	RegistryEntries *prometheus.GaugeVec

	// Pool metrics
	PoolBalance       *prometheus.GaugeVec
	PoolProfitAccrued *prometheus.CounterVec
	OrderRefreshes    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listing_protocol"
	}

	return &Metrics{
		InstructionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "instructions_total",
			Help:      "Total number of instructions executed, by operation and outcome",
		}, []string{"op", "outcome"}),
		InstructionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "instruction_duration_seconds",
			Help:      "Instruction execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ProposalsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proposals",
			Name:      "created_total",
			Help:      "Total number of proposals created, by track",
		}, []string{"track"}),
		ProposalsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proposals",
			Name:      "resolved_total",
			Help:      "Total number of proposals resolved, by track and terminal status",
		}, []string{"track", "status"}),
		PendingProposals: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "proposals",
			Name:      "pending",
			Help:      "Number of pending proposals, by track",
		}, []string{"track"}),
		TreasuryStaked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stake",
			Name:      "treasury_staked_units",
			Help:      "Total stake currently held by the treasury",
		}),
		StakeSlashedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stake",
			Name:      "slashed_units_total",
			Help:      "Total stake slashed to the treasury, by trigger",
		}, []string{"trigger"}),
		StakeRefunded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stake",
			Name:      "refunded_units_total",
			Help:      "Total stake refunded to proposers",
		}),
		RegistryEntries: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "entries",
			Help:      "Number of registry entries, by track",
		}, []string{"track"}),
		PoolBalance: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "balance_e6",
			Help:      "Liquidity pool balance, by market",
		}, []string{"market"}),
		PoolProfitAccrued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "profit_accrued_e6_total",
			Help:      "Total profit accrued into pools, by market",
		}, []string{"market"}),
		OrderRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "order_refreshes_total",
			Help:      "Total order refreshes, by market and outcome",
		}, []string{"market", "outcome"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
