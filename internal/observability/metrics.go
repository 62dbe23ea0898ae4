// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	PrepareRunsTotal *prometheus.CounterVec
	PrepareDuration  prometheus.Histogram
	HoldersTotal     prometheus.Gauge
	EligibleHolders  prometheus.Gauge
	ExcludedHolders  prometheus.Gauge
	TotalEntries     prometheus.Gauge
	DustDropped      prometheus.Gauge

	// Exclusion metrics
	ExclusionChanges *prometheus.CounterVec

	// Draw metrics
	DrawsTotal   *prometheus.CounterVec
	LastDrawTime prometheus.Gauge

	// Monitor metrics
	Observations        *prometheus.CounterVec
	ObservationsSkipped prometheus.Counter
	VerificationLatency prometheus.Histogram
	LastKnownBalance    prometheus.Gauge
	PendingReviews      prometheus.Gauge

	// Distribution metrics
	DistributionsTotal *prometheus.CounterVec
	DistributedAmount  *prometheus.CounterVec

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "holder_rewards"
	}

	return &Metrics{
		PrepareRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "prepare_runs_total",
			Help:      "Total number of prepare-draw runs by status",
		}, []string{"status"}),
		PrepareDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "prepare_duration_seconds",
			Help:      "Prepare-draw duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		HoldersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "holders",
			Help:      "Holders in the last persisted snapshot",
		}),
		EligibleHolders: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "eligible_holders",
			Help:      "Draw-eligible holders in the last persisted snapshot",
		}),
		ExcludedHolders: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "excluded_holders",
			Help:      "Excluded holders in the last persisted snapshot",
		}),
		TotalEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_entries",
			Help:      "Total draw entries in the last persisted snapshot",
		}),
		DustDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "dust_dropped",
			Help:      "Holders dropped below the minimum balance in the last snapshot",
		}),

		ExclusionChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exclusion",
			Name:      "changes_total",
			Help:      "Exclusion changes by action and actor kind",
		}, []string{"action", "actor"}),

		DrawsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "runs_total",
			Help:      "Total number of draws by status",
		}, []string{"status"}),
		LastDrawTime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful draw",
		}),

		Observations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "observations_total",
			Help:      "Balance observations by trigger and outcome",
		}, []string{"source", "outcome"}),
		ObservationsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "observations_coalesced_total",
			Help:      "Observations dropped because a transition was in flight",
		}),
		VerificationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "verification_latency_seconds",
			Help:      "Transaction history verification latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LastKnownBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_known_balance_lamports",
			Help:      "Last known balance of the watched fee account",
		}),
		PendingReviews: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "pending_reviews",
			Help:      "Confirmed fee events held for manual review",
		}),

		DistributionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "total",
			Help:      "Distributions by status",
		}, []string{"status"}),
		DistributedAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "amount_lamports_total",
			Help:      "Distributed lamports by share",
		}, []string{"share"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Solana RPC call errors by method",
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin API requests by method, route and status",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPrepare records a prepare-draw run and, on success, the ledger gauges.
func RecordPrepare(status string, seconds float64, holders, eligible, excluded, dust int, entries int64) {
	DefaultMetrics.PrepareRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PrepareDuration.Observe(seconds)
	if status != "success" {
		return
	}
	DefaultMetrics.HoldersTotal.Set(float64(holders))
	DefaultMetrics.EligibleHolders.Set(float64(eligible))
	DefaultMetrics.ExcludedHolders.Set(float64(excluded))
	DefaultMetrics.DustDropped.Set(float64(dust))
	DefaultMetrics.TotalEntries.Set(float64(entries))
}

// RecordExclusionChange records an exclude or include action.
func RecordExclusionChange(action, actor string) {
	DefaultMetrics.ExclusionChanges.WithLabelValues(action, actor).Inc()
}

// RecordDraw records a draw attempt.
func RecordDraw(status string, unixTime int64) {
	DefaultMetrics.DrawsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.LastDrawTime.Set(float64(unixTime))
	}
}

// RecordObservation records a monitor observation outcome.
func RecordObservation(source, outcome string) {
	DefaultMetrics.Observations.WithLabelValues(source, outcome).Inc()
}

// RecordObservationCoalesced increments the coalesced observations counter.
func RecordObservationCoalesced() {
	DefaultMetrics.ObservationsSkipped.Inc()
}

// RecordVerification records verification latency.
func RecordVerification(seconds float64) {
	DefaultMetrics.VerificationLatency.Observe(seconds)
}

// UpdateLastKnownBalance updates the watched account balance gauge.
func UpdateLastKnownBalance(lamports uint64) {
	DefaultMetrics.LastKnownBalance.Set(float64(lamports))
}

// UpdatePendingReviews updates the pending review gauge.
func UpdatePendingReviews(n int) {
	DefaultMetrics.PendingReviews.Set(float64(n))
}

// RecordDistribution records a distribution outcome and its split amounts.
func RecordDistribution(status string, reward, burn, ops uint64) {
	DefaultMetrics.DistributionsTotal.WithLabelValues(status).Inc()
	if status != "created" {
		return
	}
	DefaultMetrics.DistributedAmount.WithLabelValues("reward").Add(float64(reward))
	DefaultMetrics.DistributedAmount.WithLabelValues("burn").Add(float64(burn))
	DefaultMetrics.DistributedAmount.WithLabelValues("ops").Add(float64(ops))
}

// RecordRPCCall records RPC call latency and errors.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records an admin API request.
func RecordHTTPRequest(method, path string, status int, seconds float64) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
