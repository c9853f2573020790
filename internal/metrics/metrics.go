// Package metrics exposes Prometheus counters/histograms/gauges for the engine's scan
// and execution loops, grounded on the faucet backend's promauto-vars-plus-recorder-
// functions pattern and its HTTP-server-over-promhttp.Handler() exposure shape.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basearb_scan_cycle_duration_seconds",
			Help:    "Wall-clock duration of one scan-update-profit-safety cycle",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)

	RPCRoundTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basearb_rpc_round_trips_total",
			Help: "RPC round trips by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: ok, error
	)

	OpportunitiesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basearb_opportunities_found_total",
			Help: "Raw opportunities produced by the profit engine",
		},
	)

	OpportunitiesVerified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basearb_opportunities_verified_total",
			Help: "Opportunities that passed safety-layer re-verification",
		},
	)

	OpportunitiesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basearb_opportunities_executed_total",
			Help: "Execution attempts by terminal status",
		},
		[]string{"status"},
	)

	GasSpentWei = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basearb_gas_spent_wei",
			Help:    "Gas cost (wei) of confirmed and reverted execution attempts",
			Buckets: prometheus.ExponentialBuckets(1e12, 4, 12),
		},
	)

	L1CostWei = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basearb_l1_cost_wei",
			Help:    "OP-Stack L1 data-fee portion of estimated total transaction cost",
			Buckets: prometheus.ExponentialBuckets(1e10, 4, 12),
		},
	)

	L2CostWei = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basearb_l2_cost_wei",
			Help:    "L2 execution-gas portion of estimated total transaction cost",
			Buckets: prometheus.ExponentialBuckets(1e12, 4, 12),
		},
	)

	TokenCooldowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basearb_token_cooldowns_total",
			Help: "Per-token cooldowns entered, by duration class",
		},
		[]string{"class"}, // short, long
	)
)

// RecordRPC records the outcome of one RPC round trip.
func RecordRPC(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RPCRoundTrips.WithLabelValues(operation, outcome).Inc()
}

// RecordExecution records the terminal status of one execution attempt.
func RecordExecution(status string) {
	OpportunitiesExecuted.WithLabelValues(status).Inc()
}

// RecordCooldown records a per-token cooldown of the given class ("short" or "long").
func RecordCooldown(class string) {
	TokenCooldowns.WithLabelValues(class).Inc()
}

// Timer measures an operation's wall-clock duration against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() Timer {
	return Timer{start: time.Now()}
}

// ObserveSeconds records the elapsed time since NewTimer into histogram.
func (t Timer) ObserveSeconds(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Server exposes the default Prometheus registry over HTTP at addr.
type Server struct {
	srv *http.Server
}

// NewServer builds a metrics server bound to addr (e.g. ":9090"); a blank addr disables it.
func NewServer(addr string) *Server {
	if addr == "" {
		return nil
	}
	return &Server{srv: &http.Server{Addr: addr, Handler: promhttp.Handler()}}
}

// Start serves metrics until the server is stopped; it returns nil when disabled.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the metrics server down; a no-op when disabled.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
