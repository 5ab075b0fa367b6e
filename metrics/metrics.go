// Package metrics exposes the Prometheus metrics the trader updates during
// operation:
//   - trader_remote_calls_total{outcome}  – remote calls by outcome (ok|rate_limited|failed)
//   - trader_decisions_total{action}      – decisions taken (buy|sell|hold)
//   - trader_order_chunks_total{side}     – confirmed order chunks by side
//   - trader_backoffs_total               – backoff sleeps after rate limits
//   - trader_aborted_orders_total{reason} – orders halted early (price_moved|request_failed)
//   - trader_snapshots_recorded_total     – price-change snapshots appended
//   - trader_price / trader_balance / trader_owned_units – latest synced state (gauges)
//
// These are registered in init() and served by the HTTP handler started in
// cmd/trader at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_remote_calls_total",
			Help: "Remote market calls by outcome",
		},
		[]string{"outcome"}, // ok|rate_limited|failed
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_decisions_total",
			Help: "Decisions taken",
		},
		[]string{"action"}, // buy|sell|hold
	)

	orderChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_order_chunks_total",
			Help: "Confirmed order chunks by side",
		},
		[]string{"side"}, // buy|sell
	)

	backoffs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_backoffs_total",
			Help: "Backoff sleeps taken after rate-limit responses",
		},
	)

	abortedOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_aborted_orders_total",
			Help: "Orders halted before completion",
		},
		[]string{"reason"}, // price_moved|request_failed
	)

	snapshotsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_snapshots_recorded_total",
			Help: "Price-change snapshots appended to history",
		},
	)

	price = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_price",
			Help: "Latest observed unit price",
		},
	)

	balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_balance",
			Help: "Latest synced balance",
		},
	)

	ownedUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_owned_units",
			Help: "Latest synced holdings",
		},
	)
)

func init() {
	prometheus.MustRegister(remoteCalls, decisions, orderChunks)
	prometheus.MustRegister(backoffs, abortedOrders, snapshotsRecorded)
	prometheus.MustRegister(price, balance, ownedUnits)
}

func IncRemoteCall(outcome string) { remoteCalls.WithLabelValues(outcome).Inc() }
func IncDecision(action string)    { decisions.WithLabelValues(action).Inc() }
func IncOrderChunk(side string)    { orderChunks.WithLabelValues(side).Inc() }
func IncBackoff()                  { backoffs.Inc() }
func IncAbortedOrder(reason string) {
	abortedOrders.WithLabelValues(reason).Inc()
}
func IncSnapshotRecorded() { snapshotsRecorded.Inc() }

func SetPrice(v int64)      { price.Set(float64(v)) }
func SetBalance(v int64)    { balance.Set(float64(v)) }
func SetOwnedUnits(v int64) { ownedUnits.Set(float64(v)) }
