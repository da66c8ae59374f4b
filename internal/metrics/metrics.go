// Package metrics holds the engine's own lightweight, lock-free operational
// counters. This is distinct from — and not a substitute for — a full
// Prometheus exporter, which is treated as an out-of-scope external
// collaborator: it exists only to back this repository's own reference
// /metrics HTTP handler.
package metrics

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"time"
)

// MaxLatencyMicros bounds the latency histogram: requests slower than this
// are bucketed into the last slot.
const MaxLatencyMicros = 100000

// Metrics holds thread-safe counters for one engine instance.
type Metrics struct {
	StartTime time.Time

	OrdersReceived   atomic.Int64
	OrdersRested     atomic.Int64
	OrdersFilled     atomic.Int64
	OrdersKilled     atomic.Int64
	OrdersRejected   atomic.Int64
	OrdersCancelled  atomic.Int64
	OrdersExpired    atomic.Int64
	ModifySuppressed atomic.Int64
	OrdersInBook     atomic.Int64
	TradesExecuted   atomic.Int64
	TotalLatency     atomic.Int64 // command latency, in microseconds

	// LatencyHistogram[i] counts commands that took i microseconds; the
	// last slot accumulates everything >= MaxLatencyMicros.
	LatencyHistogram [MaxLatencyMicros + 1]atomic.Int64
}

// New creates a new Metrics struct with its clock started now.
func New() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) IncOrdersReceived()   { m.OrdersReceived.Add(1) }
func (m *Metrics) IncOrdersCancelled()  { m.OrdersCancelled.Add(1) }
func (m *Metrics) IncOrdersExpired()    { m.OrdersExpired.Add(1) }
func (m *Metrics) IncModifySuppressed() { m.ModifySuppressed.Add(1) }
func (m *Metrics) IncOrdersInBook()     { m.OrdersInBook.Add(1) }
func (m *Metrics) DecOrdersInBook()     { m.OrdersInBook.Add(-1) }
func (m *Metrics) IncTradesExecuted(n int64) { m.TradesExecuted.Add(n) }

// RecordDisposition tallies one order's disposition: the outcome of a
// Create or Modify, or a resting maker's full fill.
func (m *Metrics) RecordDisposition(disposition string) {
	switch disposition {
	case "Rested":
		m.OrdersRested.Add(1)
	case "FullyFilled":
		m.OrdersFilled.Add(1)
	case "Killed":
		m.OrdersKilled.Add(1)
	case "Rejected":
		m.OrdersRejected.Add(1)
	}
}

// AddLatency records one command's processing latency, in microseconds.
func (m *Metrics) AddLatency(microseconds int64) {
	m.TotalLatency.Add(microseconds)
	idx := microseconds
	if idx > MaxLatencyMicros {
		idx = MaxLatencyMicros
	}
	if idx < 0 {
		idx = 0
	}
	m.LatencyHistogram[idx].Add(1)
}

func (m *Metrics) calculatePercentile(p float64, totalCount int64) float64 {
	if totalCount == 0 {
		return 0
	}
	targetCount := int64(math.Ceil(float64(totalCount) * p))
	var currentCount int64
	for i := 0; i <= MaxLatencyMicros; i++ {
		currentCount += m.LatencyHistogram[i].Load()
		if currentCount >= targetCount {
			return float64(i) / 1000.0
		}
	}
	return float64(MaxLatencyMicros) / 1000.0
}

// MarshalJSON implements json.Marshaler for the /metrics HTTP handler.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	totalOrders := m.OrdersReceived.Load()

	avgLatency := 0.0
	if totalOrders > 0 {
		avgLatency = float64(m.TotalLatency.Load()) / float64(totalOrders) / 1000.0
	}

	uptime := time.Since(m.StartTime).Seconds()
	throughput := 0.0
	if uptime > 0 {
		throughput = float64(totalOrders) / uptime
	}

	return json.Marshal(map[string]any{
		"orders_received":           totalOrders,
		"orders_rested":             m.OrdersRested.Load(),
		"orders_filled":             m.OrdersFilled.Load(),
		"orders_killed":             m.OrdersKilled.Load(),
		"orders_rejected":           m.OrdersRejected.Load(),
		"orders_cancelled":          m.OrdersCancelled.Load(),
		"orders_expired":            m.OrdersExpired.Load(),
		"modify_suppressed":         m.ModifySuppressed.Load(),
		"orders_in_book":            m.OrdersInBook.Load(),
		"trades_executed":           m.TradesExecuted.Load(),
		"latency_avg_ms":            avgLatency,
		"latency_p50_ms":            m.calculatePercentile(0.50, totalOrders),
		"latency_p99_ms":            m.calculatePercentile(0.99, totalOrders),
		"latency_p999_ms":           m.calculatePercentile(0.999, totalOrders),
		"throughput_orders_per_sec": throughput,
	})
}
