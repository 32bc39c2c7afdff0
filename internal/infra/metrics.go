package infra

import (
	"sync/atomic"
	"time"
)

// Metrics counts engine and transport activity. All operations are
// safe for concurrent use.
type Metrics struct {
	// Counters
	roundsAdvanced   atomic.Uint64
	tradesExecuted   atomic.Uint64
	tradesRejected   atomic.Uint64
	adjustmentsTotal atomic.Uint64
	errorsTotal      atomic.Uint64

	// Gauges
	wsClients atomic.Int32
}

// RecordRoundAdvanced records one round advancement.
func (m *Metrics) RecordRoundAdvanced() {
	m.roundsAdvanced.Add(1)
}

// RecordTrade records an executed buy or sell.
func (m *Metrics) RecordTrade() {
	m.tradesExecuted.Add(1)
}

// RecordTradeRejected records a trade rejected by validation or state.
func (m *Metrics) RecordTradeRejected() {
	m.tradesRejected.Add(1)
}

// RecordAdjustment records an applied reward or penalty.
func (m *Metrics) RecordAdjustment() {
	m.adjustmentsTotal.Add(1)
}

// RecordError records an internal error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementWSClients increments connected websocket clients by 1.
func (m *Metrics) IncrementWSClients() {
	m.wsClients.Add(1)
}

// DecrementWSClients decrements connected websocket clients by 1.
func (m *Metrics) DecrementWSClients() {
	m.wsClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RoundsAdvanced   uint64    `json:"roundsAdvanced"`
	TradesExecuted   uint64    `json:"tradesExecuted"`
	TradesRejected   uint64    `json:"tradesRejected"`
	AdjustmentsTotal uint64    `json:"adjustmentsTotal"`
	ErrorsTotal      uint64    `json:"errorsTotal"`
	WSClients        int32     `json:"wsClients"`
	Timestamp        time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RoundsAdvanced:   m.roundsAdvanced.Load(),
		TradesExecuted:   m.tradesExecuted.Load(),
		TradesRejected:   m.tradesRejected.Load(),
		AdjustmentsTotal: m.adjustmentsTotal.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		WSClients:        m.wsClients.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.roundsAdvanced.Store(0)
	m.tradesExecuted.Store(0)
	m.tradesRejected.Store(0)
	m.adjustmentsTotal.Store(0)
	m.errorsTotal.Store(0)
	m.wsClients.Store(0)
}
