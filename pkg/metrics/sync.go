package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records cart synchronization outcomes.
type SyncMetrics struct {
	persistWrites *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
	merges        *prometheus.CounterVec
	orderDuration *prometheus.HistogramVec
	orderAttempts *prometheus.CounterVec
}

// NewSyncMetrics registers the cart sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	persistWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_writes_total",
		Help: "Cart snapshot persistence writes by scope and outcome.",
	}, []string{"scope", "outcome"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rollbacks_total",
		Help: "Optimistic mutations reverted after a remote failure.",
	}, []string{"operation"})
	merges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sign_in_merges_total",
		Help: "Guest cart merges triggered on sign-in.",
	}, []string{"outcome"})
	orderDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of order placement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	orderAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_placement_attempts_total",
		Help: "Order placement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(persistWrites, rollbacks, merges, orderDuration, orderAttempts)
	return &SyncMetrics{
		persistWrites: persistWrites,
		rollbacks:     rollbacks,
		merges:        merges,
		orderDuration: orderDuration,
		orderAttempts: orderAttempts,
	}
}

// ObservePersist records one persistence write for the given scope.
func (m *SyncMetrics) ObservePersist(scope string, success bool) {
	if m == nil || m.persistWrites == nil {
		return
	}
	m.persistWrites.WithLabelValues(normalizeLabel(scope), outcomeLabel(success)).Inc()
}

// IncRollback counts a snapshot restore for the named operation.
func (m *SyncMetrics) IncRollback(operation string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveMerge records a sign-in merge outcome.
func (m *SyncMetrics) ObserveMerge(success bool) {
	if m == nil || m.merges == nil {
		return
	}
	m.merges.WithLabelValues(outcomeLabel(success)).Inc()
}

// ObserveOrder records one order placement attempt.
func (m *SyncMetrics) ObserveOrder(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeLabel(success)
	if m.orderAttempts != nil {
		m.orderAttempts.WithLabelValues(outcome).Inc()
	}
	if m.orderDuration != nil {
		m.orderDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
