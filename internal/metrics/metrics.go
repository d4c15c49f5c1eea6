// Package metrics holds the Prometheus counters of the order and deposit core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rentalhub"

type Metrics struct {
	orderTransitions    *prometheus.CounterVec
	reservationFailures *prometheus.CounterVec
	gatewayCallbacks    *prometheus.CounterVec
	depositSettlements  *prometheus.CounterVec
	jobRuns             *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	sweepItems          *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_transitions_total",
			Help: "Order status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		reservationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "unit_reservation_failures_total",
			Help: "Failed unit reservations by kind.",
		}, []string{"kind"}),
		gatewayCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "gateway_callbacks_total",
			Help: "Payment gateway callbacks by channel and response code returned.",
		}, []string{"channel", "code"}),
		depositSettlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deposit_settlements_total",
			Help: "Deposit status changes by resulting status.",
		}, []string{"status"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "job_runs_total",
			Help: "Background job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds",
			Help:    "Background job duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_items_total",
			Help: "Items handled by background sweeps by job and result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.orderTransitions, m.reservationFailures, m.gatewayCallbacks,
		m.depositSettlements, m.jobRuns, m.jobDuration, m.sweepItems)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OrderTransition(to string, err error) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(to, outcome(err)).Inc()
}

func (m *Metrics) ReservationFailure(kind string) {
	if m == nil {
		return
	}
	m.reservationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) GatewayCallback(channel, code string) {
	if m == nil {
		return
	}
	m.gatewayCallbacks.WithLabelValues(channel, code).Inc()
}

func (m *Metrics) DepositSettled(status string) {
	if m == nil {
		return
	}
	m.depositSettlements.WithLabelValues(status).Inc()
}

func (m *Metrics) JobRun(job string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *Metrics) SweepItems(job, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepItems.WithLabelValues(job, result).Add(float64(n))
}
