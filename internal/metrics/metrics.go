package metrics

import (
	"errors"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	OpTotal        *prometheus.CounterVec   // op, result
	OpLatencyMS    *prometheus.HistogramVec // op
	SweptTotal     prometheus.Counter
	GeneratedTotal prometheus.Counter
	AuditFailures  *prometheus.CounterVec // sink=store|stream
}

// New registers the engine metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_op_total",
				Help: "Reservation engine operations by result",
			},
			[]string{"op", "result"},
		),
		OpLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reservation_op_latency_ms",
				Help:    "Latency of reservation engine operations (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"op"},
		),
		SweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_holds_swept_total",
			Help: "Expired holds returned to free by the sweeper",
		}),
		GeneratedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_slots_generated_total",
			Help: "Slots created by catalog generation",
		}),
		AuditFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_audit_failures_total",
				Help: "Audit writes that failed and were dropped",
			},
			[]string{"sink"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.OpTotal, m.OpLatencyMS, m.SweptTotal, m.GeneratedTotal, m.AuditFailures)
	}
	return m
}

// Observe records one finished operation. Safe on a nil receiver.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OpTotal.WithLabelValues(op, Result(err)).Inc()
	m.OpLatencyMS.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}

func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptTotal.Add(float64(n))
}

func (m *Metrics) Generated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.GeneratedTotal.Add(float64(n))
}

func (m *Metrics) AuditFailed(sink string) {
	if m == nil {
		return
	}
	m.AuditFailures.WithLabelValues(sink).Inc()
}

// Result maps an operation error to a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrSlotNotFound), errors.Is(err, domain.ErrReservationNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrHoldConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotHeld):
		return "not_held"
	case errors.Is(err, domain.ErrOwnerMismatch):
		return "owner_mismatch"
	case errors.Is(err, domain.ErrHoldExpired):
		return "expired"
	default:
		return "error"
	}
}
