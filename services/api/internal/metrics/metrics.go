package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultReserved = "reserved"
	ResultFailed   = "failed"

	DecisionConfirmed = "confirmed"
	DecisionRejected  = "rejected"
)

// Metrics collects engine counters. A nil *Metrics is a valid no-op collector
// so services can run without one wired.
type Metrics struct {
	reservations     *prometheus.CounterVec
	paymentDecisions *prometheus.CounterVec
	releasedTickets  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rifas",
			Subsystem: "engine",
			Name:      "reservation_attempts_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"result"}),
		paymentDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rifas",
			Subsystem: "engine",
			Name:      "payment_decisions_total",
			Help:      "Terminal payment decisions by kind.",
		}, []string{"decision"}),
		releasedTickets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rifas",
			Subsystem: "engine",
			Name:      "tickets_released_total",
			Help:      "Tickets reclaimed by the expiry sweep.",
		}),
	}
	reg.MustRegister(m.reservations, m.paymentDecisions, m.releasedTickets)
	return m
}

func (m *Metrics) ReservationResult(result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) PaymentDecision(decision string) {
	if m == nil {
		return
	}
	m.paymentDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) TicketsReleased(n int) {
	if m == nil {
		return
	}
	m.releasedTickets.Add(float64(n))
}
