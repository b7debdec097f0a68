package domain

import "time"

type EventType string

const (
	EventTicketsReserved  EventType = "tickets_reserved"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventPaymentRejected  EventType = "payment_rejected"
	EventTicketsReleased  EventType = "tickets_released"
)

// Event is a state-transition notification. Delivery is at-most-once best
// effort; subscribers must tolerate missed events by refreshing full state.
// BuyerID is set on owner-scoped notifications (expired reservations).
type Event struct {
	Type          EventType `json:"type"`
	RaffleID      string    `json:"raffle_id"`
	PaymentID     string    `json:"payment_id,omitempty"`
	BuyerID       string    `json:"buyer_id,omitempty"`
	TicketNumbers []int     `json:"ticket_numbers,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
