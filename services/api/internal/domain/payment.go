package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusRejected
}

// Payment records a buyer's intent to pay for a specific set of tickets.
// TicketNumbers is set once at creation and never mutated afterwards; it is
// the only record of which tickets this payment may sell or release.
type Payment struct {
	ID            string
	RaffleID      string
	BuyerID       string
	TicketNumbers []int
	Amount        float64
	Method        string
	ReceiptRef    string
	Status        PaymentStatus
	CreatedAt     time.Time
	DecidedAt     *time.Time
}
