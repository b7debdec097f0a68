package domain

import "time"

type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusSold      TicketStatus = "sold"
)

// Ticket is one numbered unit of raffle inventory, keyed (RaffleID, Number).
// BuyerID and PaymentID are set only while the ticket is reserved or sold;
// ReservedAt only while reserved.
type Ticket struct {
	RaffleID   string
	Number     int
	Status     TicketStatus
	BuyerID    *string
	PaymentID  *string
	ReservedAt *time.Time
}
