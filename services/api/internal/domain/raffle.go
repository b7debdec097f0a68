package domain

import "time"

// Raffle is a fixed inventory of numbered tickets. SoldTickets and
// ReservedTickets are denormalized counters over the ticket rows and must
// always match the true per-status counts.
type Raffle struct {
	ID              string
	Name            string
	TotalTickets    int
	SoldTickets     int
	ReservedTickets int
	TicketPrice     float64
	Active          bool
	CreatedAt       time.Time
}

// AvailableTickets derives the remaining inventory from the counters.
func (r Raffle) AvailableTickets() int {
	return r.TotalTickets - r.SoldTickets - r.ReservedTickets
}

// TicketStats is the per-status breakdown exposed on the read surface.
type TicketStats struct {
	Available int
	Reserved  int
	Sold      int
}

func (r Raffle) Stats() TicketStats {
	return TicketStats{
		Available: r.AvailableTickets(),
		Reserved:  r.ReservedTickets,
		Sold:      r.SoldTickets,
	}
}
