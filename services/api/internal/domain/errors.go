package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRaffleNotFound         = errors.New("raffle not found")
	ErrRaffleNotActive        = errors.New("raffle not active")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidStateTransition = errors.New("invalid payment state transition")
	ErrNoTicketsRequested     = errors.New("no tickets requested")
	ErrBuyerRequired          = errors.New("buyer required")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrRaffleNameRequired     = errors.New("raffle name required")
	ErrInvalidTotalTickets    = errors.New("invalid total tickets")
	ErrInvalidID              = errors.New("invalid id")
)

// TicketsUnavailableError names the requested numbers that were not in the
// available state when a reservation attempted to claim them.
type TicketsUnavailableError struct {
	Numbers []int
}

func (e *TicketsUnavailableError) Error() string {
	sorted := append([]int(nil), e.Numbers...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return "tickets unavailable: [" + strings.Join(parts, " ") + "]"
}

// InvalidTicketNumberError flags a requested number outside [1, totalTickets].
type InvalidTicketNumberError struct {
	Number int
}

func (e *InvalidTicketNumberError) Error() string {
	return fmt.Sprintf("invalid ticket number: %d", e.Number)
}
