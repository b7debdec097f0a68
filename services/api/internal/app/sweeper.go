package app

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/metrics"
)

type SweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListExpiredTickets(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
	GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error)
	ReleaseExpiredTicket(ctx context.Context, raffleID string, number int, cutoff time.Time) (bool, error)
	SubtractReservedTickets(ctx context.Context, raffleID string, count int) error
	RejectOrphanedPayment(ctx context.Context, paymentID string, at time.Time) (bool, error)
}

// Sweeper reclaims reservations that outlived the TTL without a terminal
// payment decision. It never surfaces errors to callers: a bad row is logged
// and skipped, and re-running a sweep is harmless because every release
// re-checks status and age in its update predicate.
type Sweeper struct {
	repo      SweepRepository
	clock     clock.Clock
	publisher Publisher
	log       zerolog.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration
}

const defaultReservationTTL = 24 * time.Hour

func NewSweeper(repo SweepRepository, clk clock.Clock, pub Publisher, log zerolog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:      repo,
		clock:     clk,
		publisher: pub,
		log:       log,
		ttl:       defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

// WithReservationTTL overrides how long a reservation may stay undecided.
func WithReservationTTL(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSweeperMetrics records released-ticket counts on the given collector.
func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// Sweep runs one reclamation pass across all raffles.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.ttl)

	expired, err := s.repo.ListExpiredTickets(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list expired tickets")
		return
	}
	if len(expired) == 0 {
		return
	}

	byRaffle := make(map[string][]domain.Ticket)
	for _, t := range expired {
		byRaffle[t.RaffleID] = append(byRaffle[t.RaffleID], t)
	}
	for raffleID, tickets := range byRaffle {
		s.sweepRaffle(ctx, raffleID, tickets, cutoff)
	}
}

func (s *Sweeper) sweepRaffle(ctx context.Context, raffleID string, tickets []domain.Ticket, cutoff time.Time) {
	var released []int
	byBuyer := make(map[string][]int)
	byPayment := make(map[string][]int)

	for _, t := range tickets {
		var ok bool
		// One released ticket plus its counter decrement is the atomic
		// unit; the raffle lock keeps lock order identical to the
		// request paths.
		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			if _, err := s.repo.GetRaffleForUpdate(txCtx, raffleID); err != nil {
				return err
			}
			var err error
			ok, err = s.repo.ReleaseExpiredTicket(txCtx, raffleID, t.Number, cutoff)
			if err != nil || !ok {
				return err
			}
			return s.repo.SubtractReservedTickets(txCtx, raffleID, 1)
		})
		if err != nil {
			s.log.Error().Err(err).Str("raffle_id", raffleID).Int("number", t.Number).Msg("sweep: release ticket")
			continue
		}
		if !ok {
			// A confirm or reject got there first.
			continue
		}

		released = append(released, t.Number)
		if t.BuyerID != nil {
			byBuyer[*t.BuyerID] = append(byBuyer[*t.BuyerID], t.Number)
		}
		if t.PaymentID != nil {
			byPayment[*t.PaymentID] = append(byPayment[*t.PaymentID], t.Number)
		}
	}

	if len(released) == 0 {
		return
	}
	sort.Ints(released)
	s.metrics.TicketsReleased(len(released))
	s.log.Info().Str("raffle_id", raffleID).Ints("numbers", released).Msg("sweep: released expired reservations")

	now := s.clock.Now()
	publish(s.publisher, domain.Event{
		Type:          domain.EventTicketsReleased,
		RaffleID:      raffleID,
		TicketNumbers: released,
		OccurredAt:    now,
	})
	for buyerID, numbers := range byBuyer {
		sort.Ints(numbers)
		publish(s.publisher, domain.Event{
			Type:          domain.EventTicketsReleased,
			RaffleID:      raffleID,
			BuyerID:       buyerID,
			TicketNumbers: numbers,
			OccurredAt:    now,
		})
	}

	// A pending payment with no reserved tickets left can never be
	// meaningfully confirmed; reject it instead of letting it go stale.
	for paymentID, numbers := range byPayment {
		rejected, err := s.repo.RejectOrphanedPayment(ctx, paymentID, now)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", paymentID).Msg("sweep: reject orphaned payment")
			continue
		}
		if !rejected {
			continue
		}
		sort.Ints(numbers)
		publish(s.publisher, domain.Event{
			Type:          domain.EventPaymentRejected,
			RaffleID:      raffleID,
			PaymentID:     paymentID,
			TicketNumbers: numbers,
			OccurredAt:    now,
		})
	}
}
