package app

import (
	"context"
	"sort"
	"time"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/metrics"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error)
	ClaimTicket(ctx context.Context, raffleID string, number int, buyerID, paymentID string, at time.Time) (bool, error)
	AddReservedTickets(ctx context.Context, raffleID string, delta int) error
	CreatePayment(ctx context.Context, payment domain.Payment) error
}

// ReservationService atomically claims a set of ticket numbers and opens the
// pending payment that owns them.
type ReservationService struct {
	repo      ReservationRepository
	clock     clock.Clock
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, pub Publisher, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:      repo,
		clock:     clk,
		publisher: pub,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithReservationMetrics records reservation outcomes on the given collector.
func WithReservationMetrics(m *metrics.Metrics) ReservationServiceOption {
	return func(s *ReservationService) {
		s.metrics = m
	}
}

type ReserveInput struct {
	RaffleID      string
	TicketNumbers []int
	BuyerID       string
	Amount        float64
	Method        string
	ReceiptRef    string
}

// Reserve claims every requested number or none of them. Each claim is a
// conditional update guarded on status=available, so at most one concurrent
// caller wins any given number; a single unavailable number abandons the whole
// attempt and the transaction abort rolls back the claims already made.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Payment, error) {
	if len(in.TicketNumbers) == 0 {
		return domain.Payment{}, domain.ErrNoTicketsRequested
	}
	if in.BuyerID == "" {
		return domain.Payment{}, domain.ErrBuyerRequired
	}
	if in.Amount < 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}

	numbers := dedupeNumbers(in.TicketNumbers)
	now := s.clock.Now()
	payment := domain.Payment{
		ID:            newID(),
		RaffleID:      in.RaffleID,
		BuyerID:       in.BuyerID,
		TicketNumbers: numbers,
		Amount:        in.Amount,
		Method:        in.Method,
		ReceiptRef:    in.ReceiptRef,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		raffle, err := s.repo.GetRaffleForUpdate(txCtx, in.RaffleID)
		if err != nil {
			return err
		}
		if !raffle.Active {
			return domain.ErrRaffleNotActive
		}
		for _, n := range numbers {
			if n < 1 || n > raffle.TotalTickets {
				return &domain.InvalidTicketNumberError{Number: n}
			}
		}

		var unavailable []int
		for _, n := range numbers {
			claimed, err := s.repo.ClaimTicket(txCtx, in.RaffleID, n, in.BuyerID, payment.ID, now)
			if err != nil {
				return err
			}
			if !claimed {
				unavailable = append(unavailable, n)
			}
		}
		if len(unavailable) > 0 {
			return &domain.TicketsUnavailableError{Numbers: unavailable}
		}

		if err := s.repo.AddReservedTickets(txCtx, in.RaffleID, len(numbers)); err != nil {
			return err
		}
		return s.repo.CreatePayment(txCtx, payment)
	})
	if err != nil {
		s.metrics.ReservationResult(metrics.ResultFailed)
		return domain.Payment{}, err
	}

	s.metrics.ReservationResult(metrics.ResultReserved)
	publish(s.publisher, domain.Event{
		Type:          domain.EventTicketsReserved,
		RaffleID:      in.RaffleID,
		PaymentID:     payment.ID,
		BuyerID:       in.BuyerID,
		TicketNumbers: numbers,
		OccurredAt:    now,
	})
	return payment, nil
}

func dedupeNumbers(numbers []int) []int {
	seen := make(map[int]struct{}, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
