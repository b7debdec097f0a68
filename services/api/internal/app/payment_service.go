package app

import (
	"context"
	"time"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/metrics"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPayment(ctx context.Context, paymentID string) (domain.Payment, error)
	GetPaymentForUpdate(ctx context.Context, paymentID string) (domain.Payment, error)
	GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error)
	SetPaymentStatus(ctx context.Context, paymentID string, from, to domain.PaymentStatus, at time.Time) (bool, error)
	MarkTicketSold(ctx context.Context, raffleID string, number int, paymentID string) (bool, error)
	ReleaseTicket(ctx context.Context, raffleID string, number int, paymentID string) (bool, error)
	ApplyConfirmedCounters(ctx context.Context, raffleID string, count int) error
	SubtractReservedTickets(ctx context.Context, raffleID string, count int) error
}

// PaymentService drives the pending -> confirmed/rejected state machine.
// Confirmed and Rejected are absorbing; any transition out of them fails with
// ErrInvalidStateTransition.
type PaymentService struct {
	repo      PaymentRepository
	clock     clock.Clock
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewPaymentService(repo PaymentRepository, clk clock.Clock, pub Publisher, opts ...PaymentServiceOption) *PaymentService {
	svc := &PaymentService{
		repo:      repo,
		clock:     clk,
		publisher: pub,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PaymentServiceOption func(*PaymentService)

// WithPaymentMetrics records decision outcomes on the given collector.
func WithPaymentMetrics(m *metrics.Metrics) PaymentServiceOption {
	return func(s *PaymentService) {
		s.metrics = m
	}
}

// Confirm sells every ticket the payment still holds. The per-ticket update is
// guarded on status=reserved and the owning payment id, so a ticket already
// reclaimed by the expiry sweep stays as the sweep left it; the counters move
// by the count actually sold.
func (s *PaymentService) Confirm(ctx context.Context, paymentID string) (domain.Payment, error) {
	now := s.clock.Now()
	var result domain.Payment

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Plain read first to learn the raffle, then lock raffle before
		// payment. Every write path takes locks in that order.
		peek, err := s.repo.GetPayment(txCtx, paymentID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetRaffleForUpdate(txCtx, peek.RaffleID); err != nil {
			return err
		}
		payment, err := s.repo.GetPaymentForUpdate(txCtx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusPending {
			return domain.ErrInvalidStateTransition
		}

		sold := 0
		for _, n := range payment.TicketNumbers {
			ok, err := s.repo.MarkTicketSold(txCtx, payment.RaffleID, n, payment.ID)
			if err != nil {
				return err
			}
			if ok {
				sold++
			}
		}

		changed, err := s.repo.SetPaymentStatus(txCtx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed, now)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrInvalidStateTransition
		}

		if sold > 0 {
			if err := s.repo.ApplyConfirmedCounters(txCtx, payment.RaffleID, sold); err != nil {
				return err
			}
		}

		result = payment
		result.Status = domain.PaymentStatusConfirmed
		result.DecidedAt = &now
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentDecision(metrics.DecisionConfirmed)
	publish(s.publisher, domain.Event{
		Type:          domain.EventPaymentConfirmed,
		RaffleID:      result.RaffleID,
		PaymentID:     result.ID,
		BuyerID:       result.BuyerID,
		TicketNumbers: result.TicketNumbers,
		OccurredAt:    now,
	})
	return result, nil
}

// Reject releases every ticket the payment still holds back to available and
// decrements the reserved counter by the count actually released.
func (s *PaymentService) Reject(ctx context.Context, paymentID string) (domain.Payment, error) {
	now := s.clock.Now()
	var result domain.Payment

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		peek, err := s.repo.GetPayment(txCtx, paymentID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetRaffleForUpdate(txCtx, peek.RaffleID); err != nil {
			return err
		}
		payment, err := s.repo.GetPaymentForUpdate(txCtx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusPending {
			return domain.ErrInvalidStateTransition
		}

		released := 0
		for _, n := range payment.TicketNumbers {
			ok, err := s.repo.ReleaseTicket(txCtx, payment.RaffleID, n, payment.ID)
			if err != nil {
				return err
			}
			if ok {
				released++
			}
		}

		changed, err := s.repo.SetPaymentStatus(txCtx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusRejected, now)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrInvalidStateTransition
		}

		if released > 0 {
			if err := s.repo.SubtractReservedTickets(txCtx, payment.RaffleID, released); err != nil {
				return err
			}
		}

		result = payment
		result.Status = domain.PaymentStatusRejected
		result.DecidedAt = &now
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentDecision(metrics.DecisionRejected)
	publish(s.publisher, domain.Event{
		Type:          domain.EventPaymentRejected,
		RaffleID:      result.RaffleID,
		PaymentID:     result.ID,
		BuyerID:       result.BuyerID,
		TicketNumbers: result.TicketNumbers,
		OccurredAt:    now,
	})
	return result, nil
}
