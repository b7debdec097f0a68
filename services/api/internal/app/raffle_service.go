package app

import (
	"context"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

type RaffleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateRaffle(ctx context.Context, raffle domain.Raffle) error
	CreateTickets(ctx context.Context, raffleID string, total int) error
	GetActiveRaffle(ctx context.Context) (domain.Raffle, error)
	DeactivateActiveRaffle(ctx context.Context) error
	ActivateRaffle(ctx context.Context, raffleID string) error
	ListTickets(ctx context.Context, raffleID string) ([]domain.Ticket, error)
	ListPendingPayments(ctx context.Context, raffleID string) ([]domain.Payment, error)
}

// RaffleService covers raffle administration and the public read surface.
type RaffleService struct {
	repo  RaffleRepository
	clock clock.Clock
}

func NewRaffleService(repo RaffleRepository, clk clock.Clock) *RaffleService {
	return &RaffleService{
		repo:  repo,
		clock: clk,
	}
}

type CreateRaffleInput struct {
	Name         string
	TotalTickets int
	TicketPrice  float64
}

// CreateRaffle bulk-creates the full 1..TotalTickets inventory. The raffle
// starts inactive; ActivateRaffle opens it for sale.
func (s *RaffleService) CreateRaffle(ctx context.Context, in CreateRaffleInput) (domain.Raffle, error) {
	if in.Name == "" {
		return domain.Raffle{}, domain.ErrRaffleNameRequired
	}
	if in.TotalTickets <= 0 {
		return domain.Raffle{}, domain.ErrInvalidTotalTickets
	}
	if in.TicketPrice < 0 {
		return domain.Raffle{}, domain.ErrInvalidAmount
	}

	raffle := domain.Raffle{
		ID:           newID(),
		Name:         in.Name,
		TotalTickets: in.TotalTickets,
		TicketPrice:  in.TicketPrice,
		CreatedAt:    s.clock.Now(),
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateRaffle(txCtx, raffle); err != nil {
			return err
		}
		return s.repo.CreateTickets(txCtx, raffle.ID, raffle.TotalTickets)
	})
	if err != nil {
		return domain.Raffle{}, err
	}
	return raffle, nil
}

// ActivateRaffle makes the given raffle the single active one, closing any
// raffle that was active before.
func (s *RaffleService) ActivateRaffle(ctx context.Context, raffleID string) error {
	if raffleID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.DeactivateActiveRaffle(txCtx); err != nil {
			return err
		}
		return s.repo.ActivateRaffle(txCtx, raffleID)
	})
}

// ActiveRaffle returns the open raffle with its per-status ticket counts.
func (s *RaffleService) ActiveRaffle(ctx context.Context) (domain.Raffle, error) {
	return s.repo.GetActiveRaffle(ctx)
}

// ListTickets returns the full number grid for a raffle.
func (s *RaffleService) ListTickets(ctx context.Context, raffleID string) ([]domain.Ticket, error) {
	if raffleID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTickets(ctx, raffleID)
}

// PendingPayments lists payments awaiting an admin decision. An empty
// raffleID lists across all raffles.
func (s *RaffleService) PendingPayments(ctx context.Context, raffleID string) ([]domain.Payment, error) {
	return s.repo.ListPendingPayments(ctx, raffleID)
}
