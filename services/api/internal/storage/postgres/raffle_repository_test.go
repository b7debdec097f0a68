package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/testutil"
)

func TestRaffleRepository_CreateAndActivate(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewRaffleRepository(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := domain.Raffle{ID: uuid.NewString(), Name: "first", TotalTickets: 20, TicketPrice: 5, CreatedAt: now}
	second := domain.Raffle{ID: uuid.NewString(), Name: "second", TotalTickets: 30, TicketPrice: 8, CreatedAt: now}
	for _, raffle := range []domain.Raffle{first, second} {
		if err := repo.CreateRaffle(ctx, raffle); err != nil {
			t.Fatalf("create raffle %s: %v", raffle.Name, err)
		}
		if err := repo.CreateTickets(ctx, raffle.ID, raffle.TotalTickets); err != nil {
			t.Fatalf("create tickets %s: %v", raffle.Name, err)
		}
	}

	if _, err := repo.GetActiveRaffle(ctx); !errors.Is(err, domain.ErrRaffleNotActive) {
		t.Fatalf("expected ErrRaffleNotActive before activation, got %v", err)
	}

	if err := repo.ActivateRaffle(ctx, first.ID); err != nil {
		t.Fatalf("activate first: %v", err)
	}

	// Switching raffles keeps the single-active invariant.
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.DeactivateActiveRaffle(txCtx); err != nil {
			return err
		}
		return repo.ActivateRaffle(txCtx, second.ID)
	})
	if err != nil {
		t.Fatalf("switch active raffle: %v", err)
	}

	active, err := repo.GetActiveRaffle(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("expected %s active, got %s", second.ID, active.ID)
	}

	if err := repo.ActivateRaffle(ctx, uuid.NewString()); !errors.Is(err, domain.ErrRaffleNotFound) {
		t.Fatalf("expected ErrRaffleNotFound for unknown raffle, got %v", err)
	}
}

func TestRaffleRepository_ListTickets(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewRaffleRepository(pool)
	raffleID := testutil.InsertRaffle(t, ctx, pool, "grid", 5, true)
	testutil.ReserveTicket(t, ctx, pool, raffleID, 3, "buyer-a", uuid.NewString(), time.Now().UTC())

	tickets, err := repo.ListTickets(ctx, raffleID)
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 5 {
		t.Fatalf("expected 5 tickets, got %d", len(tickets))
	}
	for i, ticket := range tickets {
		if ticket.Number != i+1 {
			t.Fatalf("expected tickets ordered by number, got %d at index %d", ticket.Number, i)
		}
	}
	if tickets[2].Status != domain.TicketStatusReserved {
		t.Errorf("expected ticket 3 reserved, got %s", tickets[2].Status)
	}
}

func TestRaffleRepository_ListPendingPayments(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewRaffleRepository(pool)
	raffleA := testutil.InsertRaffle(t, ctx, pool, "pending-a", 10, true)
	raffleB := testutil.InsertRaffle(t, ctx, pool, "pending-b", 10, false)

	testutil.InsertPayment(t, ctx, pool, domain.Payment{
		RaffleID: raffleA, BuyerID: "buyer-1", TicketNumbers: []int{1}, Amount: 10,
	})
	testutil.InsertPayment(t, ctx, pool, domain.Payment{
		RaffleID: raffleA, BuyerID: "buyer-2", TicketNumbers: []int{2}, Amount: 10,
		Status: domain.PaymentStatusConfirmed,
	})
	testutil.InsertPayment(t, ctx, pool, domain.Payment{
		RaffleID: raffleB, BuyerID: "buyer-3", TicketNumbers: []int{3}, Amount: 10,
	})

	all, err := repo.ListPendingPayments(ctx, "")
	if err != nil {
		t.Fatalf("list all pending: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 pending payments, got %d", len(all))
	}

	scoped, err := repo.ListPendingPayments(ctx, raffleA)
	if err != nil {
		t.Fatalf("list scoped pending: %v", err)
	}
	if len(scoped) != 1 || scoped[0].BuyerID != "buyer-1" {
		t.Errorf("unexpected scoped payments: %+v", scoped)
	}
}
