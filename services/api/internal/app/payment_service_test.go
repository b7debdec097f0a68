package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/clock"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// reserveForTest opens a pending payment over the given numbers and returns it.
func reserveForTest(t *testing.T, store *fakeStore, raffleID, buyerID string, numbers []int, now time.Time) domain.Payment {
	t.Helper()
	svc := NewReservationService(store, clock.NewFixed(now), nil)
	payment, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:      raffleID,
		TicketNumbers: numbers,
		BuyerID:       buyerID,
		Amount:        float64(10 * len(numbers)),
	})
	if err != nil {
		t.Fatalf("seed reservation failed: %v", err)
	}
	return payment
}

func TestPaymentService_Confirm(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	decidedAt := now.Add(time.Hour)

	t.Run("sells the reserved tickets and moves the counters", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.addRaffle("r1", 100, true)
		payment := reserveForTest(t, store, "r1", "buyer-1", []int{10, 11}, now)
		pub := &fakePublisher{}
		svc := NewPaymentService(store, clock.NewFixed(decidedAt), pub)

		confirmed, err := svc.Confirm(context.Background(), payment.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if confirmed.Status != domain.PaymentStatusConfirmed {
			t.Errorf("expected confirmed, got %s", confirmed.Status)
		}
		if confirmed.DecidedAt == nil || !confirmed.DecidedAt.Equal(decidedAt) {
			t.Errorf("expected decided at %v, got %v", decidedAt, confirmed.DecidedAt)
		}

		for _, n := range []int{10, 11} {
			if got := store.ticket("r1", n).Status; got != domain.TicketStatusSold {
				t.Errorf("ticket %d: expected sold, got %s", n, got)
			}
		}
		raffle := store.raffle("r1")
		if raffle.ReservedTickets != 0 || raffle.SoldTickets != 2 {
			t.Errorf("expected counters reserved=0 sold=2, got reserved=%d sold=%d", raffle.ReservedTickets, raffle.SoldTickets)
		}

		if got := len(pub.byType(domain.EventPaymentConfirmed)); got != 1 {
			t.Errorf("expected 1 confirmed event, got %d", got)
		}
	})

	t.Run("sells only tickets the payment still holds", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.addRaffle("r1", 100, true)
		payment := reserveForTest(t, store, "r1", "buyer-1", []int{20, 21}, now)

		// The expiry sweep reclaimed ticket 21 before the admin confirmed.
		if ok, err := store.ReleaseExpiredTicket(context.Background(), "r1", 21, now); err != nil || !ok {
			t.Fatalf("release ticket 21: ok=%v err=%v", ok, err)
		}
		if err := store.SubtractReservedTickets(context.Background(), "r1", 1); err != nil {
			t.Fatalf("subtract reserved: %v", err)
		}

		svc := NewPaymentService(store, clock.NewFixed(decidedAt), nil)
		if _, err := svc.Confirm(context.Background(), payment.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := store.ticket("r1", 20).Status; got != domain.TicketStatusSold {
			t.Errorf("ticket 20: expected sold, got %s", got)
		}
		if got := store.ticket("r1", 21).Status; got != domain.TicketStatusAvailable {
			t.Errorf("ticket 21: expected still available, got %s", got)
		}
		raffle := store.raffle("r1")
		if raffle.ReservedTickets != 0 || raffle.SoldTickets != 1 {
			t.Errorf("expected counters reserved=0 sold=1, got reserved=%d sold=%d", raffle.ReservedTickets, raffle.SoldTickets)
		}
	})

	t.Run("fails on a payment that is not pending", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.addRaffle("r1", 100, true)
		payment := reserveForTest(t, store, "r1", "buyer-1", []int{30}, now)
		svc := NewPaymentService(store, clock.NewFixed(decidedAt), nil)

		if _, err := svc.Confirm(context.Background(), payment.ID); err != nil {
			t.Fatalf("first confirm failed: %v", err)
		}
		if _, err := svc.Confirm(context.Background(), payment.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("fails on an unknown payment", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := NewPaymentService(store, clock.NewFixed(decidedAt), nil)

		if _, err := svc.Confirm(context.Background(), "missing"); !errors.Is(err, domain.ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
	})
}

func TestPaymentService_Reject(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	decidedAt := now.Add(time.Hour)

	t.Run("releases the reserved tickets back to available", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.addRaffle("r1", 100, true)
		payment := reserveForTest(t, store, "r1", "buyer-1", []int{40, 41}, now)
		pub := &fakePublisher{}
		svc := NewPaymentService(store, clock.NewFixed(decidedAt), pub)

		rejected, err := svc.Reject(context.Background(), payment.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rejected.Status != domain.PaymentStatusRejected {
			t.Errorf("expected rejected, got %s", rejected.Status)
		}

		for _, n := range []int{40, 41} {
			ticket := store.ticket("r1", n)
			if ticket.Status != domain.TicketStatusAvailable {
				t.Errorf("ticket %d: expected available, got %s", n, ticket.Status)
			}
			if ticket.BuyerID != nil || ticket.PaymentID != nil {
				t.Errorf("ticket %d: expected cleared ownership, got buyer=%v payment=%v", n, ticket.BuyerID, ticket.PaymentID)
			}
		}
		raffle := store.raffle("r1")
		if raffle.ReservedTickets != 0 || raffle.SoldTickets != 0 {
			t.Errorf("expected counters reserved=0 sold=0, got reserved=%d sold=%d", raffle.ReservedTickets, raffle.SoldTickets)
		}

		if got := len(pub.byType(domain.EventPaymentRejected)); got != 1 {
			t.Errorf("expected 1 rejected event, got %d", got)
		}
	})

	t.Run("terminal payments stay as decided", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.addRaffle("r1", 100, true)
		payment := reserveForTest(t, store, "r1", "buyer-1", []int{50}, now)
		svc := NewPaymentService(store, clock.NewFixed(decidedAt), nil)

		if _, err := svc.Confirm(context.Background(), payment.ID); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
		if _, err := svc.Reject(context.Background(), payment.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}

		// The rejected reject must not have touched the sold ticket.
		if got := store.ticket("r1", 50).Status; got != domain.TicketStatusSold {
			t.Errorf("ticket 50: expected still sold, got %s", got)
		}
		if got := store.payment(payment.ID).Status; got != domain.PaymentStatusConfirmed {
			t.Errorf("expected payment still confirmed, got %s", got)
		}
	})
}
