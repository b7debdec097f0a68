package app

import (
	"context"
	"sync"
	"time"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// fakeStore backs the service tests with the same conditional-update
// semantics the Postgres layer provides: every ticket mutation is guarded on
// the row's current state, and WithTx restores a snapshot on error.
type fakeStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	raffles  map[string]*domain.Raffle
	tickets  map[string]map[int]*domain.Ticket
	payments map[string]*domain.Payment

	claimErr   map[int]error
	releaseErr map[int]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raffles:    make(map[string]*domain.Raffle),
		tickets:    make(map[string]map[int]*domain.Ticket),
		payments:   make(map[string]*domain.Payment),
		claimErr:   make(map[int]error),
		releaseErr: make(map[int]error),
	}
}

func (f *fakeStore) addRaffle(id string, total int, active bool) {
	f.raffles[id] = &domain.Raffle{
		ID:           id,
		Name:         "Raffle " + id,
		TotalTickets: total,
		Active:       active,
	}
	grid := make(map[int]*domain.Ticket, total)
	for n := 1; n <= total; n++ {
		grid[n] = &domain.Ticket{
			RaffleID: id,
			Number:   n,
			Status:   domain.TicketStatusAvailable,
		}
	}
	f.tickets[id] = grid
}

func (f *fakeStore) ticket(raffleID string, number int) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tickets[raffleID][number]
}

func (f *fakeStore) raffle(raffleID string) domain.Raffle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.raffles[raffleID]
}

func (f *fakeStore) payment(paymentID string) domain.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.payments[paymentID]
}

func (f *fakeStore) snapshotLocked() *fakeStore {
	snap := newFakeStore()
	for id, r := range f.raffles {
		copied := *r
		snap.raffles[id] = &copied
	}
	for id, grid := range f.tickets {
		copiedGrid := make(map[int]*domain.Ticket, len(grid))
		for n, t := range grid {
			copied := *t
			copiedGrid[n] = &copied
		}
		snap.tickets[id] = copiedGrid
	}
	for id, p := range f.payments {
		copied := *p
		copied.TicketNumbers = append([]int(nil), p.TicketNumbers...)
		snap.payments[id] = &copied
	}
	return snap
}

// WithTx serializes transactions so the on-error snapshot restore cannot
// clobber a concurrent writer.
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.raffles = snap.raffles
		f.tickets = snap.tickets
		f.payments = snap.payments
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) GetRaffleForUpdate(_ context.Context, raffleID string) (domain.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[raffleID]
	if !ok {
		return domain.Raffle{}, domain.ErrRaffleNotFound
	}
	return *r, nil
}

func (f *fakeStore) ClaimTicket(_ context.Context, raffleID string, number int, buyerID, paymentID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.claimErr[number]; err != nil {
		return false, err
	}
	t, ok := f.tickets[raffleID][number]
	if !ok || t.Status != domain.TicketStatusAvailable {
		return false, nil
	}
	reservedAt := at
	t.Status = domain.TicketStatusReserved
	t.BuyerID = &buyerID
	t.PaymentID = &paymentID
	t.ReservedAt = &reservedAt
	return true, nil
}

func (f *fakeStore) AddReservedTickets(_ context.Context, raffleID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raffles[raffleID].ReservedTickets += delta
	return nil
}

func (f *fakeStore) CreatePayment(_ context.Context, payment domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := payment
	copied.TicketNumbers = append([]int(nil), payment.TicketNumbers...)
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakeStore) GetPayment(_ context.Context, paymentID string) (domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return *p, nil
}

func (f *fakeStore) GetPaymentForUpdate(ctx context.Context, paymentID string) (domain.Payment, error) {
	return f.GetPayment(ctx, paymentID)
}

func (f *fakeStore) SetPaymentStatus(_ context.Context, paymentID string, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok || p.Status != from {
		return false, nil
	}
	decidedAt := at
	p.Status = to
	p.DecidedAt = &decidedAt
	return true, nil
}

func (f *fakeStore) MarkTicketSold(_ context.Context, raffleID string, number int, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[raffleID][number]
	if !ok || t.Status != domain.TicketStatusReserved || t.PaymentID == nil || *t.PaymentID != paymentID {
		return false, nil
	}
	t.Status = domain.TicketStatusSold
	t.ReservedAt = nil
	return true, nil
}

func (f *fakeStore) ReleaseTicket(_ context.Context, raffleID string, number int, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[raffleID][number]
	if !ok || t.Status != domain.TicketStatusReserved || t.PaymentID == nil || *t.PaymentID != paymentID {
		return false, nil
	}
	f.clearTicketLocked(t)
	return true, nil
}

func (f *fakeStore) ApplyConfirmedCounters(_ context.Context, raffleID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.raffles[raffleID]
	r.ReservedTickets -= count
	if r.ReservedTickets < 0 {
		r.ReservedTickets = 0
	}
	r.SoldTickets += count
	return nil
}

func (f *fakeStore) SubtractReservedTickets(_ context.Context, raffleID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.raffles[raffleID]
	r.ReservedTickets -= count
	if r.ReservedTickets < 0 {
		r.ReservedTickets = 0
	}
	return nil
}

func (f *fakeStore) ListExpiredTickets(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []domain.Ticket
	for _, grid := range f.tickets {
		for _, t := range grid {
			if t.Status == domain.TicketStatusReserved && t.ReservedAt != nil && !t.ReservedAt.After(cutoff) {
				expired = append(expired, *t)
			}
		}
	}
	return expired, nil
}

func (f *fakeStore) ReleaseExpiredTicket(_ context.Context, raffleID string, number int, cutoff time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.releaseErr[number]; err != nil {
		return false, err
	}
	t, ok := f.tickets[raffleID][number]
	if !ok || t.Status != domain.TicketStatusReserved || t.ReservedAt == nil || t.ReservedAt.After(cutoff) {
		return false, nil
	}
	f.clearTicketLocked(t)
	return true, nil
}

func (f *fakeStore) RejectOrphanedPayment(_ context.Context, paymentID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	for _, grid := range f.tickets {
		for _, t := range grid {
			if t.PaymentID != nil && *t.PaymentID == paymentID && t.Status == domain.TicketStatusReserved {
				return false, nil
			}
		}
	}
	decidedAt := at
	p.Status = domain.PaymentStatusRejected
	p.DecidedAt = &decidedAt
	return true, nil
}

func (f *fakeStore) clearTicketLocked(t *domain.Ticket) {
	t.Status = domain.TicketStatusAvailable
	t.BuyerID = nil
	t.PaymentID = nil
	t.ReservedAt = nil
}

// fakePublisher records published events in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakePublisher) Publish(evt domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakePublisher) byType(t domain.EventType) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, evt := range f.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}
