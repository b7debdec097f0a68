package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

type SweepRepository struct {
	pool *pgxpool.Pool
}

func NewSweepRepository(pool *pgxpool.Pool) *SweepRepository {
	return &SweepRepository{pool: pool}
}

func (r *SweepRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *SweepRepository) GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error) {
	return raffleForUpdate(ctx, r.pool, raffleID)
}

func (r *SweepRepository) ListExpiredTickets(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	const q = `
SELECT raffle_id, number, status, buyer_id, payment_id, reserved_at
FROM tickets
WHERE status = 'reserved' AND reserved_at <= $1
ORDER BY raffle_id, number`
	rows, err := query(ctx, r.pool, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var status string
		if err := rows.Scan(&t.RaffleID, &t.Number, &status, &t.BuyerID, &t.PaymentID, &t.ReservedAt); err != nil {
			return nil, fmt.Errorf("scan expired ticket: %w", err)
		}
		t.Status = domain.TicketStatus(status)
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired tickets: %w", rows.Err())
	}
	return tickets, nil
}

// ReleaseExpiredTicket re-checks both the status and the age in the update
// predicate, so a reservation confirmed or refreshed since the candidate scan
// is skipped.
func (r *SweepRepository) ReleaseExpiredTicket(ctx context.Context, raffleID string, number int, cutoff time.Time) (bool, error) {
	const stmt = `
UPDATE tickets
SET status = 'available', buyer_id = NULL, payment_id = NULL, reserved_at = NULL
WHERE raffle_id = $1 AND number = $2 AND status = 'reserved' AND reserved_at <= $3`
	tag, err := exec(ctx, r.pool, stmt, raffleID, number, cutoff)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("release expired ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SweepRepository) SubtractReservedTickets(ctx context.Context, raffleID string, count int) error {
	return subtractReserved(ctx, r.pool, raffleID, count)
}

// RejectOrphanedPayment closes a pending payment none of whose tickets are
// still reserved. The NOT EXISTS guard tolerates a concurrent confirm that
// re-sold part of the set before this runs.
func (r *SweepRepository) RejectOrphanedPayment(ctx context.Context, paymentID string, at time.Time) (bool, error) {
	const stmt = `
UPDATE payments
SET status = 'rejected', decided_at = $2
WHERE id = $1 AND status = 'pending'
AND NOT EXISTS (
	SELECT 1 FROM tickets t
	WHERE t.payment_id = payments.id AND t.status = 'reserved'
)`
	tag, err := exec(ctx, r.pool, stmt, paymentID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("reject orphaned payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
