package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error) {
	return raffleForUpdate(ctx, r.pool, raffleID)
}

// ClaimTicket is the core concurrency primitive: the update succeeds only if
// the row is still available, so at most one caller wins each number.
func (r *ReservationRepository) ClaimTicket(ctx context.Context, raffleID string, number int, buyerID, paymentID string, at time.Time) (bool, error) {
	const stmt = `
UPDATE tickets
SET status = 'reserved', buyer_id = $3, payment_id = $4, reserved_at = $5
WHERE raffle_id = $1 AND number = $2 AND status = 'available'`
	tag, err := exec(ctx, r.pool, stmt, raffleID, number, buyerID, paymentID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("claim ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReservationRepository) AddReservedTickets(ctx context.Context, raffleID string, delta int) error {
	const stmt = `UPDATE raffles SET reserved_tickets = reserved_tickets + $2 WHERE id = $1`
	if _, err := exec(ctx, r.pool, stmt, raffleID, delta); err != nil {
		return fmt.Errorf("add reserved: %w", err)
	}
	return nil
}

func (r *ReservationRepository) CreatePayment(ctx context.Context, payment domain.Payment) error {
	const stmt = `
INSERT INTO payments (id, raffle_id, buyer_id, ticket_numbers, amount, method, receipt_ref, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := exec(ctx, r.pool, stmt,
		payment.ID,
		payment.RaffleID,
		payment.BuyerID,
		toInt32s(payment.TicketNumbers),
		payment.Amount,
		payment.Method,
		payment.ReceiptRef,
		payment.Status,
		payment.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func toInt32s(numbers []int) []int32 {
	out := make([]int32, len(numbers))
	for i, n := range numbers {
		out[i] = int32(n)
	}
	return out
}

func toInts(numbers []int32) []int {
	out := make([]int, len(numbers))
	for i, n := range numbers {
		out[i] = int(n)
	}
	return out
}
