package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const paymentColumns = `id, raffle_id, buyer_id, ticket_numbers, amount, method, receipt_ref, status, created_at, decided_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var numbers []int32
	var status string
	err := row.Scan(
		&p.ID,
		&p.RaffleID,
		&p.BuyerID,
		&numbers,
		&p.Amount,
		&p.Method,
		&p.ReceiptRef,
		&status,
		&p.CreatedAt,
		&p.DecidedAt,
	)
	if err != nil {
		return domain.Payment{}, err
	}
	p.TicketNumbers = toInts(numbers)
	p.Status = domain.PaymentStatus(status)
	return p, nil
}

func (r *PaymentRepository) getPayment(ctx context.Context, paymentID, suffix string) (domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1` + suffix
	p, err := scanPayment(queryRow(ctx, r.pool, q, paymentID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Payment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	return r.getPayment(ctx, paymentID, "")
}

func (r *PaymentRepository) GetPaymentForUpdate(ctx context.Context, paymentID string) (domain.Payment, error) {
	return r.getPayment(ctx, paymentID, " FOR UPDATE")
}

func (r *PaymentRepository) GetRaffleForUpdate(ctx context.Context, raffleID string) (domain.Raffle, error) {
	return raffleForUpdate(ctx, r.pool, raffleID)
}

// SetPaymentStatus flips the state machine conditionally on the current
// state; a false return means another transition got there first.
func (r *PaymentRepository) SetPaymentStatus(ctx context.Context, paymentID string, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	const stmt = `UPDATE payments SET status = $3, decided_at = $4 WHERE id = $1 AND status = $2`
	tag, err := exec(ctx, r.pool, stmt, paymentID, from, to, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTicketSold sells a ticket only while it is still reserved by this
// payment; a ticket already reclaimed by the sweep is left alone.
func (r *PaymentRepository) MarkTicketSold(ctx context.Context, raffleID string, number int, paymentID string) (bool, error) {
	const stmt = `
UPDATE tickets
SET status = 'sold', reserved_at = NULL
WHERE raffle_id = $1 AND number = $2 AND payment_id = $3 AND status = 'reserved'`
	tag, err := exec(ctx, r.pool, stmt, raffleID, number, paymentID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark ticket sold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseTicket returns a ticket to available, guarded the same way as
// MarkTicketSold.
func (r *PaymentRepository) ReleaseTicket(ctx context.Context, raffleID string, number int, paymentID string) (bool, error) {
	const stmt = `
UPDATE tickets
SET status = 'available', buyer_id = NULL, payment_id = NULL, reserved_at = NULL
WHERE raffle_id = $1 AND number = $2 AND payment_id = $3 AND status = 'reserved'`
	tag, err := exec(ctx, r.pool, stmt, raffleID, number, paymentID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("release ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) ApplyConfirmedCounters(ctx context.Context, raffleID string, count int) error {
	const stmt = `
UPDATE raffles
SET reserved_tickets = GREATEST(reserved_tickets - $2, 0), sold_tickets = sold_tickets + $2
WHERE id = $1`
	if _, err := exec(ctx, r.pool, stmt, raffleID, count); err != nil {
		return fmt.Errorf("apply confirmed counters: %w", err)
	}
	return nil
}

func (r *PaymentRepository) SubtractReservedTickets(ctx context.Context, raffleID string, count int) error {
	return subtractReserved(ctx, r.pool, raffleID, count)
}
