package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

type RaffleRepository struct {
	pool *pgxpool.Pool
}

func NewRaffleRepository(pool *pgxpool.Pool) *RaffleRepository {
	return &RaffleRepository{pool: pool}
}

func (r *RaffleRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const raffleColumns = `id, name, total_tickets, sold_tickets, reserved_tickets, ticket_price, active, created_at`

func scanRaffle(row pgx.Row) (domain.Raffle, error) {
	var raffle domain.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.Name,
		&raffle.TotalTickets,
		&raffle.SoldTickets,
		&raffle.ReservedTickets,
		&raffle.TicketPrice,
		&raffle.Active,
		&raffle.CreatedAt,
	)
	return raffle, err
}

// raffleForUpdate locks the raffle row for the remainder of the transaction.
// Every write path locks the raffle before any payment or ticket row.
func raffleForUpdate(ctx context.Context, pool *pgxpool.Pool, raffleID string) (domain.Raffle, error) {
	const q = `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`
	raffle, err := scanRaffle(queryRow(ctx, pool, q, raffleID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Raffle{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Raffle{}, domain.ErrRaffleNotFound
		}
		return domain.Raffle{}, fmt.Errorf("get raffle: %w", err)
	}
	return raffle, nil
}

func subtractReserved(ctx context.Context, pool *pgxpool.Pool, raffleID string, count int) error {
	const stmt = `UPDATE raffles SET reserved_tickets = GREATEST(reserved_tickets - $2, 0) WHERE id = $1`
	if _, err := exec(ctx, pool, stmt, raffleID, count); err != nil {
		return fmt.Errorf("subtract reserved: %w", err)
	}
	return nil
}

func (r *RaffleRepository) CreateRaffle(ctx context.Context, raffle domain.Raffle) error {
	const stmt = `
INSERT INTO raffles (id, name, total_tickets, sold_tickets, reserved_tickets, ticket_price, active, created_at)
VALUES ($1, $2, $3, 0, 0, $4, FALSE, $5)`
	_, err := exec(ctx, r.pool, stmt, raffle.ID, raffle.Name, raffle.TotalTickets, raffle.TicketPrice, raffle.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create raffle: %w", err)
	}
	return nil
}

func (r *RaffleRepository) CreateTickets(ctx context.Context, raffleID string, total int) error {
	const stmt = `
INSERT INTO tickets (raffle_id, number, status)
SELECT $1, gs, 'available' FROM generate_series(1, $2) AS gs`
	if _, err := exec(ctx, r.pool, stmt, raffleID, total); err != nil {
		return fmt.Errorf("create tickets: %w", err)
	}
	return nil
}

func (r *RaffleRepository) GetActiveRaffle(ctx context.Context) (domain.Raffle, error) {
	const q = `SELECT ` + raffleColumns + ` FROM raffles WHERE active LIMIT 1`
	raffle, err := scanRaffle(queryRow(ctx, r.pool, q))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Raffle{}, domain.ErrRaffleNotActive
		}
		return domain.Raffle{}, fmt.Errorf("get active raffle: %w", err)
	}
	return raffle, nil
}

func (r *RaffleRepository) DeactivateActiveRaffle(ctx context.Context) error {
	const stmt = `UPDATE raffles SET active = FALSE WHERE active`
	if _, err := exec(ctx, r.pool, stmt); err != nil {
		return fmt.Errorf("deactivate raffle: %w", err)
	}
	return nil
}

func (r *RaffleRepository) ActivateRaffle(ctx context.Context, raffleID string) error {
	const stmt = `UPDATE raffles SET active = TRUE WHERE id = $1`
	tag, err := exec(ctx, r.pool, stmt, raffleID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			// A concurrent activation won the partial index race.
			return domain.ErrInvalidStateTransition
		}
		return fmt.Errorf("activate raffle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRaffleNotFound
	}
	return nil
}

func (r *RaffleRepository) ListTickets(ctx context.Context, raffleID string) ([]domain.Ticket, error) {
	const q = `
SELECT raffle_id, number, status, buyer_id, payment_id, reserved_at
FROM tickets
WHERE raffle_id = $1
ORDER BY number ASC`
	rows, err := query(ctx, r.pool, q, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var status string
		if err := rows.Scan(&t.RaffleID, &t.Number, &status, &t.BuyerID, &t.PaymentID, &t.ReservedAt); err != nil {
			if isInvalidUUID(err) {
				return nil, domain.ErrInvalidID
			}
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.Status = domain.TicketStatus(status)
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}

func (r *RaffleRepository) ListPendingPayments(ctx context.Context, raffleID string) ([]domain.Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE status = 'pending'
ORDER BY created_at ASC`
	args := []any{}
	if raffleID != "" {
		q = `
SELECT ` + paymentColumns + `
FROM payments
WHERE status = 'pending' AND raffle_id = $1
ORDER BY created_at ASC`
		args = append(args, raffleID)
	}

	rows, err := query(ctx, r.pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			if isInvalidUUID(err) {
				return nil, domain.ErrInvalidID
			}
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate payments: %w", rows.Err())
	}
	return payments, nil
}
