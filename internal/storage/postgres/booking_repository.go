package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetTierForUpdate reads the tier under an exclusive row lock. The lock is
// held until the surrounding transaction commits or rolls back, so every
// competing attempt against the same tier queues behind it.
func (r *BookingRepository) GetTierForUpdate(ctx context.Context, tierID string) (domain.Tier, error) {
	const query = `
SELECT id, concert_id, tier_type, price::text, total_quantity, available_quantity
FROM ticket_tiers
WHERE id = $1
FOR UPDATE`

	var t domain.Tier
	var priceText string
	err := r.queryRow(ctx, query, tierID).
		Scan(&t.ID, &t.ConcertID, &t.TierType, &priceText, &t.TotalQuantity, &t.AvailableQuantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Tier{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Tier{}, domain.ErrTierNotFound
		}
		return domain.Tier{}, fmt.Errorf("get tier for update: %w", err)
	}
	t.Price, err = decimal.NewFromString(priceText)
	if err != nil {
		return domain.Tier{}, fmt.Errorf("parse tier price: %w", err)
	}
	return t, nil
}

func (r *BookingRepository) FindBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	const query = `
SELECT id, user_id, tier_id, quantity, unit_price::text, total_price::text,
       status, payment_status, idempotency_key, created_at, updated_at
FROM bookings
WHERE idempotency_key = $1`

	b, err := r.scanBooking(r.queryRow(ctx, query, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) getBooking(ctx context.Context, id string) (*domain.Booking, error) {
	const query = `
SELECT id, user_id, tier_id, quantity, unit_price::text, total_price::text,
       status, payment_status, idempotency_key, created_at, updated_at
FROM bookings
WHERE id = $1`

	b, err := r.scanBooking(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// CreateBooking inserts a booking row. An idempotency-key collision means a
// concurrent attempt with the same key committed between the caller's lookup
// and this insert; it surfaces as ErrConcurrentConflict and the caller
// re-reads by key. ON CONFLICT DO NOTHING keeps the transaction healthy so
// that re-read can still run — a raised unique violation would abort it.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, user_id, tier_id, quantity, unit_price, total_price,
                      status, payment_status, idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (idempotency_key) DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		booking.ID,
		booking.UserID,
		booking.TierID,
		booking.Quantity,
		booking.UnitPrice,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
		booking.IdempotencyKey,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTierNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentConflict
	}
	return nil
}

// SetTierAvailability writes an absolute availability value. The CHECK
// constraints on ticket_tiers are a second line of defense behind the row
// lock; tripping one surfaces as ErrInventoryInvariant.
func (r *BookingRepository) SetTierAvailability(ctx context.Context, tierID string, available int) error {
	const stmt = `
UPDATE ticket_tiers
SET available_quantity = $2, updated_at = NOW()
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, tierID, available)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInventoryInvariant
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set tier availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTierNotFound
	}
	return nil
}

// FinalizeBooking moves a PENDING booking to its terminal status. Bookings
// that already left PENDING are never rewritten.
func (r *BookingRepository) FinalizeBooking(ctx context.Context, bookingID string, status domain.BookingStatus, paymentStatus domain.PaymentStatus, updatedAt time.Time) error {
	const stmt = `
UPDATE bookings
SET status = $2, payment_status = $3, updated_at = $4
WHERE id = $1 AND status = 'PENDING'`

	tag, err := r.exec(ctx, stmt, bookingID, status, paymentStatus, updatedAt)
	if err != nil {
		return fmt.Errorf("finalize booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingFinalized
	}
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.BookingDetails, error) {
	const query = `
SELECT b.id, b.user_id, b.tier_id, b.quantity, b.unit_price::text, b.total_price::text,
       b.status, b.payment_status, b.idempotency_key, b.created_at, b.updated_at,
       t.tier_type, t.price::text,
       c.name, c.artist, c.date, c.venue
FROM bookings b
JOIN ticket_tiers t ON t.id = b.tier_id
JOIN concerts c ON c.id = t.concert_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.BookingDetails
	for rows.Next() {
		var d domain.BookingDetails
		var unitPrice, totalPrice, tierPrice string
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.TierID, &d.Quantity, &unitPrice, &totalPrice,
			&d.Status, &d.PaymentStatus, &d.IdempotencyKey, &d.CreatedAt, &d.UpdatedAt,
			&d.TierType, &tierPrice,
			&d.ConcertName, &d.Artist, &d.ConcertDate, &d.Venue,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if d.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		if d.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return nil, fmt.Errorf("parse total price: %w", err)
		}
		if d.TierPrice, err = decimal.NewFromString(tierPrice); err != nil {
			return nil, fmt.Errorf("parse tier price: %w", err)
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return out, nil
}

func (r *BookingRepository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var unitPrice, totalPrice string
	err := row.Scan(
		&b.ID, &b.UserID, &b.TierID, &b.Quantity, &unitPrice, &totalPrice,
		&b.Status, &b.PaymentStatus, &b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}
	if b.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return nil, fmt.Errorf("parse total price: %w", err)
	}
	return &b, nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
