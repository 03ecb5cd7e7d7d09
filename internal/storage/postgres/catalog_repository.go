package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/domain"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListConcerts(ctx context.Context) ([]domain.Concert, error) {
	const query = `
SELECT id, name, artist, date, venue, COALESCE(description, ''), created_at
FROM concerts
ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list concerts: %w", err)
	}
	defer rows.Close()

	var concerts []domain.Concert
	for rows.Next() {
		var c domain.Concert
		if err := rows.Scan(&c.ID, &c.Name, &c.Artist, &c.Date, &c.Venue, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan concert: %w", err)
		}
		concerts = append(concerts, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate concerts: %w", rows.Err())
	}
	return concerts, nil
}

func (r *CatalogRepository) GetConcert(ctx context.Context, concertID string) (domain.Concert, error) {
	const query = `
SELECT id, name, artist, date, venue, COALESCE(description, ''), created_at
FROM concerts
WHERE id = $1`

	var c domain.Concert
	err := r.pool.QueryRow(ctx, query, concertID).
		Scan(&c.ID, &c.Name, &c.Artist, &c.Date, &c.Venue, &c.Description, &c.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Concert{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Concert{}, domain.ErrConcertNotFound
		}
		return domain.Concert{}, fmt.Errorf("get concert: %w", err)
	}
	return c, nil
}

// ListTiersByConcert returns a concert's tiers ordered by price, cheapest
// first. The availability read is unlocked and only advisory; the booking
// transaction re-reads under lock.
func (r *CatalogRepository) ListTiersByConcert(ctx context.Context, concertID string) ([]domain.Tier, error) {
	const query = `
SELECT id, concert_id, tier_type, price::text, total_quantity, available_quantity, created_at, updated_at
FROM ticket_tiers
WHERE concert_id = $1
ORDER BY price ASC`

	rows, err := r.pool.Query(ctx, query, concertID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []domain.Tier
	for rows.Next() {
		var t domain.Tier
		var priceText string
		if err := rows.Scan(&t.ID, &t.ConcertID, &t.TierType, &priceText, &t.TotalQuantity, &t.AvailableQuantity, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		if t.Price, err = decimal.NewFromString(priceText); err != nil {
			return nil, fmt.Errorf("parse tier price: %w", err)
		}
		tiers = append(tiers, t)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate tiers: %w", rows.Err())
	}
	return tiers, nil
}
