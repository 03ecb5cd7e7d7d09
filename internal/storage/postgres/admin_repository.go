package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rrojan/ticket-booking/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateConcert(ctx context.Context, concert domain.Concert) error {
	const stmt = `
INSERT INTO concerts (id, name, artist, date, venue, description)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`

	_, err := r.pool.Exec(ctx, stmt,
		concert.ID, concert.Name, concert.Artist, concert.Date, concert.Venue, concert.Description)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create concert: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateTier(ctx context.Context, tier domain.Tier) error {
	const stmt = `
INSERT INTO ticket_tiers (id, concert_id, tier_type, price, total_quantity, available_quantity)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, stmt,
		tier.ID, tier.ConcertID, tier.TierType, tier.Price, tier.TotalQuantity, tier.AvailableQuantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrTierAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrConcertNotFound
		}
		return fmt.Errorf("create tier: %w", err)
	}
	return nil
}
