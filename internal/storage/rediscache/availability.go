// Package rediscache holds a cache-aside layer for the availability read
// path. Entries are short-lived and dropped after a booking commits, so a
// stale read is bounded by the TTL; the booking transaction never consults
// the cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/domain"
)

const availabilityKeyPrefix = "availability:concert:"

const defaultTTL = 5 * time.Second

type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, opts ...Option) *AvailabilityCache {
	c := &AvailabilityCache{
		client: client,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*AvailabilityCache)

func WithTTL(d time.Duration) Option {
	return func(c *AvailabilityCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func (c *AvailabilityCache) GetConcert(ctx context.Context, concertID string) (domain.ConcertAvailability, bool, error) {
	raw, err := c.client.Get(ctx, availabilityKeyPrefix+concertID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ConcertAvailability{}, false, nil
		}
		return domain.ConcertAvailability{}, false, fmt.Errorf("cache get: %w", err)
	}

	var entry cachedAvailability
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is treated as a miss and overwritten.
		return domain.ConcertAvailability{}, false, nil
	}
	return entry.toDomain(), true, nil
}

func (c *AvailabilityCache) SetConcert(ctx context.Context, availability domain.ConcertAvailability) error {
	raw, err := json.Marshal(toCached(availability))
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, availabilityKeyPrefix+availability.ConcertID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// cachedAvailability is the stored shape of an entry. Domain types carry no
// serialization tags; the cache owns its own wire format.
type cachedAvailability struct {
	ConcertID   string       `json:"concert_id"`
	ConcertName string       `json:"concert_name"`
	Tiers       []cachedTier `json:"tiers"`
}

type cachedTier struct {
	TierID            string          `json:"tier_id"`
	TierType          string          `json:"tier_type"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	TotalQuantity     int             `json:"total_quantity"`
}

func toCached(a domain.ConcertAvailability) cachedAvailability {
	entry := cachedAvailability{
		ConcertID:   a.ConcertID,
		ConcertName: a.ConcertName,
		Tiers:       make([]cachedTier, 0, len(a.Tiers)),
	}
	for _, t := range a.Tiers {
		entry.Tiers = append(entry.Tiers, cachedTier{
			TierID:            t.TierID,
			TierType:          string(t.TierType),
			Price:             t.Price,
			AvailableQuantity: t.AvailableQuantity,
			TotalQuantity:     t.TotalQuantity,
		})
	}
	return entry
}

func (e cachedAvailability) toDomain() domain.ConcertAvailability {
	out := domain.ConcertAvailability{
		ConcertID:   e.ConcertID,
		ConcertName: e.ConcertName,
		Tiers:       make([]domain.TierAvailability, 0, len(e.Tiers)),
	}
	for _, t := range e.Tiers {
		out.Tiers = append(out.Tiers, domain.TierAvailability{
			TierID:            t.TierID,
			TierType:          domain.TierType(t.TierType),
			Price:             t.Price,
			AvailableQuantity: t.AvailableQuantity,
			TotalQuantity:     t.TotalQuantity,
		})
	}
	return out
}

func (c *AvailabilityCache) InvalidateConcert(ctx context.Context, concertID string) error {
	if err := c.client.Del(ctx, availabilityKeyPrefix+concertID).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
