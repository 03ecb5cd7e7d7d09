package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rrojan/ticket-booking/internal/domain"
)

type CatalogRepository interface {
	ListConcerts(ctx context.Context) ([]domain.Concert, error)
	GetConcert(ctx context.Context, concertID string) (domain.Concert, error)
	ListTiersByConcert(ctx context.Context, concertID string) ([]domain.Tier, error)
}

// AvailabilityCache caches per-concert availability snapshots for the read
// path. Misses and write failures are tolerated; Postgres stays the source
// of truth.
type AvailabilityCache interface {
	GetConcert(ctx context.Context, concertID string) (domain.ConcertAvailability, bool, error)
	SetConcert(ctx context.Context, availability domain.ConcertAvailability) error
	InvalidateConcert(ctx context.Context, concertID string) error
}

type CatalogService struct {
	repo   CatalogRepository
	cache  AvailabilityCache
	logger zerolog.Logger
}

func NewCatalogService(repo CatalogRepository, opts ...CatalogServiceOption) *CatalogService {
	svc := &CatalogService{
		repo:   repo,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CatalogServiceOption func(*CatalogService)

func WithAvailabilityCache(cache AvailabilityCache) CatalogServiceOption {
	return func(s *CatalogService) {
		s.cache = cache
	}
}

func WithCatalogLogger(logger zerolog.Logger) CatalogServiceOption {
	return func(s *CatalogService) {
		s.logger = logger
	}
}

// ConcertListing is a concert with its tiers and a quick has-tickets flag
// for listing pages.
type ConcertListing struct {
	Concert             domain.Concert
	Tiers               []domain.Tier
	HasAvailableTickets bool
}

func (s *CatalogService) ListConcerts(ctx context.Context) ([]ConcertListing, error) {
	concerts, err := s.repo.ListConcerts(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]ConcertListing, 0, len(concerts))
	for _, concert := range concerts {
		tiers, err := s.repo.ListTiersByConcert(ctx, concert.ID)
		if err != nil {
			return nil, err
		}
		hasTickets := false
		for _, t := range tiers {
			if t.AvailableQuantity > 0 {
				hasTickets = true
				break
			}
		}
		listings = append(listings, ConcertListing{
			Concert:             concert,
			Tiers:               tiers,
			HasAvailableTickets: hasTickets,
		})
	}
	return listings, nil
}

func (s *CatalogService) GetConcert(ctx context.Context, concertID string) (ConcertListing, error) {
	if concertID == "" {
		return ConcertListing{}, domain.ErrInvalidID
	}
	concert, err := s.repo.GetConcert(ctx, concertID)
	if err != nil {
		return ConcertListing{}, err
	}
	tiers, err := s.repo.ListTiersByConcert(ctx, concertID)
	if err != nil {
		return ConcertListing{}, err
	}
	hasTickets := false
	for _, t := range tiers {
		if t.AvailableQuantity > 0 {
			hasTickets = true
			break
		}
	}
	return ConcertListing{Concert: concert, Tiers: tiers, HasAvailableTickets: hasTickets}, nil
}

// GetAvailability returns per-tier availability for a concert, served from
// the cache when one is wired and populated.
func (s *CatalogService) GetAvailability(ctx context.Context, concertID string) (domain.ConcertAvailability, error) {
	if concertID == "" {
		return domain.ConcertAvailability{}, domain.ErrInvalidID
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetConcert(ctx, concertID)
		if err != nil {
			s.logger.Warn().Err(err).Str("concert_id", concertID).Msg("availability cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	concert, err := s.repo.GetConcert(ctx, concertID)
	if err != nil {
		return domain.ConcertAvailability{}, err
	}
	tiers, err := s.repo.ListTiersByConcert(ctx, concertID)
	if err != nil {
		return domain.ConcertAvailability{}, err
	}

	availability := domain.ConcertAvailability{
		ConcertID:   concert.ID,
		ConcertName: concert.Name,
		Tiers:       make([]domain.TierAvailability, 0, len(tiers)),
	}
	for _, t := range tiers {
		availability.Tiers = append(availability.Tiers, domain.TierAvailability{
			TierID:            t.ID,
			TierType:          t.TierType,
			Price:             t.Price,
			AvailableQuantity: t.AvailableQuantity,
			TotalQuantity:     t.TotalQuantity,
		})
	}

	if s.cache != nil {
		if err := s.cache.SetConcert(ctx, availability); err != nil {
			s.logger.Warn().Err(err).Str("concert_id", concertID).Msg("availability cache write failed")
		}
	}
	return availability, nil
}
