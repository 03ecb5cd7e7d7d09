package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/clock"
	"github.com/rrojan/ticket-booking/internal/domain"
)

type AdminRepository interface {
	CreateConcert(ctx context.Context, concert domain.Concert) error
	CreateTier(ctx context.Context, tier domain.Tier) error
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateConcertInput struct {
	Name        string
	Artist      string
	Date        *time.Time
	Venue       string
	Description string
}

func (s *AdminService) CreateConcert(ctx context.Context, in CreateConcertInput) (domain.Concert, error) {
	if in.Name == "" {
		return domain.Concert{}, domain.ErrConcertNameRequired
	}
	if in.Artist == "" {
		return domain.Concert{}, domain.ErrArtistRequired
	}
	if in.Venue == "" {
		return domain.Concert{}, domain.ErrVenueRequired
	}
	date := s.clock.Now()
	if in.Date != nil {
		date = *in.Date
	}

	concert := domain.Concert{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Artist:      in.Artist,
		Date:        date,
		Venue:       in.Venue,
		Description: in.Description,
	}

	if err := s.repo.CreateConcert(ctx, concert); err != nil {
		return domain.Concert{}, err
	}
	return concert, nil
}

type CreateTierInput struct {
	ConcertID     string
	TierType      domain.TierType
	Price         decimal.Decimal
	TotalQuantity int
}

// CreateTier opens a tier for sale with availability equal to its total.
func (s *AdminService) CreateTier(ctx context.Context, in CreateTierInput) (domain.Tier, error) {
	if in.ConcertID == "" {
		return domain.Tier{}, domain.ErrInvalidID
	}
	switch in.TierType {
	case domain.TierTypeVIP, domain.TierTypeFrontRow, domain.TierTypeGA:
	default:
		return domain.Tier{}, domain.ErrInvalidTierType
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return domain.Tier{}, domain.ErrInvalidPrice
	}
	if in.TotalQuantity <= 0 {
		return domain.Tier{}, domain.ErrInvalidTotalQuantity
	}

	tier := domain.Tier{
		ID:                uuid.NewString(),
		ConcertID:         in.ConcertID,
		TierType:          in.TierType,
		Price:             in.Price,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
	}

	if err := s.repo.CreateTier(ctx, tier); err != nil {
		return domain.Tier{}, err
	}
	return tier, nil
}
