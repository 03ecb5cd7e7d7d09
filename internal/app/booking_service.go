package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/clock"
	"github.com/rrojan/ticket-booking/internal/domain"
	"github.com/rrojan/ticket-booking/internal/payment"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	GetTierForUpdate(ctx context.Context, tierID string) (domain.Tier, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	SetTierAvailability(ctx context.Context, tierID string, available int) error
	FinalizeBooking(ctx context.Context, bookingID string, status domain.BookingStatus, paymentStatus domain.PaymentStatus, updatedAt time.Time) error
	ListByUser(ctx context.Context, userID string) ([]domain.BookingDetails, error)
}

// AvailabilityInvalidator drops cached availability after a booking commits.
type AvailabilityInvalidator interface {
	InvalidateConcert(ctx context.Context, concertID string) error
}

type BookingOutcome string

const (
	// OutcomeConfirmed: payment authorized, inventory consumed.
	OutcomeConfirmed BookingOutcome = "confirmed"
	// OutcomeDeclined: payment declined, inventory restored, FAILED booking kept.
	OutcomeDeclined BookingOutcome = "declined"
	// OutcomeExisting: a booking with this idempotency key already existed.
	OutcomeExisting BookingOutcome = "existing"
)

const defaultMaxQuantity = 10

type BookingService struct {
	repo        BookingRepository
	gateway     payment.Gateway
	clock       clock.Clock
	logger      zerolog.Logger
	cache       AvailabilityInvalidator
	maxQuantity int
}

func NewBookingService(repo BookingRepository, gateway payment.Gateway, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:        repo,
		gateway:     gateway,
		clock:       clk,
		logger:      zerolog.Nop(),
		maxQuantity: defaultMaxQuantity,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithMaxQuantity overrides the per-request ticket cap.
func WithMaxQuantity(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.maxQuantity = n
		}
	}
}

func WithLogger(logger zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

// WithAvailabilityInvalidator wires a cache to be dropped after an attempt
// that consumed inventory commits.
func WithAvailabilityInvalidator(inv AvailabilityInvalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = inv
	}
}

type AttemptBookingInput struct {
	UserID         string
	TierID         string
	Quantity       int
	IdempotencyKey string
}

type BookingResult struct {
	Booking domain.Booking
	Outcome BookingOutcome
}

// AttemptBooking runs one booking attempt as a single transaction: look up
// the idempotency key, lock the tier row, validate availability, insert a
// PENDING booking, decrement inventory, authorize payment and reconcile.
//
// A payment decline is a committed outcome, not an abort: the decrement is
// reversed to the value read under the lock and the booking survives as a
// permanent FAILED record.
func (s *BookingService) AttemptBooking(ctx context.Context, in AttemptBookingInput) (BookingResult, error) {
	if in.IdempotencyKey == "" {
		return BookingResult{}, domain.ErrIdempotencyKeyRequired
	}
	if in.Quantity <= 0 || in.Quantity > s.maxQuantity {
		return BookingResult{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	var result BookingResult
	var concertID string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindBookingByIdempotencyKey(txCtx, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			result = BookingResult{Booking: *existing, Outcome: OutcomeExisting}
			return nil
		}

		tier, err := s.repo.GetTierForUpdate(txCtx, in.TierID)
		if err != nil {
			return err
		}
		concertID = tier.ConcertID

		if in.Quantity > tier.AvailableQuantity {
			return &domain.InsufficientInventoryError{
				Requested: in.Quantity,
				Available: tier.AvailableQuantity,
			}
		}

		booking := domain.Booking{
			ID:             uuid.NewString(),
			UserID:         in.UserID,
			TierID:         tier.ID,
			Quantity:       in.Quantity,
			UnitPrice:      tier.Price,
			TotalPrice:     tier.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
			Status:         domain.BookingStatusPending,
			PaymentStatus:  domain.PaymentStatusPending,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			// A concurrent attempt with the same key slipped past the
			// lookup above. Re-read and hand back its booking.
			if errors.Is(err, domain.ErrConcurrentConflict) {
				existing, lookupErr := s.repo.FindBookingByIdempotencyKey(txCtx, in.IdempotencyKey)
				if lookupErr != nil {
					return lookupErr
				}
				if existing != nil {
					result = BookingResult{Booking: *existing, Outcome: OutcomeExisting}
					return nil
				}
			}
			return err
		}

		if err := s.repo.SetTierAvailability(txCtx, tier.ID, tier.AvailableQuantity-in.Quantity); err != nil {
			return err
		}

		approved, err := s.gateway.Authorize(txCtx, booking.TotalPrice)
		if err != nil {
			return fmt.Errorf("authorize payment: %w", err)
		}

		// Once the payment outcome is known the reconciliation writes must
		// run as a pair; a caller timeout no longer interrupts them.
		finCtx := context.WithoutCancel(txCtx)
		finalizedAt := s.clock.Now()

		if !approved {
			if err := s.repo.SetTierAvailability(finCtx, tier.ID, tier.AvailableQuantity); err != nil {
				return err
			}
			if err := s.repo.FinalizeBooking(finCtx, booking.ID, domain.BookingStatusFailed, domain.PaymentStatusFailed, finalizedAt); err != nil {
				return err
			}
			booking.Status = domain.BookingStatusFailed
			booking.PaymentStatus = domain.PaymentStatusFailed
			booking.UpdatedAt = finalizedAt
			result = BookingResult{Booking: booking, Outcome: OutcomeDeclined}
			return nil
		}

		if err := s.repo.FinalizeBooking(finCtx, booking.ID, domain.BookingStatusConfirmed, domain.PaymentStatusSuccess, finalizedAt); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusConfirmed
		booking.PaymentStatus = domain.PaymentStatusSuccess
		booking.UpdatedAt = finalizedAt
		result = BookingResult{Booking: booking, Outcome: OutcomeConfirmed}
		return nil
	})
	if err != nil {
		return BookingResult{}, err
	}

	s.logger.Debug().
		Str("booking_id", result.Booking.ID).
		Str("tier_id", in.TierID).
		Int("quantity", in.Quantity).
		Str("outcome", string(result.Outcome)).
		Msg("booking attempt finished")

	if s.cache != nil && result.Outcome == OutcomeConfirmed && concertID != "" {
		if err := s.cache.InvalidateConcert(ctx, concertID); err != nil {
			s.logger.Warn().Err(err).Str("concert_id", concertID).Msg("availability cache invalidation failed")
		}
	}

	return result, nil
}

// ListUserBookings returns the caller's booking history, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.BookingDetails, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByUser(ctx, userID)
}
