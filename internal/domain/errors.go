package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConcertNotFound        = errors.New("concert not found")
	ErrTierNotFound           = errors.New("ticket tier not found")
	ErrTierAlreadyExists      = errors.New("tier already exists for concert")
	ErrInsufficientInventory  = errors.New("insufficient inventory")
	ErrConcurrentConflict     = errors.New("concurrent booking conflict")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingFinalized       = errors.New("booking already finalized")
	ErrInventoryInvariant     = errors.New("inventory invariant violated")
	ErrInvalidID              = errors.New("invalid id")
	ErrConcertNameRequired    = errors.New("concert name is required")
	ErrArtistRequired         = errors.New("artist is required")
	ErrVenueRequired          = errors.New("venue is required")
	ErrInvalidTierType        = errors.New("invalid tier type")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrInvalidTotalQuantity   = errors.New("invalid total quantity")
)

// InsufficientInventoryError carries the requested and available quantities
// observed under the row lock. It matches ErrInsufficientInventory via
// errors.Is.
type InsufficientInventoryError struct {
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}
