package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TierType string

const (
	TierTypeVIP      TierType = "VIP"
	TierTypeFrontRow TierType = "FRONT_ROW"
	TierTypeGA       TierType = "GA"
)

// Tier is a sellable inventory bucket for one concert: a fixed unit price,
// an immutable total and a decrementable availability.
//
// AvailableQuantity is mutated only inside the booking transaction, under a
// row lock, and always satisfies 0 <= available <= total.
type Tier struct {
	ID                string
	ConcertID         string
	TierType          TierType
	Price             decimal.Decimal
	TotalQuantity     int
	AvailableQuantity int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
