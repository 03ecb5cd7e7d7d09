package domain

import "github.com/shopspring/decimal"

// TierAvailability is the read-path snapshot of one tier's inventory. It is
// advisory only; the booking transaction re-reads under lock.
type TierAvailability struct {
	TierID            string
	TierType          TierType
	Price             decimal.Decimal
	AvailableQuantity int
	TotalQuantity     int
}

// ConcertAvailability groups per-tier availability for one concert.
type ConcertAvailability struct {
	ConcertID   string
	ConcertName string
	Tiers       []TierAvailability
}
