package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Booking is the durable record of one booking attempt and its terminal
// outcome. Exactly one booking exists per idempotency key; bookings are
// never deleted and status transitions only move forward from PENDING.
type Booking struct {
	ID             string
	UserID         string
	TierID         string
	Quantity       int
	UnitPrice      decimal.Decimal
	TotalPrice     decimal.Decimal
	Status         BookingStatus
	PaymentStatus  PaymentStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingDetails is a booking joined with its tier and concert, used by the
// user history read path.
type BookingDetails struct {
	Booking
	TierType    TierType
	TierPrice   decimal.Decimal
	ConcertName string
	Artist      string
	ConcertDate time.Time
	Venue       string
}
