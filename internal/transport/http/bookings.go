package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/app"
	"github.com/rrojan/ticket-booking/internal/domain"
)

// Booker is the minimal interface needed to run a booking attempt.
type Booker interface {
	AttemptBooking(ctx context.Context, in app.AttemptBookingInput) (app.BookingResult, error)
}

// BookingLister is the minimal interface needed to list a user's bookings.
type BookingLister interface {
	ListUserBookings(ctx context.Context, userID string) ([]domain.BookingDetails, error)
}

// HandleCreateBooking returns an HTTP handler for booking attempts.
//
// Status codes: 201 on a newly confirmed booking, 200 when the idempotency
// key matched an existing one, 402 on payment decline (the response still
// carries the FAILED booking record), 404/409/400 per reason code.
func HandleCreateBooking(svc Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, codeUserIDRequired, "user_id is required")
			return
		}
		if req.TierID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "tier_id is required")
			return
		}

		result, err := svc.AttemptBooking(r.Context(), app.AttemptBookingInput{
			UserID:         req.UserID,
			TierID:         req.TierID,
			Quantity:       req.Quantity,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		payload := toBookingPayload(result.Booking)
		switch result.Outcome {
		case app.OutcomeConfirmed:
			writeJSON(w, http.StatusCreated, createBookingResponse{Success: true, Booking: &payload})
		case app.OutcomeExisting:
			success := result.Booking.Status != domain.BookingStatusFailed
			writeJSON(w, http.StatusOK, createBookingResponse{Success: success, Booking: &payload})
		case app.OutcomeDeclined:
			writeJSON(w, http.StatusPaymentRequired, createBookingResponse{
				Success: false,
				Booking: &payload,
				Code:    codePaymentDeclined,
			})
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
	}
}

// HandleUserBookings returns an HTTP handler for GET /bookings/{userId}.
func HandleUserBookings(svc BookingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		userID, ok := parseUserBookingsPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		bookings, err := svc.ListUserBookings(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]bookingDetailsPayload, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, toBookingDetailsPayload(b))
		}
		writeJSON(w, http.StatusOK, userBookingsResponse{
			Success: true,
			Data:    out,
			Count:   len(out),
		})
	}
}

func parseUserBookingsPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "bookings" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createBookingRequest struct {
	UserID         string `json:"user_id"`
	TierID         string `json:"tier_id"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotency_key"`
}

type createBookingResponse struct {
	Success bool            `json:"success"`
	Booking *bookingPayload `json:"booking"`
	Code    string          `json:"code,omitempty"`
}

type bookingPayload struct {
	ID            string          `json:"id"`
	TierID        string          `json:"tier_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toBookingPayload(b domain.Booking) bookingPayload {
	return bookingPayload{
		ID:            b.ID,
		TierID:        b.TierID,
		Quantity:      b.Quantity,
		UnitPrice:     b.UnitPrice,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
	}
}

type userBookingsResponse struct {
	Success bool                    `json:"success"`
	Data    []bookingDetailsPayload `json:"data"`
	Count   int                     `json:"count"`
}

type bookingDetailsPayload struct {
	bookingPayload
	TierType    string    `json:"tier_type"`
	ConcertName string    `json:"concert_name"`
	Artist      string    `json:"artist"`
	ConcertDate time.Time `json:"concert_date"`
	Venue       string    `json:"venue"`
}

func toBookingDetailsPayload(d domain.BookingDetails) bookingDetailsPayload {
	return bookingDetailsPayload{
		bookingPayload: toBookingPayload(d.Booking),
		TierType:       string(d.TierType),
		ConcertName:    d.ConcertName,
		Artist:         d.Artist,
		ConcertDate:    d.ConcertDate,
		Venue:          d.Venue,
	}
}
