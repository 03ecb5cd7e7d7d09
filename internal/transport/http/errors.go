package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rrojan/ticket-booking/internal/domain"
)

// Stable reason codes callers branch on. These never change meaning.
const (
	codeMethodNotAllowed       = "method_not_allowed"
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeInvalidID              = "invalid_id"
	codeInvalidQuantity        = "invalid_quantity"
	codeIdempotencyRequired    = "idempotency_key_required"
	codeUserIDRequired         = "user_id_required"
	codeConcertNotFound        = "concert_not_found"
	codeTierNotFound           = "tier_not_found"
	codeTierAlreadyExists      = "tier_already_exists"
	codeInsufficientInventory  = "insufficient_inventory"
	codePaymentDeclined        = "payment_declined"
	codeConcurrentConflict     = "concurrent_conflict"
	codeBookingNotFound        = "booking_not_found"
	codeConcertNameRequired    = "concert_name_required"
	codeArtistRequired         = "artist_required"
	codeVenueRequired          = "venue_required"
	codeInvalidTierType        = "invalid_tier_type"
	codeInvalidPrice           = "invalid_price"
	codeInvalidTotalQuantity   = "invalid_total_quantity"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Requested/Available are set only for insufficient_inventory.
	Requested *int `json:"requested,omitempty"`
	Available *int `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeDomainError maps engine failures to status codes and reason codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientInventoryError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     insufficient.Error(),
			Code:      codeInsufficientInventory,
			Requested: &insufficient.Requested,
			Available: &insufficient.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrConcertNotFound):
		writeError(w, http.StatusNotFound, codeConcertNotFound, err.Error())
	case errors.Is(err, domain.ErrTierNotFound):
		writeError(w, http.StatusNotFound, codeTierNotFound, err.Error())
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, codeInsufficientInventory, err.Error())
	case errors.Is(err, domain.ErrConcurrentConflict):
		writeError(w, http.StatusConflict, codeConcurrentConflict, err.Error())
	case errors.Is(err, domain.ErrTierAlreadyExists):
		writeError(w, http.StatusConflict, codeTierAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrConcertNameRequired):
		writeError(w, http.StatusBadRequest, codeConcertNameRequired, err.Error())
	case errors.Is(err, domain.ErrArtistRequired):
		writeError(w, http.StatusBadRequest, codeArtistRequired, err.Error())
	case errors.Is(err, domain.ErrVenueRequired):
		writeError(w, http.StatusBadRequest, codeVenueRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidTierType):
		writeError(w, http.StatusBadRequest, codeInvalidTierType, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidTotalQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidTotalQuantity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
