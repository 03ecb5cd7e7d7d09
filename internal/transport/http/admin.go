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

// Admin is the catalog-management surface.
type Admin interface {
	CreateConcert(ctx context.Context, in app.CreateConcertInput) (domain.Concert, error)
	CreateTier(ctx context.Context, in app.CreateTierInput) (domain.Tier, error)
}

// HandleAdminConcerts serves POST /admin/concerts and GET /admin/concerts.
// The GET view is the same listing the public catalog serves.
func HandleAdminConcerts(svc Admin, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			HandleListConcerts(catalog)(w, r)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createConcertRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		concert, err := svc.CreateConcert(r.Context(), app.CreateConcertInput{
			Name:        req.Name,
			Artist:      req.Artist,
			Date:        req.Date,
			Venue:       req.Venue,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createConcertResponse{
			ID:     concert.ID,
			Name:   concert.Name,
			Artist: concert.Artist,
			Date:   concert.Date,
			Venue:  concert.Venue,
		})
	}
}

// HandleAdminTiers returns an HTTP handler for POST /admin/concerts/{id}/tiers.
func HandleAdminTiers(svc Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		concertID, ok := parseAdminTiersPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req createTierRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPrice, "invalid price")
			return
		}

		tier, err := svc.CreateTier(r.Context(), app.CreateTierInput{
			ConcertID:     concertID,
			TierType:      domain.TierType(req.TierType),
			Price:         price,
			TotalQuantity: req.TotalQuantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createTierResponse{
			ID:                tier.ID,
			ConcertID:         tier.ConcertID,
			TierType:          string(tier.TierType),
			Price:             tier.Price,
			TotalQuantity:     tier.TotalQuantity,
			AvailableQuantity: tier.AvailableQuantity,
		})
	}
}

func parseAdminTiersPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "admin" || parts[1] != "concerts" || parts[3] != "tiers" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createConcertRequest struct {
	Name        string     `json:"name"`
	Artist      string     `json:"artist"`
	Date        *time.Time `json:"date"`
	Venue       string     `json:"venue"`
	Description string     `json:"description"`
}

type createConcertResponse struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Artist string    `json:"artist"`
	Date   time.Time `json:"date"`
	Venue  string    `json:"venue"`
}

type createTierRequest struct {
	TierType      string `json:"tier_type"`
	Price         string `json:"price"`
	TotalQuantity int    `json:"total_quantity"`
}

type createTierResponse struct {
	ID                string          `json:"id"`
	ConcertID         string          `json:"concert_id"`
	TierType          string          `json:"tier_type"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"total_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
}
