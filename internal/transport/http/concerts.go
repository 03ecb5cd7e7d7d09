package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/app"
	"github.com/rrojan/ticket-booking/internal/domain"
)

// Catalog is the read surface for concert listings and availability.
type Catalog interface {
	ListConcerts(ctx context.Context) ([]app.ConcertListing, error)
	GetConcert(ctx context.Context, concertID string) (app.ConcertListing, error)
	GetAvailability(ctx context.Context, concertID string) (domain.ConcertAvailability, error)
}

// HandleListConcerts returns an HTTP handler for GET /concerts.
func HandleListConcerts(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		listings, err := svc.ListConcerts(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]concertPayload, 0, len(listings))
		for _, l := range listings {
			out = append(out, toConcertPayload(l))
		}
		writeJSON(w, http.StatusOK, concertsResponse{Success: true, Data: out, Count: len(out)})
	}
}

// HandleConcert serves GET /concerts/{id} and GET /concerts/{id}/availability.
func HandleConcert(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		concertID, wantAvailability, ok := parseConcertPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if wantAvailability {
			availability, err := svc.GetAvailability(r.Context(), concertID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, availabilityResponse{Success: true, Data: toAvailabilityPayload(availability)})
			return
		}

		listing, err := svc.GetConcert(r.Context(), concertID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, concertResponse{Success: true, Data: toConcertPayload(listing)})
	}
}

func parseConcertPath(path string) (concertID string, wantAvailability, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "concerts" && parts[1] != "":
		return parts[1], false, true
	case len(parts) == 3 && parts[0] == "concerts" && parts[1] != "" && parts[2] == "availability":
		return parts[1], true, true
	default:
		return "", false, false
	}
}

type concertsResponse struct {
	Success bool             `json:"success"`
	Data    []concertPayload `json:"data"`
	Count   int              `json:"count"`
}

type concertResponse struct {
	Success bool           `json:"success"`
	Data    concertPayload `json:"data"`
}

type availabilityResponse struct {
	Success bool                `json:"success"`
	Data    availabilityPayload `json:"data"`
}

type availabilityPayload struct {
	ConcertID   string                    `json:"concert_id"`
	ConcertName string                    `json:"concert_name"`
	Tiers       []tierAvailabilityPayload `json:"tiers"`
}

type tierAvailabilityPayload struct {
	TierID            string          `json:"tier_id"`
	TierType          string          `json:"tier_type"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	TotalQuantity     int             `json:"total_quantity"`
}

func toAvailabilityPayload(a domain.ConcertAvailability) availabilityPayload {
	tiers := make([]tierAvailabilityPayload, 0, len(a.Tiers))
	for _, t := range a.Tiers {
		tiers = append(tiers, tierAvailabilityPayload{
			TierID:            t.TierID,
			TierType:          string(t.TierType),
			Price:             t.Price,
			AvailableQuantity: t.AvailableQuantity,
			TotalQuantity:     t.TotalQuantity,
		})
	}
	return availabilityPayload{
		ConcertID:   a.ConcertID,
		ConcertName: a.ConcertName,
		Tiers:       tiers,
	}
}

type concertPayload struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Artist              string        `json:"artist"`
	Date                time.Time     `json:"date"`
	Venue               string        `json:"venue"`
	Description         string        `json:"description,omitempty"`
	TicketTiers         []tierPayload `json:"ticket_tiers"`
	HasAvailableTickets bool          `json:"has_available_tickets"`
}

type tierPayload struct {
	ID                string          `json:"id"`
	TierType          string          `json:"tier_type"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"total_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
}

func toConcertPayload(l app.ConcertListing) concertPayload {
	tiers := make([]tierPayload, 0, len(l.Tiers))
	for _, t := range l.Tiers {
		tiers = append(tiers, tierPayload{
			ID:                t.ID,
			TierType:          string(t.TierType),
			Price:             t.Price,
			TotalQuantity:     t.TotalQuantity,
			AvailableQuantity: t.AvailableQuantity,
		})
	}
	return concertPayload{
		ID:                  l.Concert.ID,
		Name:                l.Concert.Name,
		Artist:              l.Concert.Artist,
		Date:                l.Concert.Date,
		Venue:               l.Concert.Venue,
		Description:         l.Concert.Description,
		TicketTiers:         tiers,
		HasAvailableTickets: l.HasAvailableTickets,
	}
}
