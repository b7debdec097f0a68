package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/app"
	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// RaffleReader is the public read surface over raffles and tickets.
type RaffleReader interface {
	ActiveRaffle(ctx context.Context) (domain.Raffle, error)
	ListTickets(ctx context.Context, raffleID string) ([]domain.Ticket, error)
}

// RaffleAdmin covers raffle creation and activation.
type RaffleAdmin interface {
	CreateRaffle(ctx context.Context, in app.CreateRaffleInput) (domain.Raffle, error)
	ActivateRaffle(ctx context.Context, raffleID string) error
}

// HandleActiveRaffle returns the open raffle with its per-status counts.
func HandleActiveRaffle(svc RaffleReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raffle, err := svc.ActiveRaffle(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(newRaffleResponse(raffle))
	}
}

// HandleListTickets returns the full number grid for a raffle.
func HandleListTickets(svc RaffleReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tickets, err := svc.ListTickets(r.Context(), chi.URLParam(r, "raffleID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]ticketResponse, 0, len(tickets))
		for _, t := range tickets {
			resp = append(resp, ticketResponse{
				Number: t.Number,
				Status: string(t.Status),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleCreateRaffle creates a raffle with its full ticket inventory.
func HandleCreateRaffle(svc RaffleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRaffleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		raffle, err := svc.CreateRaffle(r.Context(), app.CreateRaffleInput{
			Name:         req.Name,
			TotalTickets: req.TotalTickets,
			TicketPrice:  req.TicketPrice,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(newRaffleResponse(raffle))
	}
}

// HandleActivateRaffle opens a raffle for sale, closing the previous one.
func HandleActivateRaffle(svc RaffleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ActivateRaffle(r.Context(), chi.URLParam(r, "raffleID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createRaffleRequest struct {
	Name         string  `json:"name"`
	TotalTickets int     `json:"total_tickets"`
	TicketPrice  float64 `json:"ticket_price"`
}

type raffleResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	TotalTickets int         `json:"total_tickets"`
	TicketPrice  float64     `json:"ticket_price"`
	Active       bool        `json:"active"`
	Stats        statsResult `json:"stats"`
	CreatedAt    time.Time   `json:"created_at"`
}

type statsResult struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

type ticketResponse struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

func newRaffleResponse(raffle domain.Raffle) raffleResponse {
	stats := raffle.Stats()
	return raffleResponse{
		ID:           raffle.ID,
		Name:         raffle.Name,
		TotalTickets: raffle.TotalTickets,
		TicketPrice:  raffle.TicketPrice,
		Active:       raffle.Active,
		Stats: statsResult{
			Available: stats.Available,
			Reserved:  stats.Reserved,
			Sold:      stats.Sold,
		},
		CreatedAt: raffle.CreatedAt,
	}
}
