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

// Reserver is the minimal interface needed to reserve tickets.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Payment, error)
}

// HandleReserve returns an HTTP handler for reserving ticket numbers. The
// buyer is the authenticated caller.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity")
			return
		}

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		payment, err := svc.Reserve(r.Context(), app.ReserveInput{
			RaffleID:      chi.URLParam(r, "raffleID"),
			TicketNumbers: req.TicketNumbers,
			BuyerID:       identity.Subject,
			Amount:        req.Amount,
			Method:        req.Method,
			ReceiptRef:    req.ReceiptRef,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(newPaymentResponse(payment))
	}
}

type reserveRequest struct {
	TicketNumbers []int   `json:"ticket_numbers"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	ReceiptRef    string  `json:"receipt_ref"`
}

type paymentResponse struct {
	ID            string     `json:"id"`
	RaffleID      string     `json:"raffle_id"`
	BuyerID       string     `json:"buyer_id"`
	TicketNumbers []int      `json:"ticket_numbers"`
	Amount        float64    `json:"amount"`
	Method        string     `json:"method,omitempty"`
	ReceiptRef    string     `json:"receipt_ref,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
}

func newPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		RaffleID:      p.RaffleID,
		BuyerID:       p.BuyerID,
		TicketNumbers: p.TicketNumbers,
		Amount:        p.Amount,
		Method:        p.Method,
		ReceiptRef:    p.ReceiptRef,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		DecidedAt:     p.DecidedAt,
	}
}
