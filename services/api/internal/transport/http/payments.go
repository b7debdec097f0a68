package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// PaymentDecider is the minimal interface needed to settle a payment.
type PaymentDecider interface {
	Confirm(ctx context.Context, paymentID string) (domain.Payment, error)
	Reject(ctx context.Context, paymentID string) (domain.Payment, error)
}

// PendingLister is the minimal interface needed to list pending payments.
type PendingLister interface {
	PendingPayments(ctx context.Context, raffleID string) ([]domain.Payment, error)
}

// HandleConfirmPayment settles a pending payment as confirmed, selling its
// tickets.
func HandleConfirmPayment(svc PaymentDecider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payment, err := svc.Confirm(r.Context(), chi.URLParam(r, "paymentID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(newPaymentResponse(payment))
	}
}

// HandleRejectPayment settles a pending payment as rejected, releasing its
// tickets.
func HandleRejectPayment(svc PaymentDecider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payment, err := svc.Reject(r.Context(), chi.URLParam(r, "paymentID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(newPaymentResponse(payment))
	}
}

// HandlePendingPayments lists payments awaiting a decision, optionally
// scoped to one raffle via ?raffle_id=.
func HandlePendingPayments(svc PendingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payments, err := svc.PendingPayments(r.Context(), r.URL.Query().Get("raffle_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]paymentResponse, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, newPaymentResponse(p))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
