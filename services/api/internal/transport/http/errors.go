package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

const (
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeInvalidID              = "invalid_id"
	codeInvalidTicketNumber    = "invalid_ticket_number"
	codeNoTicketsRequested     = "no_tickets_requested"
	codeBuyerRequired          = "buyer_required"
	codeInvalidAmount          = "invalid_amount"
	codeRaffleNameRequired     = "raffle_name_required"
	codeInvalidTotalTickets    = "invalid_total_tickets"
	codeRaffleNotFound         = "raffle_not_found"
	codeRaffleNotActive        = "raffle_not_active"
	codePaymentNotFound        = "payment_not_found"
	codeTicketsUnavailable     = "tickets_unavailable"
	codeInvalidStateTransition = "invalid_state_transition"
	codeUnauthorized           = "unauthorized"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	TicketNumbers []int  `json:"ticket_numbers,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorPayload(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorPayload(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps engine errors onto the HTTP surface. Anything
// unmapped is a persistence fault: the unit was rolled back and the caller
// may retry.
func writeDomainError(w http.ResponseWriter, err error) {
	var unavailable *domain.TicketsUnavailableError
	if errors.As(err, &unavailable) {
		writeErrorPayload(w, http.StatusConflict, errorResponse{
			Error:         unavailable.Error(),
			Code:          codeTicketsUnavailable,
			TicketNumbers: unavailable.Numbers,
		})
		return
	}
	var invalidNumber *domain.InvalidTicketNumberError
	if errors.As(err, &invalidNumber) {
		writeError(w, http.StatusBadRequest, codeInvalidTicketNumber, invalidNumber.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrRaffleNotActive):
		writeError(w, http.StatusConflict, codeRaffleNotActive, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, codeInvalidStateTransition, err.Error())
	case errors.Is(err, domain.ErrRaffleNotFound):
		writeError(w, http.StatusNotFound, codeRaffleNotFound, err.Error())
	case errors.Is(err, domain.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, codePaymentNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrNoTicketsRequested):
		writeError(w, http.StatusBadRequest, codeNoTicketsRequested, err.Error())
	case errors.Is(err, domain.ErrBuyerRequired):
		writeError(w, http.StatusBadRequest, codeBuyerRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrRaffleNameRequired):
		writeError(w, http.StatusBadRequest, codeRaffleNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidTotalTickets):
		writeError(w, http.StatusBadRequest, codeInvalidTotalTickets, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
