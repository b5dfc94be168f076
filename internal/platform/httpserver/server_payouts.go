package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	payouterrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	payouthttp "meridian/contexts/finance-core/settlement-engine/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSendPayout(w http.ResponseWriter, r *http.Request) {
	principal := principalFromContext(r.Context())
	payoutID := chi.URLParam(r, "payout_id")

	resp, err := s.settlement.Handler.SendPayoutHandler(r.Context(), principal, payoutID)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	principal := principalFromContext(r.Context())
	payoutID := chi.URLParam(r, "payout_id")

	resp, err := s.settlement.Handler.GetPayoutHandler(r.Context(), principal, payoutID)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	principal := principalFromContext(r.Context())
	query := r.URL.Query()
	req := payouthttp.ListPayoutsRequest{
		CreatorID: query.Get("creator_id"),
		Status:    query.Get("status"),
	}
	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writePayoutError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		offset, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writePayoutError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		req.Offset = offset
	}

	resp, err := s.settlement.Handler.ListPayoutsHandler(r.Context(), principal, req)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetPayout(w http.ResponseWriter, r *http.Request) {
	principal := principalFromContext(r.Context())
	payoutID := chi.URLParam(r, "payout_id")

	resp, err := s.settlement.Handler.ResetPayoutHandler(r.Context(), principal, payoutID)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePayoutDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payouterrors.ErrUnauthenticated):
		writePayoutError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, payouterrors.ErrForbidden):
		writePayoutError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, payouterrors.ErrPayoutNotFound):
		writePayoutError(w, http.StatusNotFound, "payout_not_found", err.Error())
	case errors.Is(err, payouterrors.ErrInvalidPayoutState):
		writePayoutError(w, http.StatusConflict, "invalid_payout_state", err.Error())
	case errors.Is(err, payouterrors.ErrVersionConflict),
		errors.Is(err, payouterrors.ErrPayoutExists),
		errors.Is(err, payouterrors.ErrExternalRefMismatch),
		errors.Is(err, payouterrors.ErrEventDuplicate):
		writePayoutError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, payouterrors.ErrSettlementFailed),
		errors.Is(err, payouterrors.ErrProviderUnavailable):
		writePayoutError(w, http.StatusBadGateway, "settlement_failed", err.Error())
	case errors.Is(err, payouterrors.ErrInvalidInput):
		writePayoutError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writePayoutError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePayoutError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, payouthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
