package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	sessionentities "meridian/contexts/identity-access/session-service/domain/entities"
	sessionerrors "meridian/contexts/identity-access/session-service/domain/errors"
)

type issueSessionRequest struct {
	UserID      string   `json:"user_id"`
	CompanyID   string   `json:"company_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

type issueSessionResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type sessionErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleIssueSession mints a session for an upstream-verified identity.
// The endpoint sits behind the platform gateway; it does not verify
// credentials itself.
func (s *Server) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	var req issueSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	session, err := s.sessions.Service.IssueSession(r.Context(), sessionentities.Principal{
		UserID:      req.UserID,
		CompanyID:   req.CompanyID,
		Role:        sessionentities.Role(req.Role),
		Permissions: req.Permissions,
	})
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issueSessionResponse{
		Status:    "success",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := s.sessions.Service.RevokeSession(r.Context(), token); err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeSessionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionerrors.ErrUnauthenticated),
		errors.Is(err, sessionerrors.ErrSessionNotFound):
		writeSessionError(w, http.StatusUnauthorized, "unauthenticated", "session is missing or expired")
	case errors.Is(err, sessionerrors.ErrInvalidInput):
		writeSessionError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeSessionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSessionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, sessionErrorResponse{
		Code:    code,
		Message: message,
	})
}
