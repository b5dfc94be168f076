package httpserver

import (
	"context"
	"net/http"
	"strings"

	settlemententities "meridian/contexts/finance-core/settlement-engine/domain/entities"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	principalKey contextKey = "principal"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionAuthMiddleware resolves the bearer session token into a
// principal. Requests without a resolvable session never reach the
// modules behind it.
func (s *Server) sessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writePayoutError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		resolved, err := s.sessions.Service.Resolve(r.Context(), token)
		if err != nil {
			writeSessionDomainError(w, err)
			return
		}
		principal := settlemententities.Principal{
			UserID:      resolved.UserID,
			CompanyID:   resolved.CompanyID,
			Role:        settlemententities.Role(resolved.Role),
			Permissions: resolved.Permissions,
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(ctx context.Context) settlemententities.Principal {
	if value := ctx.Value(principalKey); value != nil {
		if principal, ok := value.(settlemententities.Principal); ok {
			return principal
		}
	}
	return settlemententities.Principal{}
}

func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[len("bearer "):])
}
