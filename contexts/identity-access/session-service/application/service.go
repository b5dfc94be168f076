package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/identity-access/session-service/domain/entities"
	domainerrors "meridian/contexts/identity-access/session-service/domain/errors"
	"meridian/contexts/identity-access/session-service/ports"
)

const defaultSessionTTL = 24 * time.Hour

type Service struct {
	Sessions   ports.SessionStore
	Clock      ports.Clock
	Tokens     ports.TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// Resolve maps an opaque session token to the principal it was issued
// for. Missing, unknown, and expired tokens are indistinguishable to the
// caller.
func (s Service) Resolve(ctx context.Context, token string) (entities.Principal, error) {
	logger := ResolveLogger(s.Logger)
	token = strings.TrimSpace(token)
	if token == "" {
		return entities.Principal{}, domainerrors.ErrUnauthenticated
	}

	session, err := s.Sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) {
			return entities.Principal{}, domainerrors.ErrUnauthenticated
		}
		return entities.Principal{}, err
	}
	if session.Expired(s.now()) {
		// Lazy cleanup; the store TTL is the primary expiry mechanism.
		if delErr := s.Sessions.DeleteSession(ctx, token); delErr != nil {
			logger.Warn("expired session cleanup failed",
				"event", "session_cleanup_failed",
				"module", "identity-access/session-service",
				"layer", "application",
				"error", delErr.Error(),
			)
		}
		return entities.Principal{}, domainerrors.ErrUnauthenticated
	}
	if !session.Principal.Validate() {
		return entities.Principal{}, domainerrors.ErrUnauthenticated
	}
	return session.Principal, nil
}

// IssueSession mints a new opaque token for a validated principal.
func (s Service) IssueSession(ctx context.Context, principal entities.Principal) (entities.Session, error) {
	logger := ResolveLogger(s.Logger)
	if !principal.Validate() {
		return entities.Session{}, domainerrors.ErrInvalidInput
	}

	token, err := s.Tokens.NewToken(ctx)
	if err != nil {
		return entities.Session{}, err
	}
	now := s.now()
	session := entities.Session{
		Token:     strings.TrimSpace(token),
		Principal: principal,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL()),
	}
	if err := s.Sessions.PutSession(ctx, session); err != nil {
		return entities.Session{}, err
	}

	logger.Info("session issued",
		"event", "session_issued",
		"module", "identity-access/session-service",
		"layer", "application",
		"user_id", principal.UserID,
		"company_id", principal.CompanyID,
		"role", string(principal.Role),
	)
	return session, nil
}

// RevokeSession invalidates a token immediately. Revoking an unknown
// token is a no-op.
func (s Service) RevokeSession(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domainerrors.ErrInvalidInput
	}
	err := s.Sessions.DeleteSession(ctx, token)
	if errors.Is(err, domainerrors.ErrSessionNotFound) {
		return nil
	}
	return err
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) sessionTTL() time.Duration {
	if s.SessionTTL <= 0 {
		return defaultSessionTTL
	}
	return s.SessionTTL
}
