package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meridian/contexts/identity-access/session-service/adapters/memory"
	"meridian/contexts/identity-access/session-service/application"
	"meridian/contexts/identity-access/session-service/domain/entities"
	domainerrors "meridian/contexts/identity-access/session-service/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func validPrincipal() entities.Principal {
	return entities.Principal{
		UserID:    "user-1",
		CompanyID: "company-1",
		Role:      entities.RoleAdmin,
	}
}

func TestIssueAndResolveSession(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	service := application.Service{Sessions: store, Clock: clock, Tokens: store, SessionTTL: time.Hour}
	ctx := context.Background()

	session, err := service.IssueSession(ctx, validPrincipal())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected opaque token")
	}

	resolved, err := service.Resolve(ctx, session.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.UserID != "user-1" || resolved.CompanyID != "company-1" || resolved.Role != entities.RoleAdmin {
		t.Fatalf("resolved principal mismatch: %+v", resolved)
	}
}

func TestResolveRejectsMissingAndUnknownTokens(t *testing.T) {
	store := memory.NewStore()
	service := application.Service{Sessions: store, Clock: store, Tokens: store}
	ctx := context.Background()

	if _, err := service.Resolve(ctx, ""); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("blank token must be unauthenticated, got %v", err)
	}
	if _, err := service.Resolve(ctx, "no-such-token"); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("unknown token must be unauthenticated, got %v", err)
	}
}

func TestResolveExpiredSessionIsUnauthenticated(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	service := application.Service{Sessions: store, Clock: clock, Tokens: store, SessionTTL: time.Hour}
	ctx := context.Background()

	session, err := service.IssueSession(ctx, validPrincipal())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	if _, err := service.Resolve(ctx, session.Token); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("expired token must be unauthenticated, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	store := memory.NewStore()
	service := application.Service{Sessions: store, Clock: store, Tokens: store, SessionTTL: time.Hour}
	ctx := context.Background()

	session, err := service.IssueSession(ctx, validPrincipal())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := service.Resolve(ctx, session.Token); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("revoked token must be unauthenticated, got %v", err)
	}
	if err := service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("revoking an unknown token must be a no-op, got %v", err)
	}
}

func TestIssueSessionValidatesPrincipal(t *testing.T) {
	store := memory.NewStore()
	service := application.Service{Sessions: store, Clock: store, Tokens: store}

	bad := validPrincipal()
	bad.Role = entities.Role("root")
	if _, err := service.IssueSession(context.Background(), bad); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("unknown role must be rejected, got %v", err)
	}

	bad = validPrincipal()
	bad.CompanyID = ""
	if _, err := service.IssueSession(context.Background(), bad); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("blank company must be rejected, got %v", err)
	}
}
