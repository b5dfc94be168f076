package unit

import (
	"context"
	"errors"
	"testing"

	sessionservice "meridian/contexts/identity-access/session-service"
	"meridian/contexts/identity-access/session-service/domain/entities"
	domainerrors "meridian/contexts/identity-access/session-service/domain/errors"
)

func TestSessionIssueResolveRevokeLifecycle(t *testing.T) {
	module := sessionservice.NewInMemoryModule(nil)
	ctx := context.Background()

	session, err := module.Service.IssueSession(ctx, entities.Principal{
		UserID:    "user-unit-1",
		CompanyID: "company-unit-1",
		Role:      entities.RoleOwner,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	principal, err := module.Service.Resolve(ctx, session.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if principal.UserID != "user-unit-1" || principal.Role != entities.RoleOwner {
		t.Fatalf("resolved principal mismatch: %+v", principal)
	}

	if err := module.Service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := module.Service.Resolve(ctx, session.Token); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("revoked token must be unauthenticated, got %v", err)
	}
}

func TestSessionResolveNeverLeaksExistence(t *testing.T) {
	module := sessionservice.NewInMemoryModule(nil)
	ctx := context.Background()

	_, blankErr := module.Service.Resolve(ctx, "")
	_, unknownErr := module.Service.Resolve(ctx, "token-that-never-existed")
	if !errors.Is(blankErr, domainerrors.ErrUnauthenticated) || !errors.Is(unknownErr, domainerrors.ErrUnauthenticated) {
		t.Fatalf("both failures must look identical, got %v and %v", blankErr, unknownErr)
	}
	if blankErr.Error() != unknownErr.Error() {
		t.Fatalf("error text must not distinguish blank from unknown tokens")
	}
}
