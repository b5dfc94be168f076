package ports

import (
	"context"
	"time"

	"meridian/contexts/identity-access/session-service/domain/entities"
)

type SessionStore interface {
	GetSession(ctx context.Context, token string) (entities.Session, error)
	PutSession(ctx context.Context, session entities.Session) error
	DeleteSession(ctx context.Context, token string) error
}

type Clock interface {
	Now() time.Time
}

type TokenGenerator interface {
	NewToken(ctx context.Context) (string, error)
}
