package sessionservice

import (
	"log/slog"
	"time"

	"meridian/contexts/identity-access/session-service/adapters/memory"
	"meridian/contexts/identity-access/session-service/application"
	"meridian/contexts/identity-access/session-service/ports"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Sessions   ports.SessionStore
	Clock      ports.Clock
	Tokens     ports.TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.Service{
			Sessions:   deps.Sessions,
			Clock:      deps.Clock,
			Tokens:     deps.Tokens,
			SessionTTL: deps.SessionTTL,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule builds a development/testing module with in-memory adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Sessions:   store,
		Clock:      store,
		Tokens:     store,
		SessionTTL: 24 * time.Hour,
		Logger:     logger,
	})
	module.Store = store
	return module
}
