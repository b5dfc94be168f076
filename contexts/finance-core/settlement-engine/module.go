package settlementengine

import (
	"log/slog"
	"time"

	httpadapter "meridian/contexts/finance-core/settlement-engine/adapters/http"
	"meridian/contexts/finance-core/settlement-engine/adapters/memory"
	"meridian/contexts/finance-core/settlement-engine/adapters/provider"
	"meridian/contexts/finance-core/settlement-engine/application"
	"meridian/contexts/finance-core/settlement-engine/application/workers"
	"meridian/contexts/finance-core/settlement-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Service  application.Service
	Accrual  workers.AccrualConsumer
	Store    *memory.Store
	Provider *provider.MemoryProvider
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Payouts       ports.PayoutStore
	Provider      ports.SettlementProvider
	EventDedup    ports.EventDedupStore
	Outbox        ports.OutboxWriter
	Subscriber    ports.Subscriber
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	EventDedupTTL time.Duration
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Payouts:  deps.Payouts,
		Provider: deps.Provider,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		Logger:   deps.Logger,
	}
	accrual := workers.AccrualConsumer{
		Subscriber: deps.Subscriber,
		Payouts:    deps.Payouts,
		Dedup:      deps.EventDedup,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		DedupTTL:   deps.EventDedupTTL,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
		Accrual: accrual,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	fakeProvider := provider.NewMemoryProvider()
	module := NewModule(Dependencies{
		Payouts:       store,
		Provider:      fakeProvider,
		EventDedup:    store,
		Outbox:        store,
		Clock:         store,
		IDGenerator:   store,
		EventDedupTTL: 7 * 24 * time.Hour,
		Logger:        logger,
	})
	module.Store = store
	module.Provider = fakeProvider
	return module
}
