package treasuryservice

import (
	"log/slog"
	"time"

	httpadapter "ballotbox/contexts/finance-core/treasury-service/adapters/http"
	"ballotbox/contexts/finance-core/treasury-service/adapters/memory"
	"ballotbox/contexts/finance-core/treasury-service/application"
	"ballotbox/contexts/finance-core/treasury-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Ledger   ports.LedgerRepository
	Dedup    ports.EventDedupStore
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	DedupTTL time.Duration
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Ledger:   deps.Ledger,
		Dedup:    deps.Dedup,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		DedupTTL: deps.DedupTTL,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Ledger:   store,
		Dedup:    store,
		Clock:    store,
		IDGen:    store,
		DedupTTL: 7 * 24 * time.Hour,
		Logger:   logger,
	})
	module.Store = store
	return module
}
