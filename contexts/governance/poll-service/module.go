package pollservice

import (
	"log/slog"

	httpadapter "ballotbox/contexts/governance/poll-service/adapters/http"
	"ballotbox/contexts/governance/poll-service/adapters/memory"
	"ballotbox/contexts/governance/poll-service/application/commands"
	"ballotbox/contexts/governance/poll-service/application/queries"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	"ballotbox/contexts/governance/poll-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	Gateway *memory.Gateway
}

type Dependencies struct {
	Polls           ports.PollRepository
	Funds           ports.FundsGateway
	Outbox          ports.OutboxWriter
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	MinContribution int64
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	pollUseCase := commands.PollUseCase{
		Polls:           deps.Polls,
		Funds:           deps.Funds,
		Outbox:          deps.Outbox,
		Clock:           deps.Clock,
		IDGen:           deps.IDGen,
		MinContribution: deps.MinContribution,
		Logger:          deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Polls: deps.Polls,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:   pollUseCase,
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Poll, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	gateway := memory.NewGateway()
	module := NewModule(Dependencies{
		Polls:  store,
		Funds:  gateway,
		Outbox: store,
		Clock:  store,
		IDGen:  store,
		Logger: logger,
	})
	module.Store = store
	module.Gateway = gateway
	return module
}
