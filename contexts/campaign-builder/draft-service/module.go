package draftservice

import (
	"log/slog"

	httpadapter "adpilot/contexts/campaign-builder/draft-service/adapters/http"
	"adpilot/contexts/campaign-builder/draft-service/adapters/memory"
	"adpilot/contexts/campaign-builder/draft-service/application/commands"
	"adpilot/contexts/campaign-builder/draft-service/application/queries"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	MarkSubmitted commands.MarkSubmittedUseCase
	Reopen        commands.ReopenDraftUseCase
	Store         *memory.Store
}

type Dependencies struct {
	Drafts ports.DraftRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			CreateDraft: commands.CreateDraftUseCase{
				Drafts: deps.Drafts,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			UpdateDraft: commands.UpdateDraftUseCase{
				Drafts: deps.Drafts,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			GetDraft: queries.GetDraftQuery{Drafts: deps.Drafts},
			Logger:   deps.Logger,
		},
		MarkSubmitted: commands.MarkSubmittedUseCase{
			Drafts: deps.Drafts,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
		Reopen: commands.ReopenDraftUseCase{
			Drafts: deps.Drafts,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Draft, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Drafts: store,
		Clock:  store,
		Logger: logger,
	})
	module.Store = store
	return module
}
