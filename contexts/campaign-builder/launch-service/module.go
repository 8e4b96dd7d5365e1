package launchservice

import (
	"log/slog"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/adapters/adplatform"
	httpadapter "adpilot/contexts/campaign-builder/launch-service/adapters/http"
	"adpilot/contexts/campaign-builder/launch-service/adapters/memory"
	"adpilot/contexts/campaign-builder/launch-service/adapters/queue"
	"adpilot/contexts/campaign-builder/launch-service/application/commands"
	"adpilot/contexts/campaign-builder/launch-service/application/pipeline"
	"adpilot/contexts/campaign-builder/launch-service/application/queries"
	"adpilot/contexts/campaign-builder/launch-service/application/workers"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Pipeline pipeline.Pipeline
	Consumer workers.LaunchConsumer
	Reaper   workers.StaleJobReaper

	// Set by NewInMemoryModule only.
	Store   *memory.Store
	Queue   *queue.Memory
	Sandbox *adplatform.Sandbox
}

type Dependencies struct {
	Jobs        ports.JobRepository
	Events      ports.EventLog
	Idempotency ports.IdempotencyStore
	Queue       ports.LaunchQueue
	Source      ports.LaunchSource
	Drafts      ports.DraftSource
	Remote      ports.RemoteEntityClient
	Credentials ports.CredentialResolver
	Publisher   ports.EventPublisher
	Metrics     ports.Metrics
	Builder     params.Builder
	Clock       ports.Clock
	IDGenerator ports.IDGenerator

	IdempotencyTTL    time.Duration
	Fanout            int
	RemoteTimeout     time.Duration
	RollbackOnFailure bool
	StaleAfter        time.Duration
	ReaperSchedule    string
	DisableConsumer   bool
	DisableReaper     bool
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	if deps.Builder.Registry == nil {
		deps.Builder = params.NewBuilder(params.DefaultRegistry(), params.DefaultCatalog())
	}

	submitLaunch := commands.SubmitLaunchUseCase{
		Jobs:           deps.Jobs,
		Idempotency:    deps.Idempotency,
		Queue:          deps.Queue,
		Drafts:         deps.Drafts,
		Builder:        deps.Builder,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	cancelJob := commands.CancelJobUseCase{
		Jobs:        deps.Jobs,
		Publisher:   deps.Publisher,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}

	stages := pipeline.Pipeline{
		Jobs:              deps.Jobs,
		Events:            deps.Events,
		Remote:            deps.Remote,
		Credentials:       deps.Credentials,
		Publisher:         deps.Publisher,
		Metrics:           deps.Metrics,
		Builder:           deps.Builder,
		Clock:             deps.Clock,
		IDGen:             deps.IDGenerator,
		Fanout:            deps.Fanout,
		RemoteTimeout:     deps.RemoteTimeout,
		RollbackOnFailure: deps.RollbackOnFailure,
		Logger:            deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			SubmitLaunch: submitLaunch,
			CancelJob:    cancelJob,
			GetJob:       queries.GetJobQuery{Jobs: deps.Jobs},
			ListEvents:   queries.ListEventsQuery{Events: deps.Events},
			Logger:       deps.Logger,
		},
		Pipeline: stages,
		Consumer: workers.LaunchConsumer{
			Source:   deps.Source,
			Executor: stages,
			Disabled: deps.DisableConsumer,
			Logger:   deps.Logger,
		},
		Reaper: workers.StaleJobReaper{
			Jobs:       deps.Jobs,
			Events:     deps.Events,
			Clock:      deps.Clock,
			IDGen:      deps.IDGenerator,
			StaleAfter: deps.StaleAfter,
			Schedule:   deps.ReaperSchedule,
			Disabled:   deps.DisableReaper,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires the memory store, an in-process queue and the
// sandbox ad platform. Nothing is consumed until Consumer.Start is called.
func NewInMemoryModule(seed []entities.Job, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	tasks := queue.NewMemory(0, pipeline.DefaultFanout, logger)
	sandbox := adplatform.NewSandbox()
	module := NewModule(Dependencies{
		Jobs:           store,
		Events:         store,
		Idempotency:    store,
		Queue:          tasks,
		Source:         tasks,
		Remote:         sandbox,
		Credentials:    adplatform.StaticCredentials{Token: "sandbox"},
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Queue = tasks
	module.Sandbox = sandbox
	return module
}
