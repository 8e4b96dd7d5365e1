package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	draftservice "adpilot/contexts/campaign-builder/draft-service"
	draftmemory "adpilot/contexts/campaign-builder/draft-service/adapters/memory"
	draftpostgres "adpilot/contexts/campaign-builder/draft-service/adapters/postgres"
	draftports "adpilot/contexts/campaign-builder/draft-service/ports"
	launchservice "adpilot/contexts/campaign-builder/launch-service"
	"adpilot/contexts/campaign-builder/launch-service/adapters/adplatform"
	launchmemory "adpilot/contexts/campaign-builder/launch-service/adapters/memory"
	launchpostgres "adpilot/contexts/campaign-builder/launch-service/adapters/postgres"
	"adpilot/contexts/campaign-builder/launch-service/adapters/queue"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"
	launchports "adpilot/contexts/campaign-builder/launch-service/ports"
	"adpilot/internal/platform/config"
	"adpilot/internal/platform/db"
	"adpilot/internal/platform/httpserver"
	"adpilot/internal/platform/logging"
	"adpilot/internal/platform/messaging"
	"adpilot/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// APIApp serves HTTP. Without REDIS_ADDR it also runs the launch consumer
// and the stale job reaper in-process.
type APIApp struct {
	server   *httpserver.Server
	launch   launchservice.Module
	embedded bool
	closers  []io.Closer
	logger   *slog.Logger
}

// WorkerApp drains the Redis launch queue and runs the stale job reaper.
type WorkerApp struct {
	launch  launchservice.Module
	closers []io.Closer
	logger  *slog.Logger
}

// core is everything both processes share.
type core struct {
	cfg     config.Config
	logger  *slog.Logger
	launch  launchservice.Module
	drafts  draftservice.Module
	broker  *messaging.Broker
	metrics *metrics.Launch
	closers []io.Closer
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr != "" && cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is required when launches run on a separate worker")
	}
	c, err := buildCore(cfg, "api")
	if err != nil {
		return nil, err
	}

	server := httpserver.New(c.launch, c.drafts, httpserver.Options{
		Addr:    normalizeAddr(cfg.HTTPPort),
		Broker:  c.broker,
		Metrics: c.metrics.Handler(),
		Logger:  c.logger,
	})
	return &APIApp{
		server:   server,
		launch:   c.launch,
		embedded: cfg.RedisAddr == "",
		closers:  c.closers,
		logger:   c.logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is required for the worker")
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is required for the worker")
	}
	c, err := buildCore(cfg, "worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		launch:  c.launch,
		closers: c.closers,
		logger:  c.logger,
	}, nil
}

func buildCore(cfg config.Config, process string) (*core, error) {
	base, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	logger := base.With("service", cfg.ServiceName, "process", process)
	slog.SetDefault(logger)

	c := &core{
		cfg:     cfg,
		logger:  logger,
		broker:  messaging.NewBroker(logger),
		metrics: metrics.NewLaunch(),
		closers: []io.Closer{logCloser},
	}

	catalog, err := params.LoadCatalog(cfg.Overlay)
	if err != nil {
		c.Close()
		return nil, err
	}
	builder := params.NewBuilder(params.DefaultRegistry(), catalog)

	stores, err := c.openStores()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.drafts = draftservice.NewModule(draftservice.Dependencies{
		Drafts: stores.drafts,
		Clock:  stores.clock,
		Logger: logger,
	})

	tasks, err := c.openQueue()
	if err != nil {
		c.Close()
		return nil, err
	}

	var remote launchports.RemoteEntityClient
	if cfg.AdPlatformBaseURL != "" {
		remote = adplatform.NewClient(cfg.AdPlatformBaseURL, cfg.RemoteTimeout, logger)
	} else {
		logger.Warn("no ad platform configured, launches run against the sandbox",
			"event", "bootstrap_sandbox_remote",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		remote = adplatform.NewSandbox()
	}

	embedded := cfg.RedisAddr == ""
	c.launch = launchservice.NewModule(launchservice.Dependencies{
		Jobs:              stores.jobs,
		Events:            stores.events,
		Idempotency:       stores.idempotency,
		Queue:             tasks,
		Source:            tasks,
		Drafts:            draftBridge{drafts: c.drafts},
		Remote:            remote,
		Credentials:       adplatform.StaticCredentials{Token: cfg.AdPlatformToken},
		Publisher:         c.broker,
		Metrics:           c.metrics,
		Builder:           builder,
		Clock:             stores.clock,
		IDGenerator:       stores.ids,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		Fanout:            cfg.StageFanout,
		RemoteTimeout:     cfg.RemoteTimeout,
		RollbackOnFailure: cfg.RollbackOnFailure,
		StaleAfter:        cfg.StaleJobAfter,
		ReaperSchedule:    cfg.ReaperSchedule,
		DisableConsumer:   !cfg.EnableLaunchConsumer || (process == "api" && !embedded),
		DisableReaper:     !cfg.EnableStaleJobReaper || (process == "api" && !embedded),
		Logger:            logger,
	})
	return c, nil
}

type storeSet struct {
	jobs        launchports.JobRepository
	events      launchports.EventLog
	idempotency launchports.IdempotencyStore
	drafts      draftports.DraftRepository
	clock       interface{ Now() time.Time }
	ids         launchports.IDGenerator
}

func (c *core) openStores() (storeSet, error) {
	if c.cfg.DatabaseDSN == "" {
		c.logger.Warn("no database configured, state is kept in memory",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		jobs := launchmemory.NewStore(nil)
		return storeSet{
			jobs:        jobs,
			events:      jobs,
			idempotency: jobs,
			drafts:      draftmemory.NewStore(nil),
			clock:       jobs,
			ids:         launchpostgres.UUIDGenerator{},
		}, nil
	}

	database, err := db.Connect(c.cfg.DatabaseDSN, db.Options{})
	if err != nil {
		return storeSet{}, err
	}
	c.closers = append(c.closers, database)
	if err := launchpostgres.Migrate(database.DB); err != nil {
		return storeSet{}, fmt.Errorf("migrate launch tables: %w", err)
	}
	if err := draftpostgres.Migrate(database.DB); err != nil {
		return storeSet{}, fmt.Errorf("migrate draft tables: %w", err)
	}
	c.logger.Info("database ready",
		"event", "bootstrap_database_ready",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"dialect", database.Dialect,
	)

	launchRepo := launchpostgres.NewRepository(database.DB, c.logger)
	return storeSet{
		jobs:        launchRepo,
		events:      launchRepo,
		idempotency: launchRepo,
		drafts:      draftpostgres.NewRepository(database.DB, c.logger),
		clock:       launchpostgres.SystemClock{},
		ids:         launchpostgres.UUIDGenerator{},
	}, nil
}

type launchQueue interface {
	launchports.LaunchQueue
	launchports.LaunchSource
}

func (c *core) openQueue() (launchQueue, error) {
	if c.cfg.RedisAddr == "" {
		tasks := queue.NewMemory(0, c.cfg.QueueWorkers, c.logger)
		c.closers = append(c.closers, closerFunc(func() error {
			tasks.Close()
			return nil
		}))
		return tasks, nil
	}
	tasks, err := queue.NewAsynq(queue.AsynqOptions{
		RedisAddr:     c.cfg.RedisAddr,
		RedisPassword: c.cfg.RedisPassword,
		RedisDB:       c.cfg.RedisDB,
		Concurrency:   c.cfg.QueueWorkers,
	}, c.logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, tasks)
	return tasks, nil
}

func (c *core) Close() {
	closeAll(c.closers, c.logger)
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_worker", a.embedded,
	)
	group, ctx := errgroup.WithContext(ctx)
	if a.embedded {
		if err := a.launch.Consumer.Start(ctx); err != nil {
			return err
		}
		if err := a.launch.Reaper.Start(ctx); err != nil {
			return err
		}
	}
	group.Go(func() error {
		return a.server.Start(ctx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	closeAll(a.closers, a.logger)
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	if err := w.launch.Reaper.Start(ctx); err != nil {
		return err
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return w.launch.Consumer.Start(ctx)
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	closeAll(w.closers, w.logger)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// closeAll releases resources newest first.
func closeAll(closers []io.Closer, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && logger != nil {
			logger.Warn("resource close failed",
				"event", "bootstrap_close_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
