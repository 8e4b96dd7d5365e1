package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	draftservice "adpilot/contexts/campaign-builder/draft-service"
	launchservice "adpilot/contexts/campaign-builder/launch-service"
	_ "adpilot/internal/platform/httpserver/docs"
	"adpilot/internal/shared/events"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	maxBodyBytes      = 1 << 20
	defaultStreamPoll = 2 * time.Second
)

// Subscriber is the realtime side of the broker.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, events.Envelope) error) error
}

type Options struct {
	Addr    string
	Broker  Subscriber
	Metrics http.Handler
	// StreamPoll is how often a stream re-reads the store when no notice
	// arrives, which covers jobs driven by another process.
	StreamPoll time.Duration
	Logger     *slog.Logger
}

type Server struct {
	router     chi.Router
	logger     *slog.Logger
	addr       string
	launch     launchservice.Module
	drafts     draftservice.Module
	broker     Subscriber
	metrics    http.Handler
	streamPoll time.Duration
	httpServer *http.Server
}

func New(launch launchservice.Module, drafts draftservice.Module, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	poll := opts.StreamPoll
	if poll <= 0 {
		poll = defaultStreamPoll
	}

	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		addr:       addr,
		launch:     launch,
		drafts:     drafts,
		broker:     opts.Broker,
		metrics:    opts.Metrics,
		streamPoll: poll,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx ends, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped",
		"event", "http_server_stopped",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return nil
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(accessLog(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}
	s.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/launches", s.handleSubmitLaunch)
		r.Get("/jobs/{job_id}", s.handleGetJob)
		r.Get("/jobs/{job_id}/events", s.handleListEvents)
		r.Post("/jobs/{job_id}/cancel", s.handleCancelJob)
		r.Get("/jobs/{job_id}/stream", s.handleJobStream)

		r.Post("/drafts/callback", s.handleDraftCallback)
		r.Get("/drafts/{draft_id}", s.handleGetDraft)
		r.Patch("/drafts/{draft_id}", s.handleUpdateDraft)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}
