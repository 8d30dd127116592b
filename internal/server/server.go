// Package server exposes the workspace over a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

// Config wires the API.
type Config struct {
	Addr      string
	Workspace *workspace.Workspace
	// Registry serves /metrics and receives the HTTP metrics. Nil uses the
	// default registry.
	Registry *prometheus.Registry
}

type Server struct {
	ws      *workspace.Workspace
	metrics *httpMetrics
	handler http.Handler
	srv     *http.Server
}

func New(cfg Config) *Server {
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	s := &Server{ws: cfg.Workspace, metrics: newHTTPMetrics(reg)}
	s.handler = s.routes(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", metricsHandler)

	r.Route("/api", func(api chi.Router) {
		api.Get("/agenda", s.getAgenda)
		api.Get("/summary", s.getSummary)
		api.Get("/export.xlsx", s.exportMonth)

		api.Route("/patients", func(p chi.Router) {
			p.Get("/", s.listPatients)
			p.Post("/", s.createPatient)
			p.Post("/check", s.checkPatient)
			p.Get("/{id}", s.getPatient)
			p.Put("/{id}", s.updatePatient)
			p.Delete("/{id}", s.deletePatient)
			p.Post("/{id}/restore", s.restorePatient)
		})

		api.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", s.addSession)
			sr.Patch("/", s.patchSession)
			sr.Post("/reschedule", s.reschedule)
		})

		api.Get("/tasks", s.getTasks)

		api.Route("/notes", func(nr chi.Router) {
			nr.Get("/", s.listNotes)
			nr.Put("/", s.saveNote)
			nr.Delete("/", s.deleteAllNotes)
			nr.Get("/session", s.getNote)
			nr.Delete("/{key}", s.deleteNote)
		})

		api.Get("/payments/{patientID}/{date}", s.getPayment)
		api.Patch("/payments/{patientID}/{date}", s.patchPayment)
	})
	return r
}

// Run serves until ctx is cancelled, then drains connections and flushes
// pending workspace writes.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.ws.Flush(shutdownCtx)
}
