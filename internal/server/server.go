// Package server exposes a read-only status API over the network
// database: node counts, persisted records, harvested energies, and run
// history. It exists for operators watching a long pipeline, not for
// mutation.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/internal/server/middleware"
	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/store"
)

// Server serves the status API.
type Server struct {
	addr    string
	handler http.Handler
}

// New wires the router. rateLimit is requests/second per process; zero
// disables limiting.
func New(addr string, st *store.Store, runs *runlog.Store, rateLimit float64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handlers{store: st, runs: runs, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	if rateLimit > 0 {
		r.Use(middleware.RateLimit(rateLimit))
	}

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/counts", h.counts)
		r.Get("/stationaries", h.stationaries)
		r.Get("/transitions", h.transitions)
		r.Get("/runs", h.listRuns)
	})

	return &Server{addr: addr, handler: r}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
