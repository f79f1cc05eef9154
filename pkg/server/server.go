// Package server exposes the pipeline operations and editing sessions over HTTP.
//
// # Endpoints
//
// Stateless operations take a canvas graph (see package flowio) in the body:
//
//	GET    /healthz
//	GET    /metrics
//	POST   /v1/validate              {"graph": ...}
//	POST   /v1/compile               {"graph": ..., "options": {...}}
//	POST   /v1/decompile             {"document": ..., "concurrency": 4}
//	POST   /v1/connections/check     {"graph": ..., "source": "...", "target": "..."}
//	POST   /v1/autoconnect           {"graph": ..., "skip_cycle_guard": false}
//
// Sessions keep a graph on the server and edit it in place:
//
//	POST   /v1/sessions
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	POST   /v1/sessions/{id}/nodes
//	POST   /v1/sessions/{id}/edges
//	PUT    /v1/sessions/{id}/nodes/{nodeID}/position
//	GET    /v1/sessions/{id}/nodes/{nodeID}/columns
//	POST   /v1/sessions/{id}/compile
//
// Moving a node runs auto-connect, mirroring the canvas drag-stop behaviour.
//
// # Errors
//
// Failures are answered with {"error": CODE, "message": "..."} and the status chosen
// by errors.HTTPStatus. A graph rejected by validation answers 422 and carries the
// validation log under "details".
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcraft/pkg/flow/proximity"
	"github.com/matzehuels/flowcraft/pkg/metrics"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// Default values for [Options].
const (
	DefaultAddr            = ":8080"
	DefaultCleanupInterval = 5 * time.Minute
	DefaultMaxBodyBytes    = 8 << 20
	shutdownTimeout        = 10 * time.Second
)

// Options configures a [Server]. Zero values fall back to the defaults above.
type Options struct {
	Addr            string
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	MaxBodyBytes    int64
	Proximity       proximity.Options

	// Spacing is the decompile layout distance used when a request sets none.
	Spacing float64

	Logger *log.Logger

	// Metrics is served on /metrics and instruments every route when non-nil.
	Metrics *metrics.Registry
}

// Server is the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	sessions session.Store
	opts     Options
	logger   *log.Logger
	handler  http.Handler
}

// New wires the routes. A nil store uses a fresh session.MemoryStore.
func New(runner *pipeline.Runner, store session.Store, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if store == nil {
		store = session.NewMemoryStore()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, opts.Logger)
	}

	s := &Server{
		runner:   runner,
		sessions: store,
		opts:     opts,
		logger:   opts.Logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully. Expired sessions
// are swept every CleanupInterval while the server runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go session.RunCleanup(cleanupCtx, s.sessions, s.opts.CleanupInterval, s.onCleanup)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type sessionCounter interface {
	Len() int
}

func (s *Server) onCleanup(removed int, err error) {
	if err != nil {
		s.logger.Warn("session cleanup failed", "err", err)
		return
	}
	s.logger.Debug("expired sessions removed", "count", removed)
	if s.opts.Metrics == nil {
		return
	}
	active := 0
	if c, ok := s.sessions.(sessionCounter); ok {
		active = c.Len()
	}
	s.opts.Metrics.RecordSessions(active, removed)
}
