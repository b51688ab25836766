// Package engine materializes a runnable REST service from a parsed API
// document: one CRUD route set per endpoint, backed by a shared record
// store and wrapped in the request pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apimocker/apimocker/pkg/auth"
	"github.com/apimocker/apimocker/pkg/config"
	"github.com/apimocker/apimocker/pkg/generator"
	"github.com/apimocker/apimocker/pkg/logging"
	"github.com/apimocker/apimocker/pkg/openapi"
	"github.com/apimocker/apimocker/pkg/responses"
	"github.com/apimocker/apimocker/pkg/simulate"
	"github.com/apimocker/apimocker/pkg/store"
	"github.com/apimocker/apimocker/pkg/webhook"
)

// Server serves a parsed API document over HTTP.
type Server struct {
	doc  *openapi.Document
	opts config.Options
	log  *slog.Logger

	store     store.DataStore
	gen       *generator.Generator
	sim       *simulate.Simulator
	responses *responses.Provider
	webhooks  *webhook.Dispatcher
	authGate  auth.Provider

	router     chi.Router
	httpServer *http.Server

	mu      sync.Mutex
	running bool
}

// Option customizes a Server before its routes are built.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStore sets the record store backend. Defaults to an in-memory
// store.
func WithStore(ds store.DataStore) Option {
	return func(s *Server) {
		if ds != nil {
			s.store = ds
		}
	}
}

// WithResponses sets the custom-response provider.
func WithResponses(p *responses.Provider) Option {
	return func(s *Server) {
		if p != nil {
			s.responses = p
		}
	}
}

// WithWebhooks sets the webhook dispatcher.
func WithWebhooks(d *webhook.Dispatcher) Option {
	return func(s *Server) {
		if d != nil {
			s.webhooks = d
		}
	}
}

// WithAuth sets the auth gate. A nil provider leaves every request
// unauthenticated.
func WithAuth(p auth.Provider) Option {
	return func(s *Server) {
		s.authGate = p
	}
}

// WithGenerator sets the synthetic data generator used for lazy seeding.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Server) {
		if g != nil {
			s.gen = g
		}
	}
}

// NewServer creates a Server for the given document and options.
func NewServer(doc *openapi.Document, opts config.Options, options ...Option) *Server {
	s := &Server{
		doc:  doc,
		opts: opts,
		log:  logging.Nop(),
		gen:  generator.New(),
		sim: simulate.New(simulate.Config{
			DelayMs:    opts.DelayMs,
			DelayMinMs: opts.DelayMinMs,
			DelayMaxMs: opts.DelayMaxMs,
			ErrorRate:  opts.ErrorRate,
			ErrorCodes: opts.ErrorCodes,
		}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.webhooks == nil {
		s.webhooks = webhook.NewDispatcher(time.Duration(opts.WebhookTimeoutSec)*time.Second, s.log)
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the fully wired HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener fails or the
// server is stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	ln, err := net.Listen("tcp", s.opts.Addr())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr(), err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("server listening",
		"addr", ln.Addr().String(),
		"endpoints", len(s.doc.Endpoints))

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully and waits for any in-flight
// webhook deliveries.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.running = false
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	s.webhooks.Wait()
	return err
}

// IsRunning reports whether Start has been called and the server has
// not yet stopped.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
