// Package server hosts the primer HTTP API. It owns the store lifecycle,
// provider registry wiring, and the extraction pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/config"
	"github.com/jackzampolin/primer/internal/home"
	"github.com/jackzampolin/primer/internal/jobs"
	"github.com/jackzampolin/primer/internal/pipeline"
	"github.com/jackzampolin/primer/internal/prompts"
	"github.com/jackzampolin/primer/internal/prompts/boundary"
	"github.com/jackzampolin/primer/internal/prompts/dedupe"
	"github.com/jackzampolin/primer/internal/prompts/summarize"
	"github.com/jackzampolin/primer/internal/prompts/synthesize"
	"github.com/jackzampolin/primer/internal/providers"
	"github.com/jackzampolin/primer/internal/server/endpoints"
	"github.com/jackzampolin/primer/internal/store"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// Server is the main Primer HTTP server. It opens the embedded store on
// start and closes it on shutdown.
type Server struct {
	httpServer *http.Server
	store      store.Store
	pipeline   *pipeline.Pipeline
	jobManager *jobs.Manager
	registry   *providers.Registry
	resolver   *prompts.Resolver
	configMgr  *config.Manager
	homeDir    *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the primer home directory holding the store and config.
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	resolver := prompts.NewResolver(cfg.Logger)
	summarize.RegisterPrompts(resolver)
	boundary.RegisterPrompts(resolver)
	synthesize.RegisterPrompts(resolver)
	dedupe.RegisterPrompts(resolver)

	s := &Server{
		registry:  registry,
		resolver:  resolver,
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and opens the store.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.homeDir.EnsureExists(); err != nil {
		s.setNotRunning()
		return err
	}

	s.logger.Info("opening store", "path", s.homeDir.StorePath())
	st, err := store.NewBadgerStore(s.homeDir.StorePath(), s.logger)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st

	s.pipeline = s.buildPipeline()
	if s.configMgr != nil {
		s.configMgr.OnChange(func(*config.Config) {
			s.pipeline = s.buildPipeline()
			s.refreshServices()
			s.logger.Info("pipeline reconfigured from config")
		})
	}

	maxWorkers := 4
	if s.configMgr != nil {
		maxWorkers = s.configMgr.Get().Defaults.MaxWorkers
	}
	s.jobManager = jobs.NewManager(s.store, jobs.Dependencies{
		Store:    s.store,
		Pipeline: s.pipeline,
		Registry: s.registry,
		Logger:   s.logger,
	}, maxWorkers, s.logger)

	s.refreshServices()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildPipeline assembles the extraction pipeline from current config.
func (s *Server) buildPipeline() *pipeline.Pipeline {
	opts := pipeline.Options{}
	clients := pipeline.Clients{}
	if s.configMgr != nil {
		cfg := s.configMgr.Get()
		opts = cfg.ToPipelineOptions()
		clients.Summarize, _ = s.registry.Get(cfg.StageProvider("summarize"))
		clients.Boundary, _ = s.registry.Get(cfg.StageProvider("boundary"))
		clients.Synthesize, _ = s.registry.Get(cfg.StageProvider("synthesize"))
		clients.Dedupe, _ = s.registry.Get(cfg.StageProvider("dedupe"))
	}
	return pipeline.New(s.store, clients, opts, s.logger)
}

// refreshServices rebuilds the context-injected services struct.
func (s *Server) refreshServices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = &svcctx.Services{
		Store:      s.store,
		Pipeline:   s.pipeline,
		JobManager: s.jobManager,
		Registry:   s.registry,
		Prompts:    s.resolver,
		Logger:     s.logger,
		Home:       s.homeDir,
	}
}

// shutdown performs graceful shutdown of the HTTP server, running jobs,
// and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.jobManager != nil {
		s.jobManager.Shutdown()
	}

	if s.store != nil {
		s.logger.Info("closing store")
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the store. Returns nil if the server hasn't started yet.
func (s *Server) Store() store.Store {
	return s.store
}

// JobManager returns the job manager.
// Returns nil if the server hasn't started yet.
func (s *Server) JobManager() *jobs.Manager {
	return s.jobManager
}

// Pipeline returns the extraction pipeline.
// Returns nil if the server hasn't started yet.
func (s *Server) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		svc := s.services
		s.mu.RUnlock()

		ctx := r.Context()
		if svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or job manager aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.jobManager == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
