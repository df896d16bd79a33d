// Package server provides the HTTP control plane for goharness.
//
// The server exposes a REST API to trigger suite runs, watch their progress,
// and browse the history of completed runs.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /metrics - Prometheus metrics in text exposition format
//   - GET /api/status - Consolidated status (server, run, next scheduled run, suites)
//   - GET /api/suites - Names of the suites the server can run
//   - GET /config - Returns the current harness configuration as YAML
//   - POST /reload - Reloads the harness configuration from disk
//   - POST /run - Triggers a suite run
//   - GET /history - Returns summaries of completed runs
//   - GET /history/logs?id= - Returns per-step detail for a completed run
//   - POST /history/reload - Reloads the history store, when the backend supports it
//
// # Architecture
//
// The server maintains two sets of dependencies:
//
// Server-level deps are swapped atomically on reload and consist of the
// harness configuration.
//
// Run-level deps are created fresh for each suite run from the current
// config, ensuring configuration changes take effect on the next run without
// interrupting any in-progress run.
//
// # Example
//
//	srvCfg, err := serverconfig.LoadConfig("/etc/goharness/server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(srvCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nomis52/goharness/artifacts"
	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/logging"
	"github.com/nomis52/goharness/metrics"
	serverconfig "github.com/nomis52/goharness/server/config"
	"github.com/nomis52/goharness/server/cron"
	"github.com/nomis52/goharness/server/handlers"
	"github.com/nomis52/goharness/server/middleware"
	"github.com/nomis52/goharness/server/runner"
	"github.com/nomis52/goharness/server/types"
	"github.com/nomis52/goharness/suites"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
}

// Server is the HTTP control plane for goharness.
type Server struct {
	cfg        *serverconfig.ServerConfig
	logger     *slog.Logger
	logLevel   *slog.LevelVar
	props      types.ServerProperties
	deps       atomic.Pointer[serverDeps]
	registry   *metrics.ScrapeRegistry
	store      runner.Store
	runner     *runner.Runner
	cron       *cron.Manager
	httpServer *http.Server
}

// cronRunner adapts the runner to the cron manager, which does not need the
// run ID a direct call returns.
type cronRunner struct {
	runner *runner.Runner
}

func (c cronRunner) Run(names []string) error {
	_, err := c.runner.Run(names)
	return err
}

// New creates a Server from the server configuration. It loads the harness
// configuration, builds the history store, and wires the runner and cron
// triggers.
func New(srvCfg *serverconfig.ServerConfig) (*Server, error) {
	logLevel := &slog.LevelVar{}
	if srvCfg.LogLevel != "" {
		level, err := logging.ParseLevel(srvCfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		logLevel.Set(level)
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)

	s := &Server{
		cfg:      srvCfg,
		logger:   logger,
		logLevel: logLevel,
		props:    types.NewServerProperties(),
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	registry, err := metrics.NewScrapeRegistry()
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	s.registry = registry

	store, err := buildStore(srvCfg.History, logger)
	if err != nil {
		return nil, fmt.Errorf("creating history store: %w", err)
	}
	s.store = store

	runnerOpts := []runner.Option{
		runner.WithStore(store),
		runner.WithRegistry(registry),
	}
	if harnessCfg := s.Config(); harnessCfg.Artifacts.Bucket != "" {
		uploader, err := artifacts.NewS3Uploader(context.Background(), harnessCfg.Artifacts, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring artifact uploads: %w", err)
		}
		// A missing bucket is worth knowing about at startup, but the store
		// may still be coming up, so it does not block serving.
		if err := uploader.CheckBucket(context.Background()); err != nil {
			logger.Warn("artifact bucket check failed", "error", err)
		}
		runnerOpts = append(runnerOpts, runner.WithArtifacts(uploader))
	}

	s.runner, err = runner.New(logger, s, runnerOpts...)
	if err != nil {
		return nil, err
	}

	if len(srvCfg.Cron) > 0 {
		specs := make([]cron.TriggerSpec, 0, len(srvCfg.Cron))
		for _, trigger := range srvCfg.Cron {
			specs = append(specs, cron.TriggerSpec{
				Suites:   trigger.Suites,
				CronSpec: trigger.Schedule,
			})
		}
		available := make(map[string]bool)
		for _, name := range suites.Names() {
			available[name] = true
		}
		manager, err := cron.NewManager(specs, cronRunner{s.runner}, logger, available)
		if err != nil {
			return nil, fmt.Errorf("configuring cron triggers: %w", err)
		}
		s.cron = manager
	}

	return s, nil
}

// buildStore creates the history store selected by the configuration.
func buildStore(cfg serverconfig.HistoryConfig, logger *slog.Logger) (runner.Store, error) {
	switch cfg.Backend {
	case "disk":
		return runner.NewDiskStore(cfg.StateDir, cfg.MaxRuns, logger)
	case "valkey":
		return runner.NewValkeyStore(runner.ValkeyOptions{
			Addresses: cfg.ValkeyAddresses,
			Username:  cfg.ValkeyUsername,
			Password:  cfg.ValkeyPassword,
		}, cfg.MaxRuns, logger)
	default:
		return runner.NewMemoryStore(), nil
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// SetLogLevel changes the server's log level at runtime.
func (s *Server) SetLogLevel(level slog.Level) {
	s.logLevel.Set(level)
}

// Reload reads the harness config from disk and swaps it in atomically.
// In-progress runs keep the config they started with.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.cfg.HarnessConfig)
	if err != nil {
		return err
	}

	s.deps.Store(&serverDeps{config: &cfg})

	s.logger.Info("harness configuration loaded", "config_path", s.cfg.HarnessConfig)

	return nil
}

// Config returns the current harness configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// ServerProperties returns metadata about this server instance.
func (s *Server) ServerProperties() types.ServerProperties {
	return s.props
}

// AvailableSuites returns the registered suite names in sorted order.
func (s *Server) AvailableSuites() []string {
	return suites.Names()
}

// NextRun returns the next scheduled run time, or nil if no cron trigger is
// configured.
func (s *Server) NextRun() *time.Time {
	if s.cron == nil {
		return nil
	}
	next := s.cron.NextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

// Status returns the current run status by delegating to the runner.
func (s *Server) Status() runner.RunStatus {
	return s.runner.Status()
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// Configured cron triggers are started automatically.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listener.Addr,
		Handler:      s.routes(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if s.cfg.TLS.Enabled() {
		loader, err := NewCertLoader(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile, s.logger)
		if err != nil {
			return fmt.Errorf("loading tls certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: loader.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
	}

	if s.cron != nil {
		s.logger.Info("starting cron triggers", "next_run", s.cron.NextRun())
		s.cron.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.cfg.Listener.Addr,
			"history_backend", s.cfg.History.Backend,
			"tls", s.cfg.TLS.Enabled(),
		)
		var err error
		if s.cfg.TLS.Enabled() {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.closeStore()
		return err
	}
}

// closeStore releases the history store's resources, if it holds any.
func (s *Server) closeStore() {
	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("failed to close history store", "error", err)
		}
	}
}

// routes builds the HTTP handler with all endpoints and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /metrics", s.registry.Handler())
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("GET /api/suites", handlers.NewAvailableSuitesHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))
	mux.Handle("GET /history", handlers.NewHistoryHandler(s.runner))
	mux.Handle("GET /history/logs", handlers.NewHistoryLogsHandler(s.runner))

	// Run triggering is rate limited to absorb misbehaving clients.
	runLimiter := rate.NewLimiter(rate.Limit(s.cfg.RunsPerMinute/60), s.cfg.RunBurst)
	mux.Handle("POST /run", middleware.RateLimit(runLimiter)(handlers.NewRunHandler(s.runner)))

	// Only stores with a reload operation get the endpoint.
	if reloadable, ok := s.store.(handlers.ReloadableStore); ok {
		mux.Handle("POST /history/reload", handlers.NewStoreReloadHandler(s.logger, reloadable))
	}

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
