// Package server provides the diagnostics HTTP server for a running robot.
//
// The server never touches the subsystem tree directly. It reads the
// snapshots the control loop publishes and hands mode and routine changes
// back to the loop, which applies them at the start of its next tick.
//
// # Endpoints
//
//   - GET /health - "ok" while the loop keeps publishing snapshots
//   - GET /api/status - Build info, latest snapshot and next diagnostics run
//   - GET /api/automodes - Autonomous routines and the selected index
//   - POST /api/automodes/select - Selects an autonomous routine
//   - POST /api/mode - Requests a robot mode change
//   - GET /api/logs - Captured log entries, optionally for one subsystem
//   - GET /api/history - Completed mode periods
//   - GET /config - Returns current configuration as YAML (?view=settings for the robot settings)
//   - POST /reload - Reloads configuration and settings from disk, reporting the files read
//   - GET /metrics - Prometheus metrics, when scraping is enabled
//
// # Architecture
//
// Config-derived dependencies are swapped atomically on reload. The
// settings store is reloaded in place so subsystems holding it see the new
// values on their next read.
//
// # Example
//
//	srv, err := server.New("/etc/xerobot/config.yaml", rb, server.WithSelector(sel))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/buildinfo"
	"github.com/xero1425/xerobot/config"
	"github.com/xero1425/xerobot/history"
	"github.com/xero1425/xerobot/logging"
	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/server/cron"
	"github.com/xero1425/xerobot/server/handlers"
	"github.com/xero1425/xerobot/server/types"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	minHealthAge           = time.Second
	healthPeriods          = 10
)

// ErrFixedSelection is returned when no selector was given to the server.
var ErrFixedSelection = errors.New("auto mode selection is fixed")

// Robot is the view of the control loop the server needs.
type Robot interface {
	Root() *subsystem.Subsystem
	Snapshots() *robot.SnapshotStore
	AutoModes() []auto.ModeInfo
	RequestMode(mode subsystem.Mode)
}

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
}

// Server is the diagnostics HTTP server.
type Server struct {
	addr       string
	configPath string
	logger     *slog.Logger
	deps       atomic.Pointer[serverDeps]
	httpServer *http.Server
	startedAt  time.Time

	robot     Robot
	selector  *auto.StaticSelector
	settings  *settings.Settings
	history   history.Store
	collector *logging.LogCollector
	metrics   http.Handler
	certs     *CertLoader

	cronSpecs []cron.TriggerSpec
	cron      *cron.CronTriggerManager
}

// Option configures a Server.
type Option func(*Server) error

// WithCron replaces the diagnostics schedule from the config file.
func WithCron(specs []cron.TriggerSpec) Option {
	return func(s *Server) error {
		s.cronSpecs = specs
		return nil
	}
}

// WithListenAddr overrides the listener address from the config file.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogger sets the server's logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithSelector lets clients change the autonomous routine.
func WithSelector(sel *auto.StaticSelector) Option {
	return func(s *Server) error {
		s.selector = sel
		return nil
	}
}

// WithSettings reloads st from the configured settings file on every reload.
func WithSettings(st *settings.Settings) Option {
	return func(s *Server) error {
		s.settings = st
		return nil
	}
}

// WithHistory serves mode periods from store.
func WithHistory(store history.Store) Option {
	return func(s *Server) error {
		s.history = store
		return nil
	}
}

// WithLogCollector serves captured log entries.
func WithLogCollector(c *logging.LogCollector) Option {
	return func(s *Server) error {
		s.collector = c
		return nil
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) error {
		s.metrics = h
		return nil
	}
}

// New creates a server for rb, loading the config at configPath.
func New(configPath string, rb Robot, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		logger:     slog.Default(),
		robot:      rb,
		startedAt:  time.Now(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")

	if _, err := s.Reload(); err != nil {
		return nil, err
	}

	cfg := s.Config()
	if s.addr == "" {
		s.addr = cfg.Server.Listener.Addr
	}
	if cfg.Server.Listener.TLS() {
		certs, err := NewCertLoader(cfg.Server.Listener.CertFile, cfg.Server.Listener.KeyFile, s.logger)
		if err != nil {
			return nil, err
		}
		s.certs = certs
	}

	specs := s.cronSpecs
	if specs == nil {
		var err error
		if specs, err = cron.SpecsFromConfig(cfg.Server.Cron, cron.AvailableJobs()); err != nil {
			return nil, fmt.Errorf("parsing cron triggers: %w", err)
		}
	}
	if len(specs) > 0 {
		diag := cron.NewDiagnostics(rb.Snapshots(), s.logger)
		manager, err := cron.NewCronTriggerManager(specs, diag, s.logger)
		if err != nil {
			return nil, err
		}
		s.cron = manager
	}

	return s, nil
}

// Reload reads the config from disk, then the settings file it names.
// The config is only swapped in once both have loaded; a failure is a
// *types.ReloadError naming the file.
func (s *Server) Reload() (types.ReloadResult, error) {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return types.ReloadResult{}, &types.ReloadError{File: types.ReloadConfig, Path: s.configPath, Err: err}
	}

	res := types.ReloadResult{ConfigPath: s.configPath}
	if s.settings != nil && cfg.Settings != "" {
		if err := s.settings.Reload(cfg.Settings); err != nil {
			return types.ReloadResult{}, &types.ReloadError{File: types.ReloadSettings, Path: cfg.Settings, Err: err}
		}
		res.SettingsPath = cfg.Settings
		res.SettingKeys = len(s.settings.Keys(""))
	}

	s.deps.Store(&serverDeps{config: &cfg})
	res.ReloadedAt = time.Now()
	s.logger.Info("configuration loaded",
		"config_path", res.ConfigPath,
		"settings_path", res.SettingsPath,
		"setting_keys", res.SettingKeys,
	)
	return res, nil
}

// Settings returns the robot settings the server reloads, or nil when the
// robot runs on its built-in settings.
func (s *Server) Settings() *settings.Settings {
	return s.settings
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Snapshot returns the latest state published by the control loop.
func (s *Server) Snapshot() (robot.Snapshot, bool) {
	return s.robot.Snapshots().Get()
}

// Properties describes the running process.
func (s *Server) Properties() types.ServerProperties {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return types.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: s.startedAt,
		Hostname:  hostname,
		Robot:     s.robot.Root().Name(),
	}
}

// NextRun returns the next diagnostics run, or nil if no cron is configured.
func (s *Server) NextRun() *time.Time {
	if s.cron == nil {
		return nil
	}
	next := s.cron.NextRun()
	return &next
}

// AutoModes lists the autonomous routines.
func (s *Server) AutoModes() []auto.ModeInfo {
	return s.robot.AutoModes()
}

// SelectedAutoMode returns the index the selector currently holds.
func (s *Server) SelectedAutoMode() int {
	if s.selector == nil {
		if snap, ok := s.Snapshot(); ok && snap.AutoIndex != nil {
			return *snap.AutoIndex
		}
		return 0
	}
	return s.selector.AutoModeIndex()
}

// SelectAutoMode checks index against the available routines and hands it
// to the selector. The loop builds the routine on its next poll.
func (s *Server) SelectAutoMode(index int) error {
	if s.selector == nil {
		return ErrFixedSelection
	}
	if index < 0 {
		index = auto.TestModeIndex
	}

	var info *auto.ModeInfo
	modes := s.AutoModes()
	for i := range modes {
		if modes[i].Index == index {
			info = &modes[i]
			break
		}
	}
	switch {
	case info == nil && index == auto.TestModeIndex:
		return auto.ErrNoTestMode
	case info == nil:
		return fmt.Errorf("%w: %d", auto.ErrUnknownMode, index)
	case !info.Available:
		return fmt.Errorf("%w: %q: %s", auto.ErrModeUnavailable, info.Name, info.Error)
	}

	s.selector.Set(index)
	s.logger.Info("auto mode selection requested", "index", index, "mode", info.Name)
	return nil
}

// RequestMode forwards a mode change to the control loop.
func (s *Server) RequestMode(mode subsystem.Mode) {
	s.logger.Info("mode change requested", "mode", mode)
	s.robot.RequestMode(mode)
}

// Periods returns the completed mode periods, most recent first.
func (s *Server) Periods() []history.Period {
	if s.history == nil {
		return nil
	}
	return s.history.Periods()
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If cron triggers are configured, they are started first.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	if s.certs != nil {
		s.httpServer.TLSConfig = s.certs.TLSConfig()
	}

	if s.cron != nil {
		s.logger.Info("starting cron triggers",
			"triggers", s.cron.Len(),
			"next_run", s.cron.NextRun(),
		)
		s.cron.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.addr,
			"tls", s.certs != nil,
			"config_path", s.configPath,
		)
		var err error
		if s.certs != nil {
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
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthAge() time.Duration {
	age := healthPeriods * s.Config().Loop.Period
	if age < minHealthAge {
		return minHealthAge
	}
	return age
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	var logs handlers.LogProvider
	if s.collector != nil {
		logs = s.collector
	}

	mux.Handle("GET /health", handlers.NewHealthHandler(s, s.healthAge()))
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("GET /api/automodes", handlers.NewAutoModesHandler(s))
	mux.Handle("POST /api/automodes/select", handlers.NewSelectAutoModeHandler(s))
	mux.Handle("POST /api/mode", handlers.NewModeHandler(s))
	mux.Handle("GET /api/logs", handlers.NewLogsHandler(logs))
	mux.Handle("GET /api/history", handlers.NewHistoryHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}
