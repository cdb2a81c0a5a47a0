// Command robotsim runs the simulated robot: the control loop, the
// diagnostics server and a scripted sequence of matches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/automodes"
	"github.com/xero1425/xerobot/buildinfo"
	"github.com/xero1425/xerobot/clock"
	"github.com/xero1425/xerobot/config"
	"github.com/xero1425/xerobot/history"
	"github.com/xero1425/xerobot/logging"
	"github.com/xero1425/xerobot/metrics"
	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/server"
	"github.com/xero1425/xerobot/server/cron"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Cron        string
	Serve       bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	if args.ShowVersion {
		fmt.Printf("robotsim %s\n", buildinfo.Get())
		return nil
	}
	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	props := buildinfo.Get()
	logger.Info("robotsim started",
		"version", props.Version,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	var (
		registry       metrics.Registry
		metricsHandler http.Handler
		push           *metrics.PushRegistry
	)
	switch cfg.Monitoring.Mode {
	case config.MetricsScrape:
		scrape, err := metrics.NewScrapeRegistry()
		if err != nil {
			return fmt.Errorf("failed to create metrics registry: %w", err)
		}
		registry, metricsHandler = scrape, scrape.Handler()
	case config.MetricsPush:
		instance := cfg.Monitoring.Instance
		if instance == "" {
			if instance, err = os.Hostname(); err != nil {
				return fmt.Errorf("failed to get hostname: %w", err)
			}
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: instance,
			Interval: cfg.Monitoring.PushInterval,
			Logger:   logger.Logger,
		})
		registry = push
	}

	envOpts := []action.EnvOption{
		action.WithLogger(logger.Logger),
		action.WithClock(clock.NewSystemClock()),
	}
	robotOpts := []robot.Option{robot.WithPeriod(cfg.Loop.Period)}
	if registry != nil {
		instruments, err := metrics.NewRobot(registry, modeNames())
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		envOpts = append(envOpts, action.WithObserver(instruments))
		robotOpts = append(robotOpts, robot.WithInstruments(instruments))
	}
	env := action.NewEnv(envOpts...)

	// Robot
	st, err := loadSettings(cfg.Settings)
	if err != nil {
		return err
	}
	tree, err := automodes.NewTree(env, st)
	if err != nil {
		return fmt.Errorf("failed to build robot: %w", err)
	}
	driver, err := automodes.NewDriver(env, tree)
	if err != nil {
		return fmt.Errorf("failed to create teleop driver: %w", err)
	}
	selector := auto.NewStaticSelector(cfg.Auto.Selection)
	controller := tree.NewController(env, auto.WithLogger(logger.With("component", "auto")))

	var periods history.Store
	if cfg.Server.StateDir != "" {
		if periods, err = history.NewDiskStore(cfg.Server.StateDir, cfg.Server.HistorySize, logger.Logger); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
	} else {
		periods = history.NewMemoryStore(cfg.Server.HistorySize)
	}

	robotOpts = append(robotOpts,
		robot.WithSelector(selector),
		robot.WithTeleop(driver),
		robot.WithHistory(periods),
	)
	rb := robot.New(env, tree.Root, controller, robotOpts...)

	// Diagnostics server
	srvOpts := []server.Option{
		server.WithLogger(logger.Logger),
		server.WithSelector(selector),
		server.WithHistory(periods),
	}
	if cfg.Settings != "" {
		srvOpts = append(srvOpts, server.WithSettings(st))
	}
	if c := logger.Collector(); c != nil {
		srvOpts = append(srvOpts, server.WithLogCollector(c))
	}
	if metricsHandler != nil {
		srvOpts = append(srvOpts, server.WithMetricsHandler(metricsHandler))
	}
	if args.Cron != "" {
		specs, err := cron.ParseTriggerSpecs(args.Cron, cron.AvailableJobs())
		if err != nil {
			return fmt.Errorf("invalid cron flag: %w", err)
		}
		srvOpts = append(srvOpts, server.WithCron(specs))
	}
	srv, err := server.New(args.ConfigPath, rb, srvOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	goRun := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}

	goRun(rb.Execute)
	goRun(srv.Run)
	if push != nil {
		goRun(push.Run)
	}

	if playMatches(ctx, rb, cfg.Sim, logger.Logger) && args.Serve {
		logger.Info("matches done, serving diagnostics until interrupted")
		<-ctx.Done()
	}
	cancel()
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	logger.Info("robotsim stopped")
	return errors.Join(errs...)
}

func loadSettings(path string) (*settings.Settings, error) {
	if path == "" {
		return automodes.DefaultSettings()
	}
	st, err := settings.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return st, nil
}

func modeNames() []string {
	modes := []subsystem.Mode{subsystem.Disabled, subsystem.Autonomous, subsystem.Teleop, subsystem.Test}
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = m.String()
	}
	return out
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	cronSpec := flag.String("cron", "", "Diagnostics schedule, replaces the config file's (e.g. 'dump:@every 30s;summary:0 * * * *')")
	serve := flag.Bool("serve", false, "Keep serving diagnostics after the last match")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nSimulated robot with diagnostics server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config robot.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c robot.yaml --serve --cron 'dump:@every 10s'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	return Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
		Cron:        *cronSpec,
		Serve:       *serve,
	}
}
