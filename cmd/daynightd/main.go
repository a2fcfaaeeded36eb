// Package main is the entry point for the daynightd theme switching daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/daemon"
	"github.com/jmylchreest/daynight/internal/dbus"
	"github.com/jmylchreest/daynight/internal/engine"
	"github.com/jmylchreest/daynight/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	once := flag.Bool("once", false, "Run a single evaluation and exit")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/daynight/config.toml)")
	flag.Parse()

	if *showVersion {
		fmt.Println("daynightd version", version)
		os.Exit(0)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	if err := run(logger, path, *once); err != nil {
		logger.Error("daynightd failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfgPath string, once bool) error {
	logger.Info("starting daynightd", "version", version, "config", cfgPath)

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Activation.Configured {
		logger.Warn("not configured yet, evaluations are skipped until activation.configured is set (try: daynight pick)")
	}

	stateFile := store.NewStateFile(config.StatePath())
	state, err := stateFile.Load()
	if err != nil {
		logger.Warn("failed to load state", "path", stateFile.Path(), "error", err)
	}

	notifier := daemon.NewNotifier(dbus.NewNotifications(nil), logger)
	notifier.Configure(cfg.Notifications)

	eng, err := engine.New(engine.Options{
		Config:       cfg,
		SaveLocation: locationSaver(cfgPath),
		Warner:       notifier,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	eng.Restore(state)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		return runOnce(ctx, logger, eng, stateFile)
	}

	var server *dbus.ControlServer
	runner := daemon.NewRunner(daemon.RunnerOptions{
		Engine:    eng,
		StateFile: stateFile,
		Logger:    logger,
		Version:   version,
		OnEvaluation: func(ev *store.Evaluation, err error) {
			if server == nil {
				return
			}
			if err := server.EmitThemesChanged(ev); err != nil {
				logger.Debug("failed to emit ThemesChanged", "error", err)
			}
		},
	})

	server = dbus.NewControlServer(logger)
	server.SetEvaluateHandler(runner.Evaluate)
	server.SetStatusHandler(runner.Status)
	if err := server.Start(); err != nil {
		if errors.Is(err, dbus.ErrNameTaken) {
			return fmt.Errorf("daynightd is already running: %w", err)
		}
		logger.Warn("D-Bus control interface unavailable, continuing without it", "error", err)
		server = nil
	}
	defer func() {
		if server != nil {
			_ = server.Stop()
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0700); err != nil {
		logger.Warn("failed to create config directory", "error", err)
	}
	watcher, err := daemon.NewConfigWatcher(cfgPath, logger)
	if err != nil {
		logger.Warn("config hot-reload unavailable", "error", err)
	} else {
		watcher.SetReloadCallback(func(newConfig *config.Config) {
			notifier.Configure(newConfig.Notifications)
			runner.Reload(newConfig)
		})
		watcher.SetErrorCallback(notifier.NotifyConfigError)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return triggerOnSignal(gctx, logger, runner)
	})

	logger.Info("daynightd ready", "interval", eng.Interval(), "variant", cfg.Variant())
	err = g.Wait()
	logger.Info("daynightd stopped")
	return err
}

// runOnce evaluates a single time and persists the result.
func runOnce(ctx context.Context, logger *slog.Logger, eng *engine.Engine, stateFile *store.StateFile) error {
	ev, evalErr := eng.Evaluate(ctx, store.TriggerManual)

	state := eng.Snapshot()
	state.UpdatedAt = time.Now()
	if err := stateFile.Save(state); err != nil {
		logger.Warn("failed to save state", "path", stateFile.Path(), "error", err)
	}

	if ev != nil {
		logger.Info("evaluation complete",
			"id", ev.ID,
			"skipped", ev.Skipped,
			"phase", ev.Phase,
			"themes", ev.Desired,
			"wrote", ev.Wrote,
		)
	}
	return evalErr
}

// triggerOnSignal queues a manual evaluation on every SIGUSR1.
func triggerOnSignal(ctx context.Context, logger *slog.Logger, runner *daemon.Runner) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			logger.Info("received SIGUSR1, evaluating")
			runner.Trigger()
		}
	}
}

// locationSaver writes refreshed coordinates into the config file. The file
// is re-read first so edits made since startup are kept.
func locationSaver(cfgPath string) engine.LocationSaver {
	return func(lat, lng float64) error {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		if cfg.Location.Known() && *cfg.Location.Latitude == lat && *cfg.Location.Longitude == lng {
			return nil
		}
		cfg.Location.SetCoordinates(lat, lng)
		return cfg.Save(cfgPath)
	}
}
