package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/dshills/switchboard"
	"github.com/dshills/switchboard/internal/config"
	"github.com/dshills/switchboard/internal/config/watcher"
	"github.com/dshills/switchboard/internal/debug/introspect"
	"github.com/dshills/switchboard/internal/logging"
	"github.com/dshills/switchboard/internal/script"
)

// runHost starts the host and blocks until ctx is done.
func runHost(ctx context.Context, opts *options) error {
	app := fx.New(hostModule(opts), fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

// hostModule wires config, logging, the orchestrator, scripted components,
// the queue drain, the debug API and config reloading.
func hostModule(opts *options) fx.Option {
	return fx.Module("switchboard",
		fx.Supply(opts),
		fx.Provide(
			loadConfig,
			newLogger,
			newOrchestrator,
			newIntrospectServer,
		),
		fx.Invoke(
			registerComponents,
			registerQueueDrain,
			registerIntrospect,
			registerConfigWatcher,
		),
	)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	return logging.New(lc)
}

// orchestratorOut carries the introspector, which is nil unless the debug
// API is enabled.
type orchestratorOut struct {
	fx.Out

	Orchestrator *switchboard.Orchestrator
	Introspector *switchboard.Introspector
}

func newOrchestrator(cfg *config.Config, logger zerolog.Logger) (orchestratorOut, error) {
	var out orchestratorOut
	opts := []switchboard.Option{
		switchboard.WithConfig(cfg),
		switchboard.WithLogger(logger),
	}
	if cfg.Introspect.Enabled {
		opts = append(opts, switchboard.WithIntrospection(func(in *switchboard.Introspector) {
			out.Introspector = in
		}))
	}

	o, err := switchboard.New(opts...)
	if err != nil {
		return orchestratorOut{}, err
	}
	out.Orchestrator = o
	return out, nil
}

func newIntrospectServer(cfg *config.Config, o *switchboard.Orchestrator, in *switchboard.Introspector, logger zerolog.Logger) (*introspect.Server, error) {
	if in == nil {
		return nil, nil
	}
	return introspect.NewServer(cfg.Introspect.Addr, in, o.Collector(), logger)
}

// registerComponents loads the script directory on start and destroys
// every component on stop.
func registerComponents(lc fx.Lifecycle, cfg *config.Config, o *switchboard.Orchestrator, logger zerolog.Logger) {
	logger = logging.Component(logger, "host")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			dir := cfg.Components.ScriptDir
			if dir == "" {
				logger.Info().Msg("no script directory configured")
				return nil
			}

			comps, err := script.LoadDir(ctx, dir, script.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := script.Register(o, comps); err != nil {
				return err
			}

			report := o.InitializeComponents(ctx)
			logger.Info().
				Str("dir", dir).
				Int("components", len(comps)).
				Strs("initialized", report.Succeeded()).
				Strs("failed", report.Failed()).
				Msg("components started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := time.Duration(cfg.Components.ShutdownTimeout)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			report := o.DestroyComponents(ctx)
			if report.HasErrors() {
				logger.Warn().Strs("failed", report.Failed()).Msg("components destroyed with errors")
			}
			return nil
		},
	})
}

// registerQueueDrain delivers queued events on a fixed interval. It stops
// before components are destroyed. A zero interval leaves draining to
// scripts calling sb.process_queue.
func registerQueueDrain(lc fx.Lifecycle, cfg *config.Config, o *switchboard.Orchestrator, logger zerolog.Logger) {
	interval := cfg.Events.DrainInterval.Std()
	if interval <= 0 {
		return
	}
	logger = logging.Component(logger, "host")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				drainQueue(ctx, clock.New(), interval, o, logger)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func drainQueue(ctx context.Context, clk clock.Clock, interval time.Duration, o *switchboard.Orchestrator, logger zerolog.Logger) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := o.ProcessQueue(ctx); n > 0 {
				logger.Debug().Int("events", n).Msg("queue drained")
			}
		}
	}
}

func registerIntrospect(lc fx.Lifecycle, srv *introspect.Server) {
	if srv == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: srv.Shutdown,
	})
}

// registerConfigWatcher reapplies the security section when the config
// file changes. Other sections need a restart.
func registerConfigWatcher(lc fx.Lifecycle, opts *options, o *switchboard.Orchestrator, logger zerolog.Logger) {
	if !opts.Watch || opts.ConfigPath == "" {
		return
	}
	logger = logging.Component(logger, "host")

	var w *watcher.Watcher
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			w, err = watcher.New(watcher.WithLogger(logger))
			if err != nil {
				return err
			}
			w.OnChange(func(ev watcher.Event) {
				reloadSecurity(o, opts, ev, logger)
			})
			return w.Watch(opts.ConfigPath)
		},
		OnStop: func(context.Context) error {
			if w == nil {
				return nil
			}
			return w.Close()
		},
	})
}

func reloadSecurity(o *switchboard.Orchestrator, opts *options, ev watcher.Event, logger zerolog.Logger) {
	if ev.Op == watcher.OpRemove {
		logger.Warn().Str("path", ev.Path).Msg("config file removed; keeping current settings")
		return
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error().Err(err).Str("path", ev.Path).Msg("config reload failed")
		return
	}
	if err := o.ApplySecurityConfig(cfg.Security); err != nil {
		logger.Error().Err(err).Msg("security settings rejected")
	}
}
