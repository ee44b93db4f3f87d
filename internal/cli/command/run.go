package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokvault-go/internal/config"
	"github.com/yndnr/tokvault-go/internal/infra/confloader"
	"github.com/yndnr/tokvault-go/internal/infra/shutdown"
	"github.com/yndnr/tokvault-go/internal/telemetry/logger"
)

// RunCommand keeps the store open with the background sweeper running
// until interrupted.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the expiry sweeper and serve metrics until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Time allowed for shutdown hooks",
				Value: shutdown.DefaultTimeout,
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	log := logger.L(c.Context)

	if err := rt.unlock(c.Context, openOptions{metricsInterval: rt.cfg.Metrics.Interval}); err != nil {
		return err
	}

	handler := shutdown.NewHandler(c.Duration("shutdown-timeout"), rt.log.Slog())

	if addr := rt.cfg.Metrics.Addr; addr != "" {
		srv := newMetricsServer(addr, rt)
		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				handler.Trigger()
			}
		}()
		handler.OnShutdown("metrics-server", func(ctx context.Context) error {
			select {
			case err := <-errCh:
				return fmt.Errorf("serve metrics: %w", err)
			default:
			}
			return srv.Shutdown(ctx)
		})
		log.Info("serving metrics", "addr", addr)
	}

	if rt.cfgPath != "" {
		watcher, err := watchConfig(rt)
		if err != nil {
			return err
		}
		handler.OnShutdown("config-watcher", func(context.Context) error {
			return watcher.Stop()
		})
	}

	log.Info("tokvault running",
		"engine", rt.cfg.Storage.Engine,
		"key_source", string(rt.svc.KeySource()),
		"sweeper", rt.svc.SweeperRunning())

	return handler.Wait(c.Context)
}

func newMetricsServer(addr string, rt *runtime) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// watchConfig reloads the configuration file on change and applies the
// settings that can change at runtime. Other changes need a restart.
func watchConfig(rt *runtime) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.log.Slog()))
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Watch(rt.cfgPath); err != nil {
		w.Stop()
		return nil, fmt.Errorf("watch %s: %w", rt.cfgPath, err)
	}

	w.OnChange(func(path string) {
		cfg := config.Default()
		if err := rt.loader.Reload(cfg); err != nil {
			rt.log.Error("config reload failed", "file", path, "error", err)
			return
		}
		if err := config.Verify(cfg); err != nil {
			rt.log.Error("reloaded config is invalid", "file", path, "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			rt.log.Error("apply log level", "error", err)
			return
		}
		rt.log.Info("config reloaded", "file", path, "log_level", logger.GetLevel())
	})
	w.StartAsync()
	return w, nil
}
