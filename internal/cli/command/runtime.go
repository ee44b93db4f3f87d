package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/yndnr/tokvault-go/internal/cli/output"
	"github.com/yndnr/tokvault-go/internal/config"
	"github.com/yndnr/tokvault-go/internal/core/service"
	"github.com/yndnr/tokvault-go/internal/infra/confloader"
	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/internal/storage"
	"github.com/yndnr/tokvault-go/internal/storage/codec"
	"github.com/yndnr/tokvault-go/internal/storage/memory"
	"github.com/yndnr/tokvault-go/internal/telemetry/logger"
	"github.com/yndnr/tokvault-go/internal/telemetry/metric"
)

// runtime holds the per-invocation state of a command.
type runtime struct {
	cfg        *config.Config
	cfgPath    string
	loader     *confloader.Loader
	passphrase string
	log        logger.Logger
	formatter  output.Formatter
	stdout     io.Writer
	stderr     io.Writer

	dict    storage.Dict
	badger  *storage.BadgerDict
	keys    *keymgr.Manager
	codec   *codec.Codec
	store   *storage.Store
	svc     *service.SecureStore
	metrics *metric.Registry
}

type openOptions struct {
	// metricsInterval > 0 keeps refreshing badger size gauges.
	metricsInterval time.Duration
}

// open opens the dictionary and builds the store and facade.
func (rt *runtime) open(opts openOptions) error {
	if rt.svc != nil {
		return nil
	}
	slog := rt.log.Slog()

	params, err := rt.cfg.Crypto.KDFParams()
	if err != nil {
		return err
	}
	cipherType, err := rt.cfg.Crypto.CipherType()
	if err != nil {
		return err
	}

	rt.metrics = metric.NewRegistry()

	switch rt.cfg.Storage.Engine {
	case config.EngineMemory:
		rt.dict = memory.New()
	default:
		if err := os.MkdirAll(rt.cfg.Storage.DataDir, 0o700); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		bd, err := storage.OpenBadger(rt.cfg.Storage.BadgerConfig(), slog)
		if err != nil {
			return err
		}
		bd.RegisterMetrics(rt.metrics.Prometheus(), opts.metricsInterval)
		rt.badger = bd
		rt.dict = bd
	}

	rt.keys = keymgr.New(params, slog)
	// On error the dictionary stays open for close to release.
	rt.codec, err = codec.New(rt.keys, cipherType, nil)
	if err != nil {
		return err
	}

	rt.store = storage.NewStore(rt.dict, rt.codec,
		storage.WithNamespace(rt.cfg.Storage.Namespace),
		storage.WithDeleteRateLimit(rt.cfg.Sweep.MaxDeletesPerSec),
		storage.WithMetrics(rt.metrics.Store),
		storage.WithLogger(slog),
	)
	rt.svc = service.New(rt.store, rt.keys, &service.Config{
		Policy:        rt.cfg.Policy.ServicePolicy(),
		SweepInterval: rt.cfg.Sweep.Interval,
		Logger:        slog,
	})

	rt.log.Debug("store opened", "engine", rt.cfg.Storage.Engine, "namespace", rt.store.Namespace())
	return nil
}

// unlock opens the store and establishes the master key.
func (rt *runtime) unlock(ctx context.Context, opts openOptions) error {
	if err := rt.open(opts); err != nil {
		return err
	}

	pass, err := rt.resolvePassphrase()
	if err != nil {
		return err
	}
	if pass == "" {
		rt.log.Warn("no passphrase given, using a session key; encrypted values will not be readable later")
	}

	var spin *output.Spinner
	if pass != "" && isTerminal(os.Stderr) {
		spin = output.NewSpinner(rt.stderr, "deriving key")
		spin.Start()
	}

	err = rt.svc.Initialize(ctx, pass)
	if spin != nil {
		spin.Stop()
	}
	return err
}

func (rt *runtime) resolvePassphrase() (string, error) {
	if rt.passphrase != "" || !isTerminal(os.Stdin) {
		return rt.passphrase, nil
	}

	fmt.Fprint(rt.stderr, "Passphrase (empty for a session key): ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(rt.stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(pass), nil
}

// close releases everything open. Safe to call when nothing was opened.
func (rt *runtime) close() error {
	var errs []error
	if rt.svc != nil {
		errs = append(errs, rt.svc.Close())
	}
	if rt.codec != nil {
		errs = append(errs, rt.codec.Close())
	}
	if rt.dict != nil {
		errs = append(errs, rt.dict.Close())
	}
	rt.svc, rt.codec, rt.dict, rt.badger = nil, nil, nil, nil
	return errors.Join(errs...)
}

func (rt *runtime) print(data any) error {
	return rt.formatter.Format(rt.stdout, data)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
