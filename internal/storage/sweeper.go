package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yndnr/tokvault-go/internal/core/domain"
)

// DefaultSweepInterval is the default period between expiry sweeps.
const DefaultSweepInterval = 5 * time.Minute

// Sweepable is anything that can remove its expired entries.
type Sweepable interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs SweepExpired periodically on an injected clock.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewSweeper creates a stopped sweeper. A non-positive interval disables it.
func NewSweeper(target Sweepable, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Sweeper {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Start begins periodic sweeping. It reports false if the sweeper is
// disabled or already running.
func (w *Sweeper) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.interval <= 0 || w.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := w.clock.Ticker(w.interval)
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go w.loop(ctx, ticker, w.doneCh)

	w.logger.Debug("sweeper started", "interval", w.interval)
	return true
}

// Stop cancels any in-flight sweep and waits for the loop to exit.
// Safe to call when not running.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.doneCh
	w.cancel, w.doneCh = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Debug("sweeper stopped")
}

// Running reports whether the loop is active.
func (w *Sweeper) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Sweeper) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.target.SweepExpired(ctx); err != nil {
				switch {
				case errors.Is(err, domain.ErrSweepInProgress):
					w.logger.Debug("sweep skipped, previous sweep still running")
				case ctx.Err() != nil:
					return
				default:
					w.logger.Error("periodic sweep failed", "error", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
