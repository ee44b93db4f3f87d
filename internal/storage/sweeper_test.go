package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yndnr/tokvault-go/internal/core/domain"
)

type countingTarget struct {
	calls chan struct{}
	err   error
}

func (c *countingTarget) SweepExpired(ctx context.Context) (int, error) {
	err := c.err
	select {
	case c.calls <- struct{}{}:
	case <-ctx.Done():
	}
	return 0, err
}

func waitCall(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sweep")
	}
}

func TestSweeper_TicksOnClock(t *testing.T) {
	mock := clock.NewMock()
	target := &countingTarget{calls: make(chan struct{}, 4)}
	w := NewSweeper(target, 5*time.Minute, mock, nil)

	if !w.Start() {
		t.Fatal("Start() should report true")
	}
	defer w.Stop()

	mock.Add(5 * time.Minute)
	waitCall(t, target.calls)

	mock.Add(5 * time.Minute)
	waitCall(t, target.calls)
}

func TestSweeper_StartStopIdempotent(t *testing.T) {
	mock := clock.NewMock()
	target := &countingTarget{calls: make(chan struct{}, 4)}
	w := NewSweeper(target, time.Minute, mock, nil)

	w.Stop() // not running

	if !w.Start() {
		t.Fatal("first Start() should report true")
	}
	if w.Start() {
		t.Error("second Start() should report false")
	}
	if !w.Running() {
		t.Error("Running() should be true")
	}

	w.Stop()
	w.Stop()
	if w.Running() {
		t.Error("Running() should be false after Stop")
	}

	mock.Add(10 * time.Minute)
	select {
	case <-target.calls:
		t.Error("stopped sweeper should not sweep")
	case <-time.After(50 * time.Millisecond):
	}

	if !w.Start() {
		t.Error("Start() after Stop should report true")
	}
	w.Stop()
}

func TestSweeper_Disabled(t *testing.T) {
	w := NewSweeper(&countingTarget{calls: make(chan struct{}, 1)}, 0, clock.NewMock(), nil)
	if w.Start() {
		t.Error("Start() with zero interval should report false")
	}
	if w.Running() {
		t.Error("disabled sweeper should not run")
	}
	w.Stop()
}

func TestSweeper_KeepsRunningAfterErrors(t *testing.T) {
	mock := clock.NewMock()
	target := &countingTarget{calls: make(chan struct{}, 4), err: errors.New("disk unhappy")}
	w := NewSweeper(target, time.Minute, mock, nil)
	w.Start()
	defer w.Stop()

	mock.Add(time.Minute)
	waitCall(t, target.calls)

	target.err = domain.ErrSweepInProgress
	mock.Add(time.Minute)
	waitCall(t, target.calls)

	if !w.Running() {
		t.Error("sweeper should keep running after sweep errors")
	}
}
