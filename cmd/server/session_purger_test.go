package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shilohnova/internal/observability/metrics"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped = true }

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *fakeSweeper) PurgeExpired() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *fakeSweeper) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func hasSessionEventLine(recorder *metrics.Recorder, line string) bool {
	var out strings.Builder
	recorder.Write(&out)
	return strings.Contains(out.String(), line)
}

func TestSessionPurgeWorkerSweepsOnTick(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time)}
	sweeper := &fakeSweeper{}
	recorder := metrics.New()

	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, recorder, sweeper, time.Minute, func(time.Duration) sweepTicker {
		return ticker
	})

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	stop()

	if got := sweeper.callCount(); got != 2 {
		t.Fatalf("expected 2 sweeps, got %d", got)
	}
	if !ticker.stopped {
		t.Fatal("ticker should be stopped on shutdown")
	}
	if !hasSessionEventLine(recorder, `shilohnova_session_events_total{event="purged"} 2`) {
		t.Fatal("each successful sweep should be counted as a purged event")
	}
}

func TestSessionPurgeWorkerSurvivesErrors(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time)}
	sweeper := &fakeSweeper{err: errors.New("store offline")}
	recorder := metrics.New()

	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, recorder, sweeper, time.Minute, func(time.Duration) sweepTicker {
		return ticker
	})

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	stop()

	if got := sweeper.callCount(); got != 2 {
		t.Fatalf("worker must keep running after a failed sweep, got %d calls", got)
	}
	if hasSessionEventLine(recorder, `event="purged"`) {
		t.Fatal("failed sweeps must not be counted as purged events")
	}
}

func TestSessionPurgeWorkerStopIsIdempotent(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time)}
	stop := startSessionPurgeWorkerWithTicker(context.Background(), nil, metrics.New(), &fakeSweeper{}, time.Minute, func(time.Duration) sweepTicker {
		return ticker
	})
	stop()
	stop()
}

func TestSessionPurgeWorkerDisabled(t *testing.T) {
	stop := startSessionPurgeWorker(context.Background(), nil, nil, nil, time.Minute)
	stop()

	stop = startSessionPurgeWorker(context.Background(), nil, nil, &fakeSweeper{}, 0)
	stop()
}

func TestSessionPurgeWorkerStopsWithContext(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time)}
	ctx, cancel := context.WithCancel(context.Background())
	stop := startSessionPurgeWorkerWithTicker(ctx, nil, metrics.New(), &fakeSweeper{}, time.Minute, func(time.Duration) sweepTicker {
		return ticker
	})
	cancel()
	stop()
	if !ticker.stopped {
		t.Fatal("ticker should be stopped when the context ends")
	}
}
