package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shilohnova/internal/observability/metrics"
)

// sessionSweeper is the slice of the session manager the background sweep
// needs.
type sessionSweeper interface {
	PurgeExpired() error
}

type sweepTicker interface {
	C() <-chan time.Time
	Stop()
}

type wallClockTicker struct {
	ticker *time.Ticker
}

func (t wallClockTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t wallClockTicker) Stop() {
	t.ticker.Stop()
}

type sweepTickerFactory func(time.Duration) sweepTicker

// startSessionPurgeWorker sweeps expired session tokens out of the store on a
// fixed interval until ctx ends. Expired tokens are already rejected at
// validation time; the sweep only bounds store growth, so a failed pass is
// logged and retried on the next tick. The returned stop function blocks
// until the worker has exited and may be called more than once.
func startSessionPurgeWorker(ctx context.Context, logger *slog.Logger, recorder *metrics.Recorder, sessions sessionSweeper, interval time.Duration) func() {
	return startSessionPurgeWorkerWithTicker(ctx, logger, recorder, sessions, interval, func(d time.Duration) sweepTicker {
		return wallClockTicker{ticker: time.NewTicker(d)}
	})
}

func startSessionPurgeWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	recorder *metrics.Recorder,
	sessions sessionSweeper,
	interval time.Duration,
	newTicker sweepTickerFactory,
) func() {
	if sessions == nil || interval <= 0 {
		return func() {}
	}
	if recorder == nil {
		recorder = metrics.Default()
	}
	workerCtx, cancel := context.WithCancel(ctx)
	ticker := newTicker(interval)
	done := make(chan struct{})
	go func() {
		defer func() {
			ticker.Stop()
			close(done)
		}()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C():
				if err := sessions.PurgeExpired(); err != nil {
					if logger != nil {
						logger.Error("session sweep failed", "error", err)
					}
					continue
				}
				recorder.ObserveSessionEvent("purged")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
