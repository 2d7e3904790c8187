package foreman

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StepRunner executes one claimed step to a terminal report. *Executor
// implements it; tests substitute fakes.
type StepRunner interface {
	Execute(ctx context.Context, step Step) error
}

// Daemon is the top-level dispatch loop: it polls for pending steps, runs up
// to a fixed number of them concurrently, emits heartbeats, refreshes the
// key snapshot, and drains gracefully on shutdown.
//
// The control loop never blocks on a step: each claimed step runs on its own
// goroutine and unregisters itself from the in-flight map when done. The map
// mutex is held only for map reads and writes, never across a network call.
type Daemon struct {
	coord  Coordinator
	keys   *KeySnapshot
	runner StepRunner
	logger *slog.Logger

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	keySyncInterval   time.Duration
	sleepIncrement    time.Duration
	maxConcurrent     int

	mu       sync.Mutex
	inflight map[string]struct{}
	ok       int
	failed   int

	wg sync.WaitGroup
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// DaemonLogger sets a structured logger. If not set, no logs are emitted.
func DaemonLogger(l *slog.Logger) DaemonOption {
	return func(d *Daemon) { d.logger = l }
}

// DaemonPollInterval sets the pause between polls (default 8s).
func DaemonPollInterval(v time.Duration) DaemonOption {
	return func(d *Daemon) { d.pollInterval = v }
}

// DaemonMaxConcurrent bounds simultaneous step executions (default 4).
func DaemonMaxConcurrent(n int) DaemonOption {
	return func(d *Daemon) { d.maxConcurrent = n }
}

// DaemonHeartbeatInterval sets the liveness ping cadence (default 60s).
func DaemonHeartbeatInterval(v time.Duration) DaemonOption {
	return func(d *Daemon) { d.heartbeatInterval = v }
}

// DaemonKeySyncInterval sets the key snapshot refresh cadence (default 30s).
func DaemonKeySyncInterval(v time.Duration) DaemonOption {
	return func(d *Daemon) { d.keySyncInterval = v }
}

// DaemonSleepIncrement sets the shutdown-check granularity of the poll sleep
// (default 1s). Shutdown latency is bounded by this, not the poll interval.
func DaemonSleepIncrement(v time.Duration) DaemonOption {
	return func(d *Daemon) { d.sleepIncrement = v }
}

// NewDaemon creates a Daemon.
func NewDaemon(coord Coordinator, keys *KeySnapshot, runner StepRunner, opts ...DaemonOption) *Daemon {
	d := &Daemon{
		coord:             coord,
		keys:              keys,
		runner:            runner,
		logger:            nopLogger,
		pollInterval:      8 * time.Second,
		heartbeatInterval: 60 * time.Second,
		keySyncInterval:   30 * time.Second,
		sleepIncrement:    time.Second,
		maxConcurrent:     4,
		inflight:          map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run blocks until ctx is cancelled, then waits for all in-flight steps to
// finish (graceful drain; per-call timeouts bound the wait) before
// returning. Only cancellation stops the loop — a failed poll or a failed
// step never does.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("daemon starting",
		"poll_interval", d.pollInterval,
		"max_concurrent", d.maxConcurrent,
		"heartbeat_interval", d.heartbeatInterval,
		"key_sync_interval", d.keySyncInterval)

	if err := d.keys.Refresh(); err != nil {
		d.logger.Warn("initial key load failed", "error", err)
	}
	d.logger.Info("keys loaded", "count", d.keys.Len(), "providers", d.keys.Providers())

	d.coord.Heartbeat(ctx, "online", "Workflow daemon started")

	var lastHeartbeat, lastKeySync time.Time
	for {
		if ctx.Err() != nil {
			break
		}

		now := time.Now()

		if now.Sub(lastHeartbeat) >= d.heartbeatInterval {
			ok, failed, active := d.stats()
			d.coord.Heartbeat(ctx, "online",
				fmt.Sprintf("Running | ok=%d err=%d active=%d", ok, failed, active))
			lastHeartbeat = now
		}

		if now.Sub(lastKeySync) >= d.keySyncInterval {
			if err := d.keys.Refresh(); err != nil {
				d.logger.Warn("key refresh failed", "error", err)
			}
			lastKeySync = now
		}

		d.dispatch(ctx)
		d.sleep(ctx)
	}

	d.logger.Info("shutting down, draining in-flight steps")
	d.coord.Heartbeat(context.WithoutCancel(ctx), "offline", "Workflow daemon stopped")
	d.wg.Wait()
	ok, failed, _ := d.stats()
	d.logger.Info("daemon stopped", "processed", ok, "failed", failed)
}

// dispatch polls for pending steps and starts execution for each one not
// already in flight, up to remaining capacity.
func (d *Daemon) dispatch(ctx context.Context) {
	d.mu.Lock()
	slots := d.maxConcurrent - len(d.inflight)
	d.mu.Unlock()
	if slots <= 0 {
		return
	}

	pending := d.coord.PendingSteps(ctx)
	if len(pending) == 0 {
		return
	}

	started := 0
	for _, step := range pending {
		if started >= slots {
			break
		}
		if !d.claim(step.ID) {
			continue
		}
		started++
		d.wg.Add(1)
		go d.work(ctx, step)
	}
	if started > 0 {
		_, _, active := d.stats()
		d.logger.Info("dispatched steps",
			"started", started, "pending", len(pending), "active", active)
	}
}

// claim registers a step id in the in-flight map; false means it is already
// running, which blocks the duplicate dispatch a re-polled step would cause.
func (d *Daemon) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, running := d.inflight[id]; running {
		return false
	}
	if len(d.inflight) >= d.maxConcurrent {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

// work runs one step and reaps it: updates counters, removes it from the
// in-flight map, and absorbs any panic that escaped the executor boundary,
// counting it as a failure instead of crashing the loop.
func (d *Daemon) work(ctx context.Context, step Step) {
	var execErr error
	defer func() {
		if p := recover(); p != nil {
			execErr = fmt.Errorf("panic: %v", p)
			d.logger.Error("unhandled panic in step", "step", ShortID(step.ID), "panic", p)
		}
		d.mu.Lock()
		delete(d.inflight, step.ID)
		if execErr != nil {
			d.failed++
		} else {
			d.ok++
		}
		d.mu.Unlock()
		d.wg.Done()
	}()
	// The step itself is not cancelled on shutdown; it runs to completion
	// and only per-call timeouts can interrupt it.
	execErr = d.runner.Execute(context.WithoutCancel(ctx), step)
}

// sleep pauses up to the poll interval in small increments, returning early
// on cancellation.
func (d *Daemon) sleep(ctx context.Context) {
	remaining := d.pollInterval
	for remaining > 0 {
		inc := d.sleepIncrement
		if inc > remaining {
			inc = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(inc):
		}
		remaining -= inc
	}
}

// stats returns the counters and in-flight size under the map mutex.
func (d *Daemon) stats() (ok, failed, active int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ok, d.failed, len(d.inflight)
}
