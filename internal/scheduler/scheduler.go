// Package scheduler runs the periodic queue drain.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aims/internal/processor"
)

// ErrBusy is returned by TriggerNow when a tick is already in flight.
var ErrBusy = errors.New("a drain is already in progress")

// Drainer runs one processing pass.
type Drainer interface {
	Drain(ctx context.Context) (processor.Result, error)
}

// State is a read-only snapshot of the scheduler.
type State struct {
	Interval      time.Duration
	Running       bool
	Paused        bool
	LastTickStart *time.Time
	LastTickEnd   *time.Time
	ManualRuns    int64
	LastResult    *processor.Result
}

// Scheduler drives the processor on a fixed interval. Ticks never overlap:
// a tick that lands while the previous one is still running is skipped.
type Scheduler struct {
	interval  time.Duration
	gracePerd time.Duration
	drainer   Drainer
	log       *slog.Logger

	mu            sync.Mutex
	running       bool
	paused        bool
	firstTickDone bool
	lastTickStart *time.Time
	lastTickEnd   *time.Time
	manualRuns    int64
	lastResult    *processor.Result

	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler. gracePeriod bounds how long Stop waits for an
// in-flight tick.
func New(drainer Drainer, interval, gracePeriod time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		interval:  interval,
		gracePerd: gracePeriod,
		drainer:   drainer,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the tick loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	// The first tick after start is skipped so the process finishes
	// initializing before any drain runs.
	if !s.firstTickDone {
		s.firstTickDone = true
		s.mu.Unlock()
		s.log.Info("scheduler skipping first tick (startup)")
		return
	}
	if s.paused {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous tick still running, skipping")
		return
	}
	s.beginLocked()
	s.mu.Unlock()

	result, err := s.drainer.Drain(ctx)
	s.finish(result, err)
}

// TriggerNow runs a drain immediately, independent of the timer. It returns
// ErrBusy rather than queueing behind an in-flight tick.
func (s *Scheduler) TriggerNow(ctx context.Context) (processor.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return processor.Result{}, ErrBusy
	}
	s.beginLocked()
	s.manualRuns++
	s.firstTickDone = true
	s.mu.Unlock()

	result, err := s.drainer.Drain(ctx)
	s.finish(result, err)
	return result, err
}

// beginLocked marks a tick started. Callers hold s.mu.
func (s *Scheduler) beginLocked() {
	now := time.Now().UTC()
	s.running = true
	s.lastTickStart = &now
	s.lastTickEnd = nil
}

func (s *Scheduler) finish(result processor.Result, err error) {
	now := time.Now().UTC()

	s.mu.Lock()
	s.running = false
	s.lastTickEnd = &now
	s.lastResult = &result
	s.mu.Unlock()

	if err != nil {
		s.log.Error("drain failed", "error", err)
		return
	}
	if result.Processed+result.Failed+result.DeadLettered > 0 {
		s.log.Info("drain complete",
			"processed", result.Processed,
			"failed", result.Failed,
			"dead_lettered", result.DeadLettered)
	}
}

// Pause suspends periodic ticks. TriggerNow still works while paused.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.log.Info("scheduler paused")
}

// Resume re-enables periodic ticks.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.log.Info("scheduler resumed")
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Interval:   s.interval,
		Running:    s.running,
		Paused:     s.paused,
		ManualRuns: s.manualRuns,
	}
	if s.lastTickStart != nil {
		t := *s.lastTickStart
		state.LastTickStart = &t
	}
	if s.lastTickEnd != nil {
		t := *s.lastTickEnd
		state.LastTickEnd = &t
	}
	if s.lastResult != nil {
		r := *s.lastResult
		state.LastResult = &r
	}
	return state
}

// Stop halts the tick loop and waits for an in-flight tick to finish,
// bounded by the grace period.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// The loop has exited but a tick triggered just before may still be
	// running; wait out the grace period for it.
	deadline := time.NewTimer(s.gracePerd)
	defer deadline.Stop()

	check := time.NewTicker(50 * time.Millisecond)
	defer check.Stop()

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return nil
		}

		select {
		case <-deadline.C:
			s.log.Warn("in-flight tick did not finish within grace period")
			return errors.New("scheduler stopped with tick in flight")
		case <-check.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
