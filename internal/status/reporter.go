// Package status aggregates pipeline state for operators.
package status

import (
	"context"
	"log/slog"
	"time"

	"aims/internal/scheduler"
	"aims/internal/store"
)

// SchedulerStatus exposes the scheduler snapshot to the reporter without
// coupling it to the concrete scheduler.
type SchedulerStatus interface {
	Status() scheduler.State
}

// Summary is the aggregate view. Degraded lists the dependencies that could
// not be read; their fields hold zero values rather than failing the whole
// summary.
type Summary struct {
	QueueDepthByState map[store.EntryState]int64
	OldestPendingAge  *time.Duration
	DeadLetterCount   int64
	PurgedSubjects    int64
	Scheduler         scheduler.State
	Degraded          []string
}

// Reporter reads aggregates from the store and scheduler. It never mutates
// anything.
type Reporter struct {
	store store.StatusStore
	sched SchedulerStatus
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Reporter.
func New(s store.StatusStore, sched SchedulerStatus, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		store: s,
		sched: sched,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Summary collects the aggregates, tolerating partial failure.
func (r *Reporter) Summary(ctx context.Context) Summary {
	summary := Summary{
		QueueDepthByState: map[store.EntryState]int64{},
		Scheduler:         r.sched.Status(),
	}

	degrade := func(part string, err error) {
		r.log.Warn("status aggregation degraded", "part", part, "error", err)
		summary.Degraded = append(summary.Degraded, part)
	}

	if depths, err := r.store.QueueDepthByState(ctx); err != nil {
		degrade("queue_depth", err)
	} else {
		summary.QueueDepthByState = depths
	}

	if age, err := r.store.OldestPendingAge(ctx, r.now()); err != nil {
		degrade("oldest_pending", err)
	} else {
		summary.OldestPendingAge = age
	}

	if count, err := r.store.DeadLetterCount(ctx); err != nil {
		degrade("dead_letters", err)
	} else {
		summary.DeadLetterCount = count
	}

	if count, err := r.store.PurgedSubjectCount(ctx); err != nil {
		degrade("purged_subjects", err)
	} else {
		summary.PurgedSubjects = count
	}

	return summary
}
