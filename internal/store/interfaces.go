package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows passing either a connection pool or an active transaction
// to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// EventStore handles the persistence of events and their lifecycle.
type EventStore interface {
	// Submit validates and persists a new event and its companion queue
	// entry atomically. Returns a ValidationError for unknown types or
	// malformed payloads; nothing is enqueued on failure.
	Submit(ctx context.Context, eventType string, payload map[string]any, subject string) (uuid.UUID, error)

	// GetEvent returns an event by id, or ErrNotFound.
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)

	// Transition moves an event from one state to another with
	// compare-and-set semantics. ErrConflict if the current state is not
	// `from`, ErrNotFound if the event does not exist.
	Transition(ctx context.Context, id uuid.UUID, from, to EventState, detail string) error

	// PurgeForSubject marks all of a subject's events purged and cancels
	// their pending or leased queue entries. Returns the number of events
	// purged. Rows are retained for audit.
	PurgeForSubject(ctx context.Context, subject string) (int64, error)
}

// Queue handles the leasable work list derived from events.
type Queue interface {
	// LeaseBatch atomically claims up to limit eligible pending entries,
	// ordered by priority descending then enqueue time ascending, stamps
	// a lease expiry and moves their events to processing. Never blocks;
	// returns an empty slice when nothing is eligible.
	LeaseBatch(ctx context.Context, limit int, now time.Time) ([]QueueEntry, error)

	// Ack marks a leased entry done. Acking an already-done entry is a
	// no-op.
	Ack(ctx context.Context, entryID uuid.UUID) error

	// Retry returns a leased entry to pending, eligible after the given
	// delay. Once the attempt count exceeds the configured maximum the
	// entry is dead-lettered and its event marked failed instead; the
	// returned bool reports which path was taken.
	Retry(ctx context.Context, entryID uuid.UUID, delay time.Duration, reason string) (deadLettered bool, err error)

	// DeadLetter moves a leased entry straight to dead_lettered and its
	// event to failed. Used for permanent failures that bypass retry.
	DeadLetter(ctx context.Context, entryID uuid.UUID, reason string) error

	// ReclaimExpired returns entries leased past their expiry to pending
	// so a crashed worker's work is eventually redelivered. Returns the
	// number of entries reclaimed.
	ReclaimExpired(ctx context.Context, now time.Time) (int64, error)

	// ListDeadLetters returns dead-lettered entries, newest first.
	ListDeadLetters(ctx context.Context, limit, offset int) ([]DeadLetter, error)

	// Redrive creates a fresh pending entry for a dead-lettered entry's
	// event and returns the event to queued. Returns the new entry id.
	Redrive(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error)
}

// TemplateCatalog is the read-only template surface used by the processor.
type TemplateCatalog interface {
	// Resolve returns the highest active version for a template key, or
	// ErrNotFound.
	Resolve(ctx context.Context, key string) (*Template, error)

	// ResolveVersion returns a specific pinned version, active or not.
	ResolveVersion(ctx context.Context, key string, version int) (*Template, error)

	// ListTemplates returns the active version of every template.
	ListTemplates(ctx context.Context) ([]Template, error)
}

// StatusStore exposes the read-only aggregates behind the status reporter.
type StatusStore interface {
	QueueDepthByState(ctx context.Context) (map[EntryState]int64, error)
	OldestPendingAge(ctx context.Context, now time.Time) (*time.Duration, error)
	DeadLetterCount(ctx context.Context) (int64, error)
	PurgedSubjectCount(ctx context.Context) (int64, error)
}
