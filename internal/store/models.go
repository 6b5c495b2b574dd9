// Package store contains the database layer for the interpretation pipeline.
package store

import (
	"time"

	"github.com/google/uuid"
)

// EventState represents the lifecycle state of an interpretation event.
type EventState string

const (
	EventStateQueued     EventState = "queued"
	EventStateProcessing EventState = "processing"
	EventStateDone       EventState = "done"
	EventStateFailed     EventState = "failed"
	EventStatePurged     EventState = "purged"
)

// Terminal reports whether the state admits no further transitions.
func (s EventState) Terminal() bool {
	return s == EventStateDone || s == EventStateFailed || s == EventStatePurged
}

// Event is a single request to produce and deliver an interpretation.
type Event struct {
	ID        uuid.UUID
	Type      string
	Payload   map[string]any
	Subject   string
	State     EventState
	Detail    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryState represents the state of a queue entry.
type EntryState string

const (
	EntryStatePending      EntryState = "pending"
	EntryStateLeased       EntryState = "leased"
	EntryStateDone         EntryState = "done"
	EntryStateDeadLettered EntryState = "dead_lettered"
	EntryStateCancelled    EntryState = "cancelled"
)

// QueueEntry is the schedulable unit derived from an Event.
// At most one entry per event may be pending or leased at a time.
type QueueEntry struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	Priority       int
	Attempt        int
	State          EntryState
	EligibleAt     time.Time
	LeaseExpiresAt *time.Time
	EnqueuedAt     time.Time
	LastError      *string
}

// DeadLetter is a dead-lettered entry joined with its owning event,
// as presented to operators.
type DeadLetter struct {
	EntryID   uuid.UUID
	EventID   uuid.UUID
	EventType string
	Subject   string
	Priority  int
	Attempt   int
	LastError *string
	FailedAt  time.Time
}

// Template is a named, versioned rendering unit. The catalog exposes only
// active versions; the processor never mutates templates.
type Template struct {
	ID                uuid.UUID
	Key               string
	Version           int
	Name              string
	Body              string
	RequiredVariables []string
	Active            bool
	CreatedAt         time.Time
}
