package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aims/internal/store"

	"github.com/google/uuid"
)

// Submit validates and persists a new event together with its pending queue
// entry in a single transaction.
func (s *Store) Submit(ctx context.Context, eventType string, payload map[string]any, subject string) (uuid.UUID, error) {
	priority, ok := store.PriorityForEventType(eventType)
	if !ok {
		return uuid.Nil, store.NewValidationError("unknown event type %q", eventType)
	}
	if subject == "" {
		return uuid.Nil, store.NewValidationError("subject is required")
	}
	if payload == nil {
		payload = map[string]any{}
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, store.NewValidationError("payload is not serializable: %v", err)
	}

	eventID := uuid.New()
	entryID := uuid.New()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin submit transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, event_type, payload, subject, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, eventID, eventType, rawPayload, subject, store.EventStateQueued, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_entries (id, event_id, priority, state, eligible_at, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, entryID, eventID, priority, store.EntryStatePending, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue event %s: %w", eventID, err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit submit: %w", err)
	}

	return eventID, nil
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*store.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_type, payload, subject, state, detail, created_at, updated_at
		FROM events
		WHERE id = $1
	`, id)

	var ev store.Event
	var rawPayload []byte
	err := row.Scan(&ev.ID, &ev.Type, &rawPayload, &ev.Subject, &ev.State, &ev.Detail, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}

	if err := json.Unmarshal(rawPayload, &ev.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload for event %s: %w", id, err)
	}

	return &ev, nil
}

// Transition moves an event between states with compare-and-set semantics.
func (s *Store) Transition(ctx context.Context, id uuid.UUID, from, to store.EventState, detail string) error {
	var detailArg any
	if detail != "" {
		detailArg = detail
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET state = $1, detail = COALESCE($2, detail), updated_at = NOW()
		WHERE id = $3 AND state = $4
	`, to, detailArg, id, from)
	if err != nil {
		return fmt.Errorf("failed to transition event %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing event from a racing transition.
	var current store.EventState
	err = s.db.QueryRowContext(ctx, `SELECT state FROM events WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("event %s is %s, not %s: %w", id, current, from, store.ErrConflict)
}

// PurgeForSubject marks a subject's events purged and cancels any entries
// still awaiting processing. History rows are kept for audit.
func (s *Store) PurgeForSubject(ctx context.Context, subject string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, lease_expires_at = NULL
		WHERE state IN ($2, $3)
		  AND event_id IN (SELECT id FROM events WHERE subject = $4)
	`, store.EntryStateCancelled, store.EntryStatePending, store.EntryStateLeased, subject)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel entries for subject %s: %w", subject, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, updated_at = NOW()
		WHERE subject = $2 AND state <> $1
	`, store.EventStatePurged, subject)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events for subject %s: %w", subject, err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return purged, nil
}
