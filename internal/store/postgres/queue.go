package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aims/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// LeaseBatch claims up to limit eligible entries atomically using
// SELECT ... FOR UPDATE SKIP LOCKED. Entries come back highest priority
// first, FIFO within a priority band. Claimed entries are stamped with a
// lease expiry and their events move to processing in the same transaction.
func (s *Store) LeaseBatch(ctx context.Context, limit int, now time.Time) ([]store.QueueEntry, error) {
	if limit <= 0 {
		limit = 1
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id, priority, attempt, eligible_at, enqueued_at
		FROM queue_entries
		WHERE state = $1 AND eligible_at <= $2
		ORDER BY priority DESC, enqueued_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $3
	`, store.EntryStatePending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("lease query failed: %w", err)
	}
	defer rows.Close()

	leaseExpiry := now.Add(s.leaseTimeout)

	var entries []store.QueueEntry
	var entryIDs []uuid.UUID
	var eventIDs []uuid.UUID

	for rows.Next() {
		var e store.QueueEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Priority, &e.Attempt, &e.EligibleAt, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("lease scan failed: %w", err)
		}
		e.State = store.EntryStateLeased
		e.Attempt++
		expiry := leaseExpiry
		e.LeaseExpiresAt = &expiry
		entries = append(entries, e)
		entryIDs = append(entryIDs, e.ID)
		eventIDs = append(eventIDs, e.EventID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lease rows error: %w", err)
	}

	if len(entries) == 0 {
		return nil, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, attempt = attempt + 1, lease_expires_at = $2
		WHERE id = ANY($3)
	`, store.EntryStateLeased, leaseExpiry, pq.Array(entryIDs))
	if err != nil {
		return nil, fmt.Errorf("lease update failed: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, updated_at = NOW()
		WHERE id = ANY($2) AND state = $3
	`, store.EventStateProcessing, pq.Array(eventIDs), store.EventStateQueued)
	if err != nil {
		return nil, fmt.Errorf("event state update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Ack marks a leased entry done. A second ack of the same entry is a no-op.
func (s *Store) Ack(ctx context.Context, entryID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, lease_expires_at = NULL
		WHERE id = $2 AND state = $3
	`, store.EntryStateDone, entryID, store.EntryStateLeased)
	if err != nil {
		return fmt.Errorf("failed to ack entry %s: %w", entryID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var state store.EntryState
	err = s.db.QueryRowContext(ctx, `SELECT state FROM queue_entries WHERE id = $1`, entryID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if state == store.EntryStateDone {
		// Idempotent ack.
		return nil
	}
	return fmt.Errorf("entry %s is %s, not leased: %w", entryID, state, store.ErrConflict)
}

// Retry returns a leased entry to pending after the given delay. Entries
// past the attempt ceiling are dead-lettered and their event marked failed;
// the returned bool reports which path was taken.
func (s *Store) Retry(ctx context.Context, entryID uuid.UUID, delay time.Duration, reason string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var attempt int
	var eventID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT attempt, event_id
		FROM queue_entries
		WHERE id = $1 AND state = $2
		FOR UPDATE
	`, entryID, store.EntryStateLeased).Scan(&attempt, &eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read entry %s for retry: %w", entryID, err)
	}

	if attempt > s.maxAttempts {
		if err := deadLetterTx(ctx, tx, entryID, eventID, reason); err != nil {
			return false, err
		}
		return true, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, eligible_at = NOW() + ($2 * INTERVAL '1 second'),
		    lease_expires_at = NULL, last_error = $3
		WHERE id = $4
	`, store.EntryStatePending, delay.Seconds(), reason, entryID)
	if err != nil {
		return false, fmt.Errorf("failed to reschedule entry %s: %w", entryID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, store.EventStateQueued, eventID, store.EventStateProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to requeue event %s: %w", eventID, err)
	}

	return false, tx.Commit()
}

// DeadLetter moves a leased entry straight to dead_lettered, bypassing retry.
func (s *Store) DeadLetter(ctx context.Context, entryID uuid.UUID, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var eventID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT event_id FROM queue_entries WHERE id = $1 AND state = $2 FOR UPDATE
	`, entryID, store.EntryStateLeased).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read entry %s for dead-letter: %w", entryID, err)
	}

	if err := deadLetterTx(ctx, tx, entryID, eventID, reason); err != nil {
		return err
	}
	return tx.Commit()
}

func deadLetterTx(ctx context.Context, tx store.DBTransaction, entryID, eventID uuid.UUID, reason string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, lease_expires_at = NULL, last_error = $2
		WHERE id = $3
	`, store.EntryStateDeadLettered, reason, entryID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter entry %s: %w", entryID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, detail = $2, updated_at = NOW()
		WHERE id = $3 AND state = $4
	`, store.EventStateFailed, reason, eventID, store.EventStateProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail event %s: %w", eventID, err)
	}
	return nil
}

// ReclaimExpired returns entries whose lease lapsed to pending so they can
// be leased again. Their events go back to queued.
func (s *Store) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id
		FROM queue_entries
		WHERE state = $1 AND lease_expires_at < $2
		FOR UPDATE SKIP LOCKED
	`, store.EntryStateLeased, now)
	if err != nil {
		return 0, fmt.Errorf("reclaim query failed: %w", err)
	}
	defer rows.Close()

	var entryIDs, eventIDs []uuid.UUID
	for rows.Next() {
		var entryID, eventID uuid.UUID
		if err := rows.Scan(&entryID, &eventID); err != nil {
			return 0, fmt.Errorf("reclaim scan failed: %w", err)
		}
		entryIDs = append(entryIDs, entryID)
		eventIDs = append(eventIDs, eventID)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reclaim rows error: %w", err)
	}

	if len(entryIDs) == 0 {
		return 0, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $1, lease_expires_at = NULL
		WHERE id = ANY($2)
	`, store.EntryStatePending, pq.Array(entryIDs))
	if err != nil {
		return 0, fmt.Errorf("reclaim update failed: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, updated_at = NOW()
		WHERE id = ANY($2) AND state = $3
	`, store.EventStateQueued, pq.Array(eventIDs), store.EventStateProcessing)
	if err != nil {
		return 0, fmt.Errorf("reclaim event update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return int64(len(entryIDs)), nil
}

// ListDeadLetters returns dead-lettered entries joined with their events,
// newest first.
func (s *Store) ListDeadLetters(ctx context.Context, limit, offset int) ([]store.DeadLetter, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.event_id, e.event_type, e.subject, q.priority, q.attempt, q.last_error, e.updated_at
		FROM queue_entries q
		JOIN events e ON e.id = q.event_id
		WHERE q.state = $1
		ORDER BY e.updated_at DESC
		LIMIT $2 OFFSET $3
	`, store.EntryStateDeadLettered, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dead-letter query failed: %w", err)
	}
	defer rows.Close()

	var items []store.DeadLetter
	for rows.Next() {
		var d store.DeadLetter
		if err := rows.Scan(&d.EntryID, &d.EventID, &d.EventType, &d.Subject, &d.Priority, &d.Attempt, &d.LastError, &d.FailedAt); err != nil {
			return nil, fmt.Errorf("dead-letter scan failed: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// Redrive creates a fresh pending entry for a dead-lettered entry's event
// and returns the event to queued. The original entry stays dead-lettered
// for the record.
func (s *Store) Redrive(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	var eventID uuid.UUID
	var priority int
	err = tx.QueryRowContext(ctx, `
		SELECT event_id, priority
		FROM queue_entries
		WHERE id = $1 AND state = $2
	`, entryID, store.EntryStateDeadLettered).Scan(&eventID, &priority)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, store.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read dead-lettered entry %s: %w", entryID, err)
	}

	newID := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_entries (id, event_id, priority, state, eligible_at, enqueued_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, newID, eventID, priority, store.EntryStatePending)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to redrive entry %s: %w", entryID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET state = $1, detail = NULL, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, store.EventStateQueued, eventID, store.EventStateFailed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to requeue event %s: %w", eventID, err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	return newID, nil
}
