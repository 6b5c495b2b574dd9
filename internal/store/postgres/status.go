package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aims/internal/store"
)

// QueueDepthByState counts entries per state.
func (s *Store) QueueDepthByState(ctx context.Context) (map[store.EntryState]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*)
		FROM queue_entries
		GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("queue depth query failed: %w", err)
	}
	defer rows.Close()

	depths := make(map[store.EntryState]int64)
	for rows.Next() {
		var state store.EntryState
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("queue depth scan failed: %w", err)
		}
		depths[state] = count
	}
	return depths, rows.Err()
}

// OldestPendingAge returns how long the oldest eligible pending entry has
// been waiting, or nil if the queue has no pending entries.
func (s *Store) OldestPendingAge(ctx context.Context, now time.Time) (*time.Duration, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// MIN over an empty set scans as NULL.
	var oldest sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(enqueued_at)
		FROM queue_entries
		WHERE state = $1
	`, store.EntryStatePending).Scan(&oldest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest pending query failed: %w", err)
	}
	if !oldest.Valid {
		return nil, nil
	}

	age := now.Sub(oldest.Time)
	return &age, nil
}

// DeadLetterCount counts dead-lettered entries.
func (s *Store) DeadLetterCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_entries WHERE state = $1
	`, store.EntryStateDeadLettered).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("dead-letter count query failed: %w", err)
	}
	return count, nil
}

// PurgedSubjectCount counts distinct subjects with purged events.
func (s *Store) PurgedSubjectCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT subject) FROM events WHERE state = $1
	`, store.EventStatePurged).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("purged subject count query failed: %w", err)
	}
	return count, nil
}

// PendingCount counts entries awaiting processing, for the queue depth gauge.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_entries WHERE state IN ($1, $2)
	`, store.EntryStatePending, store.EntryStateLeased).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pending count query failed: %w", err)
	}
	return count, nil
}
