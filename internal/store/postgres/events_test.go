package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"aims/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db, maxAttempts: 5, leaseTimeout: 5 * time.Minute}, mock
}

func TestSubmit_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO events`).
		WithArgs(sqlmock.AnyArg(), "daily-reading", []byte(`{"sign":"leo"}`), "user-1",
			store.EventStateQueued, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO queue_entries`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 50, store.EntryStatePending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := store_.Submit(ctx, "daily-reading", map[string]any{"sign": "leo"}, "user-1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a non-nil event id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSubmit_UnknownEventType(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	_, err := store_.Submit(context.Background(), "no-such-type", nil, "user-1")
	if !store.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}

	// Nothing must touch the database on rejection.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestSubmit_MissingSubject(t *testing.T) {
	store_, _ := newMockStore(t)
	defer store_.db.Close()

	_, err := store_.Submit(context.Background(), "daily-reading", nil, "")
	if !store.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestSubmit_InsertFailureEnqueuesNothing(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO events`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store_.Submit(context.Background(), "daily-reading", nil, "user-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetEvent_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	eventID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, event_type, payload, subject, state, detail, created_at, updated_at`).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_type", "payload", "subject", "state", "detail", "created_at", "updated_at",
		}).AddRow(
			eventID, "chart-generated", []byte(`{"chart":{"sun":"Leo"}}`), "user-1",
			"queued", nil, now, now,
		))

	ev, err := store_.GetEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	if ev.ID != eventID {
		t.Errorf("got ID %v, want %v", ev.ID, eventID)
	}
	if ev.Type != "chart-generated" {
		t.Errorf("got Type %q, want chart-generated", ev.Type)
	}
	if ev.State != store.EventStateQueued {
		t.Errorf("got State %v, want queued", ev.State)
	}
	chart, ok := ev.Payload["chart"].(map[string]any)
	if !ok || chart["sun"] != "Leo" {
		t.Errorf("payload not decoded: %+v", ev.Payload)
	}
	if ev.Detail != nil {
		t.Errorf("expected nil detail, got %v", *ev.Detail)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	eventID := uuid.New()
	mock.ExpectQuery(`SELECT id, event_type, payload`).
		WithArgs(eventID).
		WillReturnError(sql.ErrNoRows)

	_, err := store_.GetEvent(context.Background(), eventID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransition_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	eventID := uuid.New()
	mock.ExpectExec(`UPDATE events`).
		WithArgs(store.EventStateDone, nil, eventID, store.EventStateProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store_.Transition(context.Background(), eventID, store.EventStateProcessing, store.EventStateDone, "")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransition_Conflict(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	eventID := uuid.New()
	mock.ExpectExec(`UPDATE events`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT state FROM events`).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("done"))

	err := store_.Transition(context.Background(), eventID, store.EventStateProcessing, store.EventStateFailed, "late failure")
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestTransition_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	eventID := uuid.New()
	mock.ExpectExec(`UPDATE events`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT state FROM events`).
		WithArgs(eventID).
		WillReturnError(sql.ErrNoRows)

	err := store_.Transition(context.Background(), eventID, store.EventStateQueued, store.EventStateProcessing, "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeForSubject(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE queue_entries`).
		WithArgs(store.EntryStateCancelled, store.EntryStatePending, store.EntryStateLeased, "user-9").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE events`).
		WithArgs(store.EventStatePurged, "user-9").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	purged, err := store_.PurgeForSubject(context.Background(), "user-9")
	if err != nil {
		t.Fatalf("PurgeForSubject failed: %v", err)
	}
	if purged != 3 {
		t.Errorf("purged = %d, want 3", purged)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
