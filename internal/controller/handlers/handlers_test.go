package handlers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"aims/internal/processor"
	"aims/internal/scheduler"
	"aims/internal/status"
	"aims/internal/store"

	"github.com/google/uuid"
)

// mockStore implements the Store interface with configurable behavior.
type mockStore struct {
	pingErr error

	submitID  uuid.UUID
	submitErr error
	submitted []string // subjects passed to Submit, in order

	event       *store.Event
	getEventErr error

	purged   int64
	purgeErr error

	deadLetters    []store.DeadLetter
	deadLettersErr error

	redriveID  uuid.UUID
	redriveErr error

	templates    []store.Template
	templatesErr error
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) Submit(ctx context.Context, eventType string, payload map[string]any, subject string) (uuid.UUID, error) {
	m.submitted = append(m.submitted, subject)
	if m.submitErr != nil {
		return uuid.Nil, m.submitErr
	}
	if m.submitID == uuid.Nil {
		m.submitID = uuid.New()
	}
	return m.submitID, nil
}

func (m *mockStore) GetEvent(ctx context.Context, id uuid.UUID) (*store.Event, error) {
	if m.getEventErr != nil {
		return nil, m.getEventErr
	}
	return m.event, nil
}

func (m *mockStore) Transition(ctx context.Context, id uuid.UUID, from, to store.EventState, detail string) error {
	return nil
}

func (m *mockStore) PurgeForSubject(ctx context.Context, subject string) (int64, error) {
	return m.purged, m.purgeErr
}

func (m *mockStore) LeaseBatch(ctx context.Context, limit int, now time.Time) ([]store.QueueEntry, error) {
	return nil, nil
}

func (m *mockStore) Ack(ctx context.Context, entryID uuid.UUID) error { return nil }

func (m *mockStore) Retry(ctx context.Context, entryID uuid.UUID, delay time.Duration, reason string) (bool, error) {
	return false, nil
}

func (m *mockStore) DeadLetter(ctx context.Context, entryID uuid.UUID, reason string) error {
	return nil
}

func (m *mockStore) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (m *mockStore) ListDeadLetters(ctx context.Context, limit, offset int) ([]store.DeadLetter, error) {
	return m.deadLetters, m.deadLettersErr
}

func (m *mockStore) Redrive(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error) {
	if m.redriveErr != nil {
		return uuid.Nil, m.redriveErr
	}
	if m.redriveID == uuid.Nil {
		m.redriveID = uuid.New()
	}
	return m.redriveID, nil
}

func (m *mockStore) Resolve(ctx context.Context, key string) (*store.Template, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) ResolveVersion(ctx context.Context, key string, version int) (*store.Template, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) ListTemplates(ctx context.Context) ([]store.Template, error) {
	return m.templates, m.templatesErr
}

// mockSched implements SchedulerControl.
type mockSched struct {
	result  processor.Result
	err     error
	state   scheduler.State
	paused  bool
	resumed bool
}

func (m *mockSched) TriggerNow(ctx context.Context) (processor.Result, error) {
	return m.result, m.err
}

func (m *mockSched) Status() scheduler.State { return m.state }
func (m *mockSched) Pause()                  { m.paused = true }
func (m *mockSched) Resume()                 { m.resumed = true }

// mockDrainer implements Drainer.
type mockDrainer struct {
	result processor.Result
	err    error
	calls  int
}

func (m *mockDrainer) Drain(ctx context.Context) (processor.Result, error) {
	m.calls++
	return m.result, m.err
}

// mockReporter implements Reporter.
type mockReporter struct {
	summary status.Summary
}

func (m *mockReporter) Summary(ctx context.Context) status.Summary { return m.summary }

func newTestHandlers(s *mockStore, sched *mockSched, drainer *mockDrainer, reporter *mockReporter) *Handlers {
	if s == nil {
		s = &mockStore{}
	}
	if sched == nil {
		sched = &mockSched{}
	}
	if drainer == nil {
		drainer = &mockDrainer{}
	}
	if reporter == nil {
		reporter = &mockReporter{summary: status.Summary{QueueDepthByState: map[store.EntryState]int64{}}}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s, sched, drainer, reporter, log)
}
