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

func templateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "key", "version", "name", "body", "required_variables", "active", "created_at",
	})
}

func TestResolve_HighestActiveVersion(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	templateID := uuid.New()
	mock.ExpectQuery(`SELECT id, key, version, name, body, required_variables, active, created_at`).
		WithArgs("daily-reading").
		WillReturnRows(templateRows().AddRow(
			templateID, "daily-reading", 3, "Daily Reading",
			"Hello @subject", `{subject,chart.sun}`, true, time.Now(),
		))

	tmpl, err := store_.Resolve(context.Background(), "daily-reading")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if tmpl.Version != 3 {
		t.Errorf("got version %d, want 3", tmpl.Version)
	}
	if tmpl.Key != "daily-reading" {
		t.Errorf("got key %q", tmpl.Key)
	}
	if len(tmpl.RequiredVariables) != 2 || tmpl.RequiredVariables[1] != "chart.sun" {
		t.Errorf("required variables not decoded: %v", tmpl.RequiredVariables)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT id, key, version`).
		WithArgs("no-such-template").
		WillReturnError(sql.ErrNoRows)

	_, err := store_.Resolve(context.Background(), "no-such-template")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveVersion(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT id, key, version`).
		WithArgs("daily-reading", 1).
		WillReturnRows(templateRows().AddRow(
			uuid.New(), "daily-reading", 1, "Daily Reading",
			"Old copy", `{subject}`, false, time.Now(),
		))

	tmpl, err := store_.ResolveVersion(context.Background(), "daily-reading", 1)
	if err != nil {
		t.Fatalf("ResolveVersion failed: %v", err)
	}
	if tmpl.Version != 1 {
		t.Errorf("got version %d, want 1", tmpl.Version)
	}
	// Pinned lookups may return inactive versions.
	if tmpl.Active {
		t.Error("expected inactive template to be returned")
	}
}

func TestListTemplates(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT DISTINCT ON \(key\)`).
		WillReturnRows(templateRows().
			AddRow(uuid.New(), "account-created", 1, "Welcome", "Hi @subject", `{subject}`, true, time.Now()).
			AddRow(uuid.New(), "daily-reading", 4, "Daily Reading", "@subject today", `{subject}`, true, time.Now()))

	templates, err := store_.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if templates[0].Key != "account-created" || templates[1].Key != "daily-reading" {
		t.Errorf("unexpected keys: %s, %s", templates[0].Key, templates[1].Key)
	}
}
