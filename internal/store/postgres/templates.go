package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aims/internal/store"

	"github.com/lib/pq"
)

const templateColumns = `id, key, version, name, body, required_variables, active, created_at`

// Resolve returns the highest active version for a template key.
func (s *Store) Resolve(ctx context.Context, key string) (*store.Template, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM templates
		WHERE key = $1 AND active
		ORDER BY version DESC
		LIMIT 1
	`, templateColumns), key)

	return scanTemplate(row)
}

// ResolveVersion returns a specific pinned version of a template.
func (s *Store) ResolveVersion(ctx context.Context, key string, version int) (*store.Template, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM templates
		WHERE key = $1 AND version = $2
	`, templateColumns), key, version)

	return scanTemplate(row)
}

// ListTemplates returns the highest active version of every template key.
func (s *Store) ListTemplates(ctx context.Context) ([]store.Template, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT ON (key) %s
		FROM templates
		WHERE active
		ORDER BY key, version DESC
	`, templateColumns))
	if err != nil {
		return nil, fmt.Errorf("template list query failed: %w", err)
	}
	defer rows.Close()

	var templates []store.Template
	for rows.Next() {
		var t store.Template
		if err := rows.Scan(&t.ID, &t.Key, &t.Version, &t.Name, &t.Body,
			pq.Array(&t.RequiredVariables), &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("template scan failed: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func scanTemplate(row *sql.Row) (*store.Template, error) {
	var t store.Template
	err := row.Scan(&t.ID, &t.Key, &t.Version, &t.Name, &t.Body,
		pq.Array(&t.RequiredVariables), &t.Active, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("template scan failed: %w", err)
	}
	return &t, nil
}
