package store

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"testing/fstest"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationsTable records applied schema versions next to the courses table
const migrationsTable = "coursesync_schema_migrations"

// Migration dialects, one directory each under migrations/
const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

//go:embed migrations
var migrationFiles embed.FS

// renderMigrations returns the dialect's migration files with the quoted table name filled in.
// The courses table name is configurable, so the embedded files are templates.
func renderMigrations(dialect, quotedTable string) (fs.FS, error) {
	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s migrations: %w", dialect, err)
	}

	rendered := fstest.MapFS{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tmpl, err := template.ParseFS(migrationFiles, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parsing migration %s: %w", entry.Name(), err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, struct{ Table string }{Table: quotedTable}); err != nil {
			return nil, fmt.Errorf("rendering migration %s: %w", entry.Name(), err)
		}
		rendered[entry.Name()] = &fstest.MapFile{Data: buf.Bytes(), Mode: 0444}
	}
	return rendered, nil
}

// newMigrate builds a migrate instance over the rendered migrations for driver
func newMigrate(dialect, quotedTable string, driver database.Driver) (*migrate.Migrate, error) {
	files, err := renderMigrations(dialect, quotedTable)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// migrateUp applies pending migrations; an up-to-date schema is not an error.
// Cancelling ctx stops after the migration in progress.
func migrateUp(ctx context.Context, m *migrate.Migrate) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
