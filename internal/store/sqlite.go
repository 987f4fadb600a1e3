package store

import (
	"context"
	"errors"
	"fmt"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/coursemix/coursesync/internal/course"
)

// SQLite implements Store on a local SQLite database
type SQLite struct {
	db    *sqlx.DB
	table string
}

// NewSQLite opens (or creates) the database at path. Use ":memory:" for a throwaway database.
func NewSQLite(path, table string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if table == "" {
		table = DefaultTable
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite accepts the same double-quoted identifiers as PostgreSQL.
	return &SQLite{db: db, table: pgx.Identifier{table}.Sanitize()}, nil
}

// isUniqueConstraintErr reports whether err is a SQLite UNIQUE or PRIMARY KEY violation
func isUniqueConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// EnsureSchema applies the embedded migrations that create the courses table
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	m, err := newMigrate(dialectSQLite, s.table, driver)
	if err != nil {
		return err
	}
	// m is not closed: closing its driver would close the store's database.
	return migrateUp(ctx, m)
}

// FindByCode reports whether a row with the code exists
func (s *SQLite) FindByCode(ctx context.Context, code string) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE course_code = ?`, s.table)
	if err := s.db.GetContext(ctx, &count, query, code); err != nil {
		return false, fmt.Errorf("finding course: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) insertQuery(suffix string) string {
	return fmt.Sprintf(`INSERT INTO %s (course_code, course_name, course_desc, course_prereq, created_at)
		VALUES (:course_code, :course_name, :course_desc, :course_prereq, :created_at)%s`, s.table, suffix)
}

// Insert adds one row
func (s *SQLite) Insert(ctx context.Context, c *course.Course) error {
	if _, err := s.db.NamedExecContext(ctx, s.insertQuery(""), c); err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts unless the code exists
func (s *SQLite) InsertIfAbsent(ctx context.Context, c *course.Course) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, s.insertQuery(" ON CONFLICT (course_code) DO NOTHING"), c)
	if err != nil {
		return false, fmt.Errorf("inserting course: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting course: %w", err)
	}
	return n == 1, nil
}

// Get loads one row by code
func (s *SQLite) Get(ctx context.Context, code string) (*course.Course, error) {
	var c course.Course
	query := fmt.Sprintf(`SELECT course_code, course_name, course_desc, course_prereq, created_at
		FROM %s WHERE course_code = ?`, s.table)
	if err := s.db.GetContext(ctx, &c, query, code); err != nil {
		return nil, fmt.Errorf("loading course %s: %w", code, err)
	}
	return &c, nil
}

// Count returns the number of rows in the table
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf(`SELECT COUNT(1) FROM %s`, s.table)); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return count, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}
