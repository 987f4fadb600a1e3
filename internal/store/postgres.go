package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/coursemix/coursesync/internal/course"
)

const connectTimeout = 10 * time.Second

// pgExecutor is the part of *pgxpool.Pool the store uses
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a direct PostgreSQL connection
type Postgres struct {
	pool  *pgxpool.Pool
	db    pgExecutor
	table string
	sb    squirrel.StatementBuilderType
}

// NewPostgres connects to databaseURL and checks the connection
func NewPostgres(ctx context.Context, databaseURL, table string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}
	// Courses are written one at a time.
	poolConfig.MaxConns = 2

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	p := newPostgres(pool, table)
	p.pool = pool
	return p, nil
}

func newPostgres(db pgExecutor, table string) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	return &Postgres{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		sb:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation error.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// FindByCode reports whether a row with the code exists
func (p *Postgres) FindByCode(ctx context.Context, code string) (bool, error) {
	sql, args, err := p.sb.Select("1").
		From(p.table).
		Where(squirrel.Eq{"course_code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build find course query: %w", err)
	}

	var one int
	err = p.db.QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error finding course: %w", err)
	}
	return true, nil
}

func (p *Postgres) insertBuilder(c *course.Course) squirrel.InsertBuilder {
	return p.sb.Insert(p.table).
		Columns("course_code", "course_name", "course_desc", "course_prereq", "created_at").
		Values(c.Code, c.Name, c.Description, c.Prerequisite, c.CreatedAt)
}

// Insert adds one row
func (p *Postgres) Insert(ctx context.Context, c *course.Course) error {
	sql, args, err := p.insertBuilder(c).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert course query: %w", err)
	}

	if _, err := p.db.Exec(ctx, sql, args...); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
		return fmt.Errorf("error inserting course: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts with ON CONFLICT DO NOTHING on the course_code key
func (p *Postgres) InsertIfAbsent(ctx context.Context, c *course.Course) (bool, error) {
	sql, args, err := p.insertBuilder(c).
		Suffix("ON CONFLICT (course_code) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert course query: %w", err)
	}

	tag, err := p.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error inserting course: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// EnsureSchema applies the embedded migrations that create the courses table
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p.pool == nil {
		return fmt.Errorf("schema migrations need a database connection pool")
	}

	db := stdlib.OpenDBFromPool(p.pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: migrationsTable})
	if err != nil {
		db.Close()
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	m, err := newMigrate(dialectPostgres, p.table, driver)
	if err != nil {
		driver.Close()
		return err
	}
	// Closing the migrate instance closes db; the pool stays open.
	defer m.Close()

	return migrateUp(ctx, m)
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
