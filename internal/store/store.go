package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursemix/coursesync/internal/course"
)

// DefaultTable is the table course rows are written to
const DefaultTable = "Courses"

// Driver names accepted by Open
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
)

var (
	// ErrUniqueViolation is wrapped by insert errors caused by an existing course code.
	ErrUniqueViolation = errors.New("unique violation")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// IsUniqueViolation reports whether err was caused by a duplicate course code
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// Store is the lookup-and-insert surface of the Courses table
type Store interface {
	// FindByCode reports whether a row with the given course code exists
	FindByCode(ctx context.Context, code string) (bool, error)
	// Insert adds a row. A duplicate code yields an error wrapping ErrUniqueViolation.
	Insert(ctx context.Context, c *course.Course) error
	// Close releases connections held by the store
	Close() error
}

// ConditionalInserter is implemented by stores that can insert only when the code is absent
// in a single call.
type ConditionalInserter interface {
	// InsertIfAbsent inserts c unless its code exists and reports whether a row was written
	InsertIfAbsent(ctx context.Context, c *course.Course) (bool, error)
}

// Migrator is implemented by stores that can create the Courses table themselves
type Migrator interface {
	EnsureSchema(ctx context.Context) error
}

// Options selects and configures a backend
type Options struct {
	Driver      string
	Table       string
	SupabaseURL string
	SupabaseKey string
	DatabaseURL string
	SQLitePath  string
	FilePath    string
	HTTPTimeout time.Duration
}

// Open connects to the backend named by opts.Driver
func Open(ctx context.Context, opts Options) (Store, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}

	switch opts.Driver {
	case DriverSupabase:
		return NewSupabase(opts.SupabaseURL, opts.SupabaseKey, table, opts.HTTPTimeout)
	case DriverPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, table)
	case DriverSQLite:
		return NewSQLite(opts.SQLitePath, table)
	case DriverFile:
		return NewFileStore(opts.FilePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
