// Package store persists course records to the Courses table.
//
// A Store offers the two calls the sync needs: a point lookup by course code and a
// plain insert. Backends that can insert conditionally in a single round trip also
// implement ConditionalInserter, which closes the window between lookup and insert.
//
// Backends:
//   - supabase: the Supabase REST (PostgREST) endpoint of a hosted Postgres table
//   - postgres: a direct PostgreSQL connection via pgx
//   - sqlite:   a local SQLite database file
//   - file:     a JSON snapshot file, or memory only when no path is given
//
// Every backend reports a duplicate course code as an error wrapping
// ErrUniqueViolation, so callers never inspect driver error messages.
package store
