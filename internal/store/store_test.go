package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemix/coursesync/internal/course"
)

func testCourse(code string) *course.Course {
	return course.New(code, course.StringPtr("Title of "+code), course.StringPtr("Description of "+code), "", "https://example.com/page.html")
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrUniqueViolation, true},
		{"wrapped", fmt.Errorf("inserting: %w", ErrUniqueViolation), true},
		{"api duplicate", &APIError{StatusCode: 409, Code: "23505"}, true},
		{"api conflict without code", &APIError{StatusCode: 409}, true},
		{"api other", &APIError{StatusCode: 500, Code: "XX000"}, false},
		{"api foreign key conflict", &APIError{StatusCode: 409, Code: "23503"}, false},
		{"plain error", errors.New("duplicate key value violates unique constraint"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, Options{Driver: "mongo"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownDriver))
	})

	t.Run("file driver", func(t *testing.T) {
		s, err := Open(ctx, Options{Driver: DriverFile, FilePath: filepath.Join(t.TempDir(), "courses.json")})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &FileStore{}, s)
	})

	t.Run("sqlite driver", func(t *testing.T) {
		s, err := Open(ctx, Options{Driver: DriverSQLite, SQLitePath: ":memory:"})
		require.NoError(t, err)
		defer s.Close()
		_, ok := s.(Migrator)
		assert.True(t, ok, "sqlite store should create its own schema")
	})

	t.Run("supabase driver requires credentials", func(t *testing.T) {
		_, err := Open(ctx, Options{Driver: DriverSupabase, SupabaseURL: "https://x.supabase.co"})
		assert.Error(t, err)
	})

	t.Run("postgres driver requires URL", func(t *testing.T) {
		_, err := Open(ctx, Options{Driver: DriverPostgres})
		assert.Error(t, err)
	})
}

func TestConditionalInserterImplementations(t *testing.T) {
	var _ ConditionalInserter = (*Supabase)(nil)
	var _ ConditionalInserter = (*Postgres)(nil)
	var _ ConditionalInserter = (*SQLite)(nil)
	var _ ConditionalInserter = (*FileStore)(nil)

	_, ok := interface{}(NewDryRun(nil)).(ConditionalInserter)
	assert.False(t, ok, "dry run must go through lookup and insert")
}
