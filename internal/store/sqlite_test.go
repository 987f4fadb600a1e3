package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemix/coursesync/internal/course"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSQLite_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	found, err := s.FindByCode(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.False(t, found)

	c := testCourse("COSC 1P02")
	c.Prerequisite = "one grade 12 U/M mathematics credit."
	require.NoError(t, s.Insert(ctx, c))

	found, err = s.FindByCode(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := s.Get(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.Equal(t, "Title of COSC 1P02", got.NameOrEmpty())
	assert.Equal(t, "one grade 12 U/M mathematics credit.", got.Prerequisite)
	assert.Empty(t, got.SourceURL)
}

func TestSQLite_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Insert(ctx, testCourse("COSC 1P02")))
	err := s.Insert(ctx, testCourse("COSC 1P02"))
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	inserted, err := s.InsertIfAbsent(ctx, testCourse("COSC 1P02"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertIfAbsent(ctx, testCourse("COSC 1P02"))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestSQLite_NullColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	c := course.New("MATH 1P66", nil, nil, "", "")
	require.NoError(t, s.Insert(ctx, c))

	got, err := s.Get(ctx, "MATH 1P66")
	require.NoError(t, err)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.Description)
	assert.Equal(t, course.NoPrerequisite, got.Prerequisite)
}

func TestSQLite_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "courses.db")

	s, err := NewSQLite(path, "Courses")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Insert(ctx, testCourse("COSC 1P02")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path, "Courses")
	require.NoError(t, err)
	defer reopened.Close()

	found, err := reopened.FindByCode(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLite_EnsureSchemaTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	require.NoError(t, s.Insert(ctx, testCourse("COSC 1P02")))

	require.NoError(t, s.EnsureSchema(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_QuotedTableName(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(":memory:", `course "list"`)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, `"course ""list"""`, s.table)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Insert(ctx, testCourse("COSC 1P02")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
