package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRun_NeverWrites(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	require.NoError(t, backing.Insert(ctx, testCourse("COSC 1P02")))

	d := NewDryRun(backing)

	found, err := d.FindByCode(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.True(t, found, "lookups read through to the wrapped store")

	require.NoError(t, d.Insert(ctx, testCourse("COSC 1P03")))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, 1, backing.Len(), "wrapped store must not change")

	found, err = d.FindByCode(ctx, "COSC 1P03")
	require.NoError(t, err)
	assert.True(t, found)

	err = d.Insert(ctx, testCourse("COSC 1P03"))
	assert.True(t, IsUniqueViolation(err))
}

func TestDryRun_NilStore(t *testing.T) {
	ctx := context.Background()
	d := NewDryRun(nil)

	found, err := d.FindByCode(ctx, "COSC 1P02")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, d.Close())
}
