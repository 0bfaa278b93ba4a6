package ids

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	owners map[string]string // id -> owner ("" is anonymous)
}

func (f fakeLookup) OwnerOf(_ context.Context, id string) (string, bool, error) {
	owner, ok := f.owners[id]
	return owner, ok, nil
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestAllocateKeepsOwnedCandidate(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{"city-1": "alice"}})

	id, err := alloc.Allocate(context.Background(), "city-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "city-1", id)
}

func TestAllocateKeepsFreeCandidate(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{}})

	id, err := alloc.Allocate(context.Background(), "city-2", "alice")
	require.NoError(t, err)
	assert.Equal(t, "city-2", id)
}

func TestAllocateReallocatesForeignCandidate(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{"city-1": "bob"}})

	id, err := alloc.Allocate(context.Background(), "city-1", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "city-1", id)
	assert.NotEmpty(t, id)
}

func TestAllocateReallocatesAnonymousRecordForAuthenticatedOwner(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{"city-1": ""}})

	id, err := alloc.Allocate(context.Background(), "city-1", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "city-1", id)
}

func TestAllocateRejectsTempPrefix(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{}})

	id, err := alloc.Allocate(context.Background(), "temp_scratch", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "temp_scratch", id)
}

func TestAllocateEmptyCandidate(t *testing.T) {
	alloc := NewAllocator(fakeLookup{owners: map[string]string{}})

	id, err := alloc.Allocate(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
