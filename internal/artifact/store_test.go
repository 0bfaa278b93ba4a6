package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	size, err := store.PutSnapshot(ctx, "m1", []byte(`{"file_id":"m1"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(16), size)

	data, err := store.GetSnapshot(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, `{"file_id":"m1"}`, string(data))

	require.NoError(t, store.DeleteSnapshot(ctx, "m1"))
	_, err = store.GetSnapshot(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSnapshotMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSnapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportPrefersPlainConvention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exports := filepath.Join(store.root, "exports", "user_exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "m1.glb"), []byte("plain"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "export_m1.glb"), []byte("legacy"), 0o644))

	data, err := store.GetExport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))
}

func TestExportLegacyFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exports := filepath.Join(store.root, "exports", "user_exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "export_m1.glb"), []byte("legacy"), 0o644))

	data, err := store.GetExport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(data))
}

func TestPutExportOverwritesBothConventions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exports := filepath.Join(store.root, "exports", "user_exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "export_m1.glb"), []byte("legacy"), 0o644))

	require.NoError(t, store.PutExport(ctx, "m1", []byte("fresh")))
	require.NoError(t, store.PutExport(ctx, "m1", []byte("fresh")))

	entries, err := os.ReadDir(exports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1.glb", entries[0].Name())

	data, err := store.GetExport(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestDeleteExportRemovesEveryCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exports := filepath.Join(store.root, "exports", "user_exports")
	require.NoError(t, os.MkdirAll(exports, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "m1.glb"), []byte("plain"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "export_m1.glb"), []byte("legacy"), 0o644))

	require.NoError(t, store.DeleteExport(ctx, "m1"))
	_, err := store.GetExport(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting with nothing present is non-fatal.
	assert.NoError(t, store.DeleteExport(ctx, "m1"))
}

func TestThumbnailLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rel, err := store.PutThumbnail(ctx, "alice", "m1", []byte("jpegbytes"), "")
	require.NoError(t, err)
	assert.Equal(t, "users/alice/thumbnails/thumbnail_m1.jpg", rel)

	data, err := store.GetByRel(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(data))

	require.NoError(t, store.DeleteByRel(ctx, rel))
	_, err = store.GetByRel(ctx, rel)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelPathEscapeRejected(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByRel(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestListIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutSnapshot(ctx, "a", []byte("{}"))
	require.NoError(t, err)
	_, err = store.PutSnapshot(ctx, "b", []byte("{}"))
	require.NoError(t, err)
	require.NoError(t, store.PutExport(ctx, "a", []byte("glb")))

	exports := filepath.Join(store.root, "exports", "user_exports")
	require.NoError(t, os.WriteFile(filepath.Join(exports, "export_c.glb"), []byte("glb"), 0o644))

	snaps, err := store.ListSnapshotIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, snaps)

	glbs, err := store.ListExportIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, glbs)
}

func TestPlaceholderIsValidPNG(t *testing.T) {
	data := Placeholder()
	require.NotEmpty(t, data)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
	assert.Equal(t, data, Placeholder())
}
