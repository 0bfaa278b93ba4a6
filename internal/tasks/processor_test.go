package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomodel/internal/artifact"
	"geomodel/internal/geometry"
	"geomodel/internal/models"
)

type fakeRecords struct {
	owners    map[string]string
	zeroStats []models.Model
	updated   map[string]models.Stats
}

func (f *fakeRecords) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	owner, ok := f.owners[id]
	return owner, ok, nil
}

func (f *fakeRecords) ListZeroStats(ctx context.Context, limit int) ([]models.Model, error) {
	return f.zeroStats, nil
}

func (f *fakeRecords) UpdateStats(ctx context.Context, id string, st models.Stats, sizeBytes int64) error {
	if f.updated == nil {
		f.updated = map[string]models.Stats{}
	}
	f.updated[id] = st
	return nil
}

type fakeArtifacts struct {
	snapshots map[string][]byte
	exports   map[string]bool
	modTimes  map[string]time.Time

	deletedSnapshots []string
	deletedExports   []string
}

func (f *fakeArtifacts) GetSnapshot(ctx context.Context, id string) ([]byte, error) {
	data, ok := f.snapshots[id]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	return data, nil
}

func (f *fakeArtifacts) DeleteSnapshot(ctx context.Context, id string) error {
	delete(f.snapshots, id)
	f.deletedSnapshots = append(f.deletedSnapshots, id)
	return nil
}

func (f *fakeArtifacts) DeleteExport(ctx context.Context, id string) error {
	if !f.exports[id] {
		return artifact.ErrNotFound
	}
	delete(f.exports, id)
	f.deletedExports = append(f.deletedExports, id)
	return nil
}

func (f *fakeArtifacts) ListSnapshotIDs(ctx context.Context) ([]string, error) {
	var out []string
	for id := range f.snapshots {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeArtifacts) ListExportIDs(ctx context.Context) ([]string, error) {
	var out []string
	for id := range f.exports {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeArtifacts) SnapshotModTime(ctx context.Context, id string) (time.Time, error) {
	if t, ok := f.modTimes[id]; ok {
		return t, nil
	}
	return time.Time{}, artifact.ErrNotFound
}

func (f *fakeArtifacts) ExportModTime(ctx context.Context, id string) (time.Time, error) {
	return f.SnapshotModTime(ctx, id)
}

func snapshotDoc(t *testing.T, buildings, highways int) []byte {
	t.Helper()
	var features []geometry.Feature
	for i := 0; i < buildings; i++ {
		features = append(features, geometry.Feature{Properties: map[string]any{"building": "yes"}})
	}
	for i := 0; i < highways; i++ {
		features = append(features, geometry.Feature{Properties: map[string]any{"highway": "primary"}})
	}
	doc, err := geometry.EncodeSnapshot(geometry.Snapshot{
		FileID:       "x",
		GeoJSON:      geometry.FeatureCollection{Features: features},
		Bounds:       []geometry.Bounds{{North: 0.1, South: 0, East: 0.1, West: 0}},
		ElementCount: len(features),
	})
	require.NoError(t, err)
	return doc
}

func maintMessage(taskType string) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: map[string]interface{}{"type": taskType}}
}

func TestStatsRepairRecomputesFromSnapshot(t *testing.T) {
	records := &fakeRecords{
		owners:    map[string]string{"m1": "u1"},
		zeroStats: []models.Model{{ID: "m1"}, {ID: "m2"}},
	}
	artifacts := &fakeArtifacts{
		snapshots: map[string][]byte{"m1": snapshotDoc(t, 3, 2)},
	}

	p := NewProcessor(records, artifacts, zerolog.Nop())
	require.NoError(t, p.Handle(context.Background(), maintMessage(TaskStatsRepair)))

	require.Contains(t, records.updated, "m1")
	st := records.updated["m1"]
	assert.Equal(t, 3, st.BuildingCount)
	assert.Equal(t, 2, st.HighwayCount)
	assert.Equal(t, 5, st.TotalElements)
	assert.Greater(t, st.AreaKm2, 0.0)
	// m2 has no snapshot, nothing to repair from
	assert.NotContains(t, records.updated, "m2")
}

func TestOrphanSweepRespectsRetention(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now().Add(-time.Hour)

	records := &fakeRecords{owners: map[string]string{"kept": "u1"}}
	artifacts := &fakeArtifacts{
		snapshots: map[string][]byte{
			"kept":   []byte("{}"),
			"stale":  []byte("{}"),
			"recent": []byte("{}"),
		},
		exports: map[string]bool{"stale": true},
		modTimes: map[string]time.Time{
			"kept":   old,
			"stale":  old,
			"recent": fresh,
		},
	}

	p := NewProcessor(records, artifacts, zerolog.Nop())
	require.NoError(t, p.Handle(context.Background(), maintMessage(TaskOrphanSweep)))

	assert.ElementsMatch(t, []string{"stale"}, artifacts.deletedSnapshots)
	assert.ElementsMatch(t, []string{"stale"}, artifacts.deletedExports)
	assert.Contains(t, artifacts.snapshots, "kept")
	assert.Contains(t, artifacts.snapshots, "recent")
}

func TestOrphanSweepRemovesRecordlessExports(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)

	records := &fakeRecords{owners: map[string]string{}}
	artifacts := &fakeArtifacts{
		snapshots: map[string][]byte{},
		exports:   map[string]bool{"lonely": true},
		modTimes:  map[string]time.Time{"lonely": old},
	}

	p := NewProcessor(records, artifacts, zerolog.Nop())
	require.NoError(t, p.Handle(context.Background(), maintMessage(TaskOrphanSweep)))

	assert.ElementsMatch(t, []string{"lonely"}, artifacts.deletedExports)
}

func TestUnknownTaskIsAcked(t *testing.T) {
	p := NewProcessor(&fakeRecords{}, &fakeArtifacts{}, zerolog.Nop())
	assert.NoError(t, p.Handle(context.Background(), maintMessage("defrag")))
}
