package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityOrder(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  Category
	}{
		{"building tag", map[string]any{"building": "yes"}, CategoryBuilding},
		{"building wins over highway", map[string]any{"building": "yes", "highway": "residential"}, CategoryBuilding},
		{"highway tag", map[string]any{"highway": "primary"}, CategoryHighway},
		{"waterway tag", map[string]any{"waterway": "river"}, CategoryWater},
		{"natural water", map[string]any{"natural": "water"}, CategoryWater},
		{"other natural", map[string]any{"natural": "wood"}, CategoryNatural},
		{"landuse tag", map[string]any{"landuse": "farmland"}, CategoryLanduse},
		{"no tags", map[string]any{"name": "somewhere"}, CategoryOther},
		{"nil properties", nil, CategoryOther},
		{"empty string does not count", map[string]any{"building": ""}, CategoryOther},
		{"false does not count", map[string]any{"building": false}, CategoryOther},
		{"building no still counts", map[string]any{"building": "no"}, CategoryBuilding},
		{"numeric value counts", map[string]any{"building": 3.0}, CategoryBuilding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.props))
			// stable under re-evaluation
			assert.Equal(t, tt.want, Classify(tt.props))
		})
	}
}

func TestSummarize(t *testing.T) {
	fc := FeatureCollection{Features: []Feature{
		{Properties: map[string]any{"building": "yes"}},
		{Properties: map[string]any{"building": "house"}},
		{Properties: map[string]any{"building": "yes"}},
		{Properties: map[string]any{"highway": "primary"}},
		{Properties: map[string]any{"highway": "service"}},
	}}

	counts, total := Summarize(fc)
	assert.Equal(t, 5, total)
	assert.Equal(t, Counts{Building: 3, Highway: 2}, counts)
}

func TestSummarizeEmpty(t *testing.T) {
	counts, total := Summarize(FeatureCollection{})
	assert.Zero(t, total)
	assert.Equal(t, Counts{}, counts)
}

func TestArea(t *testing.T) {
	boxes := []Bounds{
		{North: 1, South: 0, East: 1, West: 0},
		{North: 2, South: 1.5, East: 3, West: 2},
	}

	want := 1.0*1.0*111.32*111.32 + 0.5*1.0*111.32*111.32
	assert.InDelta(t, want, Area(boxes), 1e-9)
}

func TestAreaNonNegative(t *testing.T) {
	boxes := []Bounds{
		{North: 0, South: 1, East: 1, West: 0},  // inverted lat
		{North: 1, South: 0, East: 0, West: 1},  // inverted lon
		{North: 1, South: 1, East: 1, West: 1},  // degenerate
		{North: -1, South: -2, East: -1, West: -2}, // negative coords, positive span
	}

	got := Area(boxes)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.InDelta(t, 1.0*1.0*111.32*111.32, got, 1e-9)
}

func TestAreaPermutationInvariant(t *testing.T) {
	a := []Bounds{{North: 2, South: 1, East: 2, West: 1}, {North: 5, South: 3, East: 4, West: 1}}
	b := []Bounds{a[1], a[0]}
	assert.Equal(t, Area(a), Area(b))
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{
		FileID: "demo",
		GeoJSON: FeatureCollection{Features: []Feature{
			{Properties: map[string]any{"building": "yes"}},
		}},
		Bounds:       []Bounds{{North: 1, South: 0, East: 1, West: 0}},
		DataType:     "building",
		ElementCount: 1,
	}

	data, err := EncodeSnapshot(snap)
	assert.NoError(t, err)

	decoded, err := DecodeSnapshot(data)
	assert.NoError(t, err)
	assert.Equal(t, snap.FileID, decoded.FileID)
	assert.Equal(t, snap.ElementCount, decoded.ElementCount)
	assert.Len(t, decoded.GeoJSON.Features, 1)
}
