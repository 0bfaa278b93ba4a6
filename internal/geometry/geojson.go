package geometry

import "encoding/json"

type FeatureCollection struct {
	Type     string    `json:"type,omitempty"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string          `json:"type,omitempty"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// Bounds is one geographic bounding box in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Snapshot is the geometry snapshot document stored under the models
// namespace. It is the authoritative source for lazy statistics recomputation,
// so its layout must stay stable.
type Snapshot struct {
	FileID       string            `json:"file_id"`
	GeoJSON      FeatureCollection `json:"geojson"`
	Bounds       []Bounds          `json:"bounds,omitempty"`
	Origin       []float64         `json:"origin,omitempty"`
	DataType     string            `json:"dataType,omitempty"`
	Timestamp    json.RawMessage   `json:"timestamp,omitempty"`
	ElementCount int               `json:"element_count"`
}

// DecodeSnapshot parses a stored geometry snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// EncodeSnapshot renders the snapshot compactly, the way it is persisted.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}
