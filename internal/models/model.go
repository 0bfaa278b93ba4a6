package models

import "time"

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Stats holds the geometry-derived counters for one model. Every field
// defaults to zero at record creation; a record whose stats are all zero while
// a geometry snapshot exists is repaired lazily on read.
type Stats struct {
	TotalElements int
	BuildingCount int
	HighwayCount  int
	WaterCount    int
	NaturalCount  int
	LanduseCount  int
	OtherCount    int
	AreaKm2       float64
}

// IsZero reports whether no statistic has ever been recorded.
func (s Stats) IsZero() bool {
	return s.TotalElements == 0 &&
		s.BuildingCount == 0 &&
		s.HighwayCount == 0 &&
		s.WaterCount == 0 &&
		s.NaturalCount == 0 &&
		s.LanduseCount == 0 &&
		s.OtherCount == 0 &&
		s.AreaKm2 == 0
}

// Model is the metadata record for one logical 3D model. Artifact bytes never
// live here except for GLBBlob, the database fallback location for binary
// exports written when the filesystem path was bypassed.
type Model struct {
	ID               string
	OwnerID          *string
	Title            string
	Description      string
	Visibility       Visibility
	HasGLBExport     bool
	GLBFileName      string
	GLBExportTime    *time.Time
	GLBBlob          []byte
	ThumbnailPath    string
	ThumbnailUpdated *time.Time
	CameraPreset     []byte
	Stats            Stats
	SizeBytes        int64
	ViewCount        int
	DownloadCount    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OwnedBy reports whether accountID is the fixed owner of this record.
// Anonymous records are owned by nobody.
func (m Model) OwnedBy(accountID string) bool {
	return m.OwnerID != nil && accountID != "" && *m.OwnerID == accountID
}
