package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"geomodel/internal/geometry"
	"geomodel/internal/models"
	"geomodel/internal/repository"
)

const defaultTitle = "Untitled Model"

// SaveRequest is the decoded full-save payload: the geometry snapshot fields
// plus an optional inline binary export.
type SaveRequest struct {
	FileID    string
	GeoJSON   geometry.FeatureCollection
	Bounds    []geometry.Bounds
	Origin    []float64
	DataType  string
	Timestamp json.RawMessage
	Title     string
	GLB       []byte
}

type SaveResult struct {
	ID            string
	SnapshotBytes int64
	HasExport     bool
}

// ExportRequest is the decoded export-only payload.
type ExportRequest struct {
	FileID      string
	ProjectName string
	GLB         []byte
	Thumbnail   []byte
	Camera      []byte
	Counts      *ClientCounts
}

// ClientCounts carries caller-reported statistics accompanying an
// export-only save of a record that never had a full save.
type ClientCounts struct {
	Total    int
	Building int
	Highway  int
	Water    int
	Natural  int
	Landuse  int
	Other    int
	AreaKm2  float64
}

type ExportResult struct {
	ID        string
	Action    string // "create" or "update"
	SizeBytes int64
	Thumbnail string
}

// IngestService runs the save pipeline: synchronous artifact writes followed
// by a deferred metadata upsert.
type IngestService struct {
	records   ModelStore
	accounts  AccountStore
	artifacts ArtifactStore
	alloc     Allocator
	bg        Background
	log       zerolog.Logger
}

func NewIngestService(records ModelStore, accounts AccountStore, artifacts ArtifactStore, alloc Allocator, bg Background, logger zerolog.Logger) *IngestService {
	return &IngestService{
		records:   records,
		accounts:  accounts,
		artifacts: artifacts,
		alloc:     alloc,
		bg:        bg,
		log:       logger.With().Str("component", "ingest").Logger(),
	}
}

// Save performs a full save. The snapshot (and export, when inline) is
// written before returning; the metadata upsert runs detached and its
// failures never reach the caller. Anonymous saves produce artifacts only.
func (s *IngestService) Save(ctx context.Context, requesterID string, req SaveRequest) (SaveResult, error) {
	if len(req.GeoJSON.Features) == 0 {
		return SaveResult{}, fmt.Errorf("%w: empty feature collection", ErrValidation)
	}

	id, err := s.alloc.Allocate(ctx, req.FileID, requesterID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("allocate id: %w", err)
	}

	snap := geometry.Snapshot{
		FileID:       id,
		GeoJSON:      req.GeoJSON,
		Bounds:       req.Bounds,
		Origin:       req.Origin,
		DataType:     req.DataType,
		Timestamp:    req.Timestamp,
		ElementCount: len(req.GeoJSON.Features),
	}
	doc, err := geometry.EncodeSnapshot(snap)
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: encode snapshot: %v", ErrValidation, err)
	}

	size, err := s.artifacts.PutSnapshot(ctx, id, doc)
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: write snapshot: %v", ErrStorage, err)
	}

	if len(req.GLB) > 0 {
		if err := s.artifacts.PutExport(ctx, id, req.GLB); err != nil {
			return SaveResult{}, fmt.Errorf("%w: write export: %v", ErrStorage, err)
		}
	}

	if requesterID != "" {
		title := strings.TrimSpace(req.Title)
		glbLen := len(req.GLB)
		snapSize := size
		s.bg.Submit("save-upsert", func(jobCtx context.Context) error {
			return s.upsertSaved(jobCtx, requesterID, id, snap, req.GLB, title, snapSize+int64(glbLen))
		})
	}

	return SaveResult{ID: id, SnapshotBytes: size, HasExport: len(req.GLB) > 0}, nil
}

// upsertSaved is the deferred phase of a full save. When the id was claimed
// by someone else between allocation and now, the save moves wholesale to a
// fresh id, artifacts included.
func (s *IngestService) upsertSaved(ctx context.Context, ownerID, id string, snap geometry.Snapshot, glb []byte, title string, sizeBytes int64) error {
	counts, total := geometry.Summarize(snap.GeoJSON)
	st := models.Stats{
		TotalElements: total,
		BuildingCount: counts.Building,
		HighwayCount:  counts.Highway,
		WaterCount:    counts.Water,
		NaturalCount:  counts.Natural,
		LanduseCount:  counts.Landuse,
		OtherCount:    counts.Other,
		AreaKm2:       geometry.Area(snap.Bounds),
	}
	if title == "" {
		title = defaultTitle
	}

	m := models.Model{
		ID:           id,
		OwnerID:      &ownerID,
		Title:        title,
		HasGLBExport: len(glb) > 0,
		Stats:        st,
		SizeBytes:    sizeBytes,
	}
	if m.HasGLBExport {
		m.GLBFileName = id + ".glb"
	}

	err := s.records.Upsert(ctx, m)
	if errors.Is(err, repository.ErrOwnerMismatch) {
		fresh, allocErr := s.alloc.Allocate(ctx, "", ownerID)
		if allocErr != nil {
			return fmt.Errorf("reallocate after conflict: %w", allocErr)
		}
		s.log.Warn().Str("id", id).Str("fresh_id", fresh).Str("owner", ownerID).
			Msg("id claimed by another owner, moving save")

		snap.FileID = fresh
		moved, encErr := geometry.EncodeSnapshot(snap)
		if encErr != nil {
			return fmt.Errorf("re-encode snapshot: %w", encErr)
		}
		if _, putErr := s.artifacts.PutSnapshot(ctx, fresh, moved); putErr != nil {
			return fmt.Errorf("move snapshot: %w", putErr)
		}
		if len(glb) > 0 {
			if putErr := s.artifacts.PutExport(ctx, fresh, glb); putErr != nil {
				return fmt.Errorf("move export: %w", putErr)
			}
		}

		m.ID = fresh
		if m.HasGLBExport {
			m.GLBFileName = fresh + ".glb"
		}
		err = s.records.Upsert(ctx, m)
	}
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	if _, err := s.accounts.RecomputeModelsCount(ctx, ownerID); err != nil {
		s.log.Error().Err(err).Str("owner", ownerID).Msg("recompute models count failed")
	}
	if err := s.accounts.TouchLastModelCreated(ctx, ownerID); err != nil {
		s.log.Error().Err(err).Str("owner", ownerID).Msg("touch last model created failed")
	}
	return nil
}

// SaveExport persists a binary export, synchronously. An existing record the
// caller owns is updated in place without touching its counters; otherwise a
// record is created carrying whatever statistics the client reported.
func (s *IngestService) SaveExport(ctx context.Context, requesterID string, req ExportRequest) (ExportResult, error) {
	if len(req.GLB) == 0 {
		return ExportResult{}, fmt.Errorf("%w: missing glb payload", ErrValidation)
	}

	id, err := s.alloc.Allocate(ctx, req.FileID, requesterID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("allocate id: %w", err)
	}

	var existing models.Model
	action := "create"
	if current, getErr := s.records.GetByID(ctx, id); getErr == nil && current.OwnedBy(requesterID) {
		existing = current
		action = "update"
	}

	if err := s.artifacts.PutExport(ctx, id, req.GLB); err != nil {
		return ExportResult{}, fmt.Errorf("%w: write export: %v", ErrStorage, err)
	}

	fileName := id + ".glb"
	switch action {
	case "update":
		if err := s.records.SetExport(ctx, id, fileName); err != nil {
			return ExportResult{}, fmt.Errorf("%w: record export: %v", ErrStorage, err)
		}
	default:
		title := strings.TrimSpace(req.ProjectName)
		if title == "" {
			title = defaultTitle
		}
		m := models.Model{
			ID:           id,
			Title:        title,
			HasGLBExport: true,
			GLBFileName:  fileName,
			SizeBytes:    int64(len(req.GLB)),
			CameraPreset: req.Camera,
		}
		if requesterID != "" {
			owner := requesterID
			m.OwnerID = &owner
		}
		if c := req.Counts; c != nil {
			m.Stats = models.Stats{
				TotalElements: c.Total,
				BuildingCount: c.Building,
				HighwayCount:  c.Highway,
				WaterCount:    c.Water,
				NaturalCount:  c.Natural,
				LanduseCount:  c.Landuse,
				OtherCount:    c.Other,
				AreaKm2:       c.AreaKm2,
			}
		}
		if err := s.records.Upsert(ctx, m); err != nil {
			return ExportResult{}, fmt.Errorf("%w: create record: %v", ErrStorage, err)
		}
	}

	res := ExportResult{ID: id, Action: action, SizeBytes: int64(len(req.GLB))}

	if len(req.Thumbnail) > 0 {
		rel, thumbErr := s.artifacts.PutThumbnail(ctx, requesterID, id, req.Thumbnail, existing.ThumbnailPath)
		if thumbErr != nil {
			s.log.Error().Err(thumbErr).Str("id", id).Msg("thumbnail write failed")
		} else if err := s.records.SetThumbnail(ctx, id, rel, req.Camera); err != nil {
			s.log.Error().Err(err).Str("id", id).Msg("thumbnail record update failed")
		} else {
			res.Thumbnail = rel
		}
	} else if len(req.Camera) > 0 && action == "update" {
		if err := s.records.SetThumbnail(ctx, id, existing.ThumbnailPath, req.Camera); err != nil {
			s.log.Error().Err(err).Str("id", id).Msg("camera preset update failed")
		}
	}

	if requesterID != "" && action == "create" {
		if _, err := s.accounts.RecomputeModelsCount(ctx, requesterID); err != nil {
			s.log.Error().Err(err).Str("owner", requesterID).Msg("recompute models count failed")
		}
		if err := s.accounts.TouchLastModelCreated(ctx, requesterID); err != nil {
			s.log.Error().Err(err).Str("owner", requesterID).Msg("touch last model created failed")
		}
	}

	return res, nil
}
