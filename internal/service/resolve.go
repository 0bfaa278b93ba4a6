package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"geomodel/internal/artifact"
	"geomodel/internal/geometry"
	"geomodel/internal/models"
	"geomodel/internal/repository"
)

// Resolver answers artifact and statistics reads. It decides which of the
// candidate storage locations is authoritative, enforces visibility, and
// repairs records whose statistics were never computed.
type Resolver struct {
	records   ModelStore
	favorites FavoriteStore
	artifacts ArtifactStore
	log       zerolog.Logger
}

func NewResolver(records ModelStore, favorites FavoriteStore, artifacts ArtifactStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		records:   records,
		favorites: favorites,
		artifacts: artifacts,
		log:       logger.With().Str("component", "resolver").Logger(),
	}
}

// authorize loads the record and enforces the read rule: public records are
// open, private records are owner-only.
func (r *Resolver) authorize(ctx context.Context, requesterID, id string) (models.Model, error) {
	m, err := r.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return models.Model{}, ErrNotFound
		}
		return models.Model{}, fmt.Errorf("load record %s: %w", id, err)
	}
	if m.Visibility != models.VisibilityPublic && !m.OwnedBy(requesterID) {
		return models.Model{}, ErrForbidden
	}
	return m, nil
}

// Snapshot returns the geometry snapshot document.
func (r *Resolver) Snapshot(ctx context.Context, requesterID, id string) ([]byte, error) {
	if _, err := r.authorize(ctx, requesterID, id); err != nil {
		return nil, err
	}
	data, err := r.artifacts.GetSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read snapshot: %v", ErrStorage, err)
	}
	return data, nil
}

// Export returns the binary export, probing locations in precedence order:
// filesystem plain path, filesystem legacy path, database blob, then the
// offsite mirror. First hit wins.
func (r *Resolver) Export(ctx context.Context, requesterID, id string) ([]byte, string, error) {
	m, err := r.authorize(ctx, requesterID, id)
	if err != nil {
		return nil, "", err
	}

	name := m.GLBFileName
	if name == "" {
		name = id + ".glb"
	}

	data, err := r.artifacts.GetExport(ctx, id)
	if err == nil {
		return data, name, nil
	}
	if !errors.Is(err, artifact.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: read export: %v", ErrStorage, err)
	}

	data, err = r.records.ExportBlob(ctx, id)
	if err == nil {
		return data, name, nil
	}
	if !errors.Is(err, repository.ErrModelNotFound) {
		return nil, "", fmt.Errorf("%w: read export blob: %v", ErrStorage, err)
	}

	data, err = r.artifacts.GetExportMirror(ctx, id)
	if err == nil {
		return data, name, nil
	}
	if !errors.Is(err, artifact.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: read export mirror: %v", ErrStorage, err)
	}
	return nil, "", ErrNotFound
}

// Thumbnail returns the thumbnail bytes: the recorded path first, then the
// conventional owner-namespace location, then a generated placeholder. A
// placeholder never fails.
func (r *Resolver) Thumbnail(ctx context.Context, requesterID, id string) ([]byte, string, error) {
	m, err := r.authorize(ctx, requesterID, id)
	if err != nil {
		return nil, "", err
	}

	if m.ThumbnailPath != "" {
		if data, readErr := r.artifacts.GetByRel(ctx, m.ThumbnailPath); readErr == nil {
			return data, "image/jpeg", nil
		} else if !errors.Is(readErr, artifact.ErrNotFound) {
			r.log.Warn().Err(readErr).Str("id", id).Msg("recorded thumbnail unreadable")
		}
	}

	if m.OwnerID != nil {
		rel := artifact.ThumbnailRel(*m.OwnerID, id)
		if rel != m.ThumbnailPath {
			if data, readErr := r.artifacts.GetByRel(ctx, rel); readErr == nil {
				return data, "image/jpeg", nil
			}
		}
	}

	return artifact.Placeholder(), "image/png", nil
}

// Stats returns the record with statistics guaranteed computed. All-zero
// statistics beside an existing snapshot are recomputed and persisted in
// place; a public read by a non-owner counts as a view.
func (r *Resolver) Stats(ctx context.Context, requesterID, id string) (models.Model, error) {
	m, err := r.authorize(ctx, requesterID, id)
	if err != nil {
		return models.Model{}, err
	}

	if m.Stats.IsZero() {
		if repaired, ok := r.repairStats(ctx, &m); ok {
			r.log.Info().Str("id", id).Int("elements", repaired.TotalElements).Msg("statistics repaired on read")
		}
	}

	if m.Visibility == models.VisibilityPublic && !m.OwnedBy(requesterID) {
		if views, incErr := r.records.IncrementViews(ctx, id); incErr == nil {
			m.ViewCount = views
		}
	}
	return m, nil
}

// repairStats recomputes and persists counters from the stored snapshot.
// Deterministic over the same snapshot, so concurrent repairs converge.
func (r *Resolver) repairStats(ctx context.Context, m *models.Model) (models.Stats, bool) {
	doc, err := r.artifacts.GetSnapshot(ctx, m.ID)
	if err != nil {
		return models.Stats{}, false
	}
	snap, err := geometry.DecodeSnapshot(doc)
	if err != nil {
		r.log.Warn().Err(err).Str("id", m.ID).Msg("snapshot undecodable, skipping repair")
		return models.Stats{}, false
	}

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
	if st.IsZero() {
		return st, false
	}

	size := m.SizeBytes
	if size == 0 {
		size = int64(len(doc))
	}
	if err := r.records.UpdateStats(ctx, m.ID, st, size); err != nil {
		r.log.Error().Err(err).Str("id", m.ID).Msg("persisting repaired statistics failed")
	}
	m.Stats = st
	m.SizeBytes = size
	return st, true
}

// CameraPreset returns the saved preset, owner only.
func (r *Resolver) CameraPreset(ctx context.Context, requesterID, id string) ([]byte, error) {
	m, err := r.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	if !m.OwnedBy(requesterID) {
		return nil, ErrForbidden
	}
	return m.CameraPreset, nil
}

// ListOwned returns the caller's records, repairing zero statistics along
// the way.
func (r *Resolver) ListOwned(ctx context.Context, ownerID string) ([]models.Model, error) {
	list, err := r.records.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	for i := range list {
		if list[i].Stats.IsZero() {
			r.repairStats(ctx, &list[i])
		}
	}
	return list, nil
}

// ListFavorites returns the public-or-owned subset of the caller's favorites.
func (r *Resolver) ListFavorites(ctx context.Context, userID string) ([]models.Model, error) {
	list, err := r.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	visible := list[:0]
	for _, m := range list {
		if m.Visibility == models.VisibilityPublic || m.OwnedBy(userID) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// AccountStats aggregates over the caller's records.
type AccountStats struct {
	ModelCount     int
	TotalElements  int
	TotalAreaKm2   float64
	TotalSizeBytes int64
	ViewCount      int
	DownloadCount  int
	PublicCount    int
}

func (r *Resolver) AccountStats(ctx context.Context, ownerID string) (AccountStats, error) {
	list, err := r.ListOwned(ctx, ownerID)
	if err != nil {
		return AccountStats{}, err
	}
	var agg AccountStats
	agg.ModelCount = len(list)
	for _, m := range list {
		agg.TotalElements += m.Stats.TotalElements
		agg.TotalAreaKm2 += m.Stats.AreaKm2
		agg.TotalSizeBytes += m.SizeBytes
		agg.ViewCount += m.ViewCount
		agg.DownloadCount += m.DownloadCount
		if m.Visibility == models.VisibilityPublic {
			agg.PublicCount++
		}
	}
	return agg, nil
}
