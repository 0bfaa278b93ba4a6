package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"geomodel/internal/models"
)

var (
	ErrModelNotFound = errors.New("model not found")

	// ErrOwnerMismatch reports an upsert that hit an id fixed to a different
	// owner. Callers resolve it by reallocating the id, never by merging.
	ErrOwnerMismatch = errors.New("model id held by another owner")
)

const modelColumns = `
	id, owner_id, title, description, visibility, has_glb_export, glb_file_name,
	glb_export_time, thumbnail_path, thumbnail_updated, camera_preset,
	total_elements, building_count, highway_count, water_count, natural_count,
	landuse_count, other_count, area_km2, file_size_bytes, view_count,
	download_count, created_at, updated_at
`

// qualifiedModelColumns prefixes every model column with a table alias for
// use in joins.
func qualifiedModelColumns(alias string) string {
	cols := strings.Split(modelColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

type ModelRepository struct {
	pool *pgxpool.Pool
}

func NewModelRepository(pool *pgxpool.Pool) *ModelRepository {
	return &ModelRepository{pool: pool}
}

// OwnerOf reports the fixed owner of an id, if any record carries it.
func (r *ModelRepository) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	const query = `SELECT COALESCE(owner_id, '') FROM models WHERE id = $1`

	var owner string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return owner, true, nil
}

func (r *ModelRepository) GetByID(ctx context.Context, id string) (models.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanModel(row)
}

// Upsert applies the create-or-merge write for a save. New records start
// private; on conflict the incoming counters win wholesale and export
// presence is sticky, but the write is refused when the id belongs to a
// different owner.
func (r *ModelRepository) Upsert(ctx context.Context, m models.Model) error {
	const query = `
		INSERT INTO models (
			id, owner_id, title, description, visibility, has_glb_export,
			glb_file_name, glb_export_time, camera_preset,
			total_elements, building_count, highway_count, water_count,
			natural_count, landuse_count, other_count, area_km2,
			file_size_bytes, created_at, updated_at
		) VALUES (
			$1, NULLIF($2, ''), $3, $4, 'private', $5,
			$6, CASE WHEN $5 THEN NOW() END, $7,
			$8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			total_elements  = EXCLUDED.total_elements,
			building_count  = EXCLUDED.building_count,
			highway_count   = EXCLUDED.highway_count,
			water_count     = EXCLUDED.water_count,
			natural_count   = EXCLUDED.natural_count,
			landuse_count   = EXCLUDED.landuse_count,
			other_count     = EXCLUDED.other_count,
			area_km2        = EXCLUDED.area_km2,
			file_size_bytes = EXCLUDED.file_size_bytes,
			has_glb_export  = models.has_glb_export OR EXCLUDED.has_glb_export,
			glb_file_name   = COALESCE(NULLIF(EXCLUDED.glb_file_name, ''), models.glb_file_name),
			glb_export_time = CASE WHEN EXCLUDED.has_glb_export THEN NOW() ELSE models.glb_export_time END,
			camera_preset   = COALESCE(EXCLUDED.camera_preset, models.camera_preset),
			updated_at      = NOW()
		WHERE models.owner_id IS NOT DISTINCT FROM EXCLUDED.owner_id
	`

	var owner string
	if m.OwnerID != nil {
		owner = *m.OwnerID
	}

	cmd, err := r.pool.Exec(ctx, query,
		m.ID,
		owner,
		m.Title,
		m.Description,
		m.HasGLBExport,
		m.GLBFileName,
		m.CameraPreset,
		m.Stats.TotalElements,
		m.Stats.BuildingCount,
		m.Stats.HighwayCount,
		m.Stats.WaterCount,
		m.Stats.NaturalCount,
		m.Stats.LanduseCount,
		m.Stats.OtherCount,
		m.Stats.AreaKm2,
		m.SizeBytes,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOwnerMismatch
	}
	return nil
}

// UpdateStats persists recomputed counters. Last writer wins; identical
// inputs produce identical rows, so redundant repairs are harmless.
func (r *ModelRepository) UpdateStats(ctx context.Context, id string, st models.Stats, sizeBytes int64) error {
	const query = `
		UPDATE models
		SET total_elements = $2,
		    building_count = $3,
		    highway_count = $4,
		    water_count = $5,
		    natural_count = $6,
		    landuse_count = $7,
		    other_count = $8,
		    area_km2 = $9,
		    file_size_bytes = $10,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id,
		st.TotalElements, st.BuildingCount, st.HighwayCount, st.WaterCount,
		st.NaturalCount, st.LanduseCount, st.OtherCount, st.AreaKm2, sizeBytes)
	return err
}

// SetExport flips export presence for an existing record without touching
// its geometry-derived counters.
func (r *ModelRepository) SetExport(ctx context.Context, id string, fileName string) error {
	const query = `
		UPDATE models
		SET has_glb_export = TRUE,
		    glb_file_name = $2,
		    glb_export_time = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, fileName)
	return err
}

func (r *ModelRepository) SetThumbnail(ctx context.Context, id string, rel string, camera []byte) error {
	const query = `
		UPDATE models
		SET thumbnail_path = $2,
		    thumbnail_updated = NOW(),
		    camera_preset = COALESCE($3, camera_preset),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, rel, camera)
	return err
}

func (r *ModelRepository) UpdateMeta(ctx context.Context, id string, title, description *string) error {
	const query = `
		UPDATE models
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, title, description)
	return err
}

// SetVisibility flips the record and, when going private, resets the public
// view counter in the same statement.
func (r *ModelRepository) SetVisibility(ctx context.Context, id string, visibility models.Visibility) error {
	const query = `
		UPDATE models
		SET visibility = $2,
		    view_count = CASE WHEN $2 = 'private' THEN 0 ELSE view_count END,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, string(visibility))
	return err
}

func (r *ModelRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	const query = `UPDATE models SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`

	var views int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrModelNotFound
		}
		return 0, err
	}
	return views, nil
}

func (r *ModelRepository) IncrementDownloads(ctx context.Context, id string) error {
	const query = `UPDATE models SET download_count = download_count + 1 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ExportBlob fetches the database copy of the binary export, the fallback
// location used when the filesystem write path was bypassed.
func (r *ModelRepository) ExportBlob(ctx context.Context, id string) ([]byte, error) {
	const query = `SELECT glb_blob FROM models WHERE id = $1 AND glb_blob IS NOT NULL`

	var blob []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return blob, nil
}

func (r *ModelRepository) ClearExportBlob(ctx context.Context, id string) error {
	const query = `UPDATE models SET glb_blob = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *ModelRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanModels(rows)
}

// ListZeroStats returns records whose statistics were never recorded,
// candidates for background repair from their geometry snapshots.
func (r *ModelRepository) ListZeroStats(ctx context.Context, limit int) ([]models.Model, error) {
	query := `SELECT ` + modelColumns + `
		FROM models
		WHERE total_elements = 0 AND building_count = 0 AND highway_count = 0
		  AND water_count = 0 AND natural_count = 0 AND landuse_count = 0
		  AND other_count = 0 AND area_km2 = 0
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanModels(rows)
}

func (r *ModelRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM models WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrModelNotFound
	}
	return nil
}

func scanModel(row pgx.Row) (models.Model, error) {
	var m models.Model
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Title,
		&m.Description,
		&m.Visibility,
		&m.HasGLBExport,
		&m.GLBFileName,
		&m.GLBExportTime,
		&m.ThumbnailPath,
		&m.ThumbnailUpdated,
		&m.CameraPreset,
		&m.Stats.TotalElements,
		&m.Stats.BuildingCount,
		&m.Stats.HighwayCount,
		&m.Stats.WaterCount,
		&m.Stats.NaturalCount,
		&m.Stats.LanduseCount,
		&m.Stats.OtherCount,
		&m.Stats.AreaKm2,
		&m.SizeBytes,
		&m.ViewCount,
		&m.DownloadCount,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Model{}, ErrModelNotFound
		}
		return models.Model{}, err
	}
	return m, nil
}

func scanModels(rows pgx.Rows) ([]models.Model, error) {
	var out []models.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
