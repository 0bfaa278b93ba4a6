package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"geomodel/internal/artifact"
	"geomodel/internal/geometry"
	"geomodel/internal/models"
)

const (
	TaskStatsRepair = "stats_repair"
	TaskOrphanSweep = "orphan_sweep"

	repairBatchSize = 100

	// orphanRetention keeps freshly written artifacts out of the sweep so a
	// save whose record has not landed yet is never collected.
	orphanRetention = 24 * time.Hour
)

type RecordSource interface {
	OwnerOf(ctx context.Context, id string) (owner string, exists bool, err error)
	ListZeroStats(ctx context.Context, limit int) ([]models.Model, error)
	UpdateStats(ctx context.Context, id string, st models.Stats, sizeBytes int64) error
}

type ArtifactSource interface {
	GetSnapshot(ctx context.Context, id string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, id string) error
	DeleteExport(ctx context.Context, id string) error
	ListSnapshotIDs(ctx context.Context) ([]string, error)
	ListExportIDs(ctx context.Context) ([]string, error)
	SnapshotModTime(ctx context.Context, id string) (time.Time, error)
	ExportModTime(ctx context.Context, id string) (time.Time, error)
}

// Processor executes maintenance tasks delivered over the redis stream.
type Processor struct {
	records   RecordSource
	artifacts ArtifactSource
	logger    zerolog.Logger
	now       func() time.Time
}

type TaskPayload struct {
	Type string `json:"type"`
}

func NewProcessor(records RecordSource, artifacts ArtifactSource, logger zerolog.Logger) *Processor {
	return &Processor{
		records:   records,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "processor").Logger(),
		now:       time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TaskStatsRepair:
		return p.repairStats(ctx)
	case TaskOrphanSweep:
		return p.sweepOrphans(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

// repairStats recomputes counters for records that never got theirs, using
// the stored snapshot as the source of truth.
func (p *Processor) repairStats(ctx context.Context) error {
	list, err := p.records.ListZeroStats(ctx, repairBatchSize)
	if err != nil {
		return fmt.Errorf("list zero-stats records: %w", err)
	}

	repaired := 0
	for _, m := range list {
		doc, err := p.artifacts.GetSnapshot(ctx, m.ID)
		if err != nil {
			if !errors.Is(err, artifact.ErrNotFound) {
				p.logger.Warn().Err(err).Str("id", m.ID).Msg("snapshot read failed")
			}
			continue
		}
		snap, err := geometry.DecodeSnapshot(doc)
		if err != nil {
			p.logger.Warn().Err(err).Str("id", m.ID).Msg("snapshot undecodable")
			continue
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
			continue
		}

		size := m.SizeBytes
		if size == 0 {
			size = int64(len(doc))
		}
		if err := p.records.UpdateStats(ctx, m.ID, st, size); err != nil {
			p.logger.Error().Err(err).Str("id", m.ID).Msg("stats update failed")
			continue
		}
		repaired++
	}

	p.logger.Info().Int("candidates", len(list)).Int("repaired", repaired).Msg("stats repair pass done")
	return nil
}

// sweepOrphans deletes artifacts whose id has no record, once they are old
// enough that no in-flight save could still be racing toward the upsert.
func (p *Processor) sweepOrphans(ctx context.Context) error {
	cutoff := p.now().Add(-orphanRetention)
	removed := 0

	snapshots, err := p.artifacts.ListSnapshotIDs(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	for _, id := range snapshots {
		orphan, err := p.isOrphan(ctx, id)
		if err != nil || !orphan {
			continue
		}
		mod, err := p.artifacts.SnapshotModTime(ctx, id)
		if err != nil || mod.After(cutoff) {
			continue
		}
		if err := p.artifacts.DeleteSnapshot(ctx, id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			p.logger.Warn().Err(err).Str("id", id).Msg("orphan snapshot remove failed")
			continue
		}
		if err := p.artifacts.DeleteExport(ctx, id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			p.logger.Warn().Err(err).Str("id", id).Msg("orphan export remove failed")
		}
		removed++
	}

	exports, err := p.artifacts.ListExportIDs(ctx)
	if err != nil {
		return fmt.Errorf("list exports: %w", err)
	}
	for _, id := range exports {
		orphan, err := p.isOrphan(ctx, id)
		if err != nil || !orphan {
			continue
		}
		mod, err := p.artifacts.ExportModTime(ctx, id)
		if err != nil || mod.After(cutoff) {
			continue
		}
		if err := p.artifacts.DeleteExport(ctx, id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			p.logger.Warn().Err(err).Str("id", id).Msg("orphan export remove failed")
			continue
		}
		removed++
	}

	p.logger.Info().Int("removed", removed).Msg("orphan sweep done")
	return nil
}

func (p *Processor) isOrphan(ctx context.Context, id string) (bool, error) {
	_, exists, err := p.records.OwnerOf(ctx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("id", id).Msg("owner lookup failed")
		return false, err
	}
	return !exists, nil
}
