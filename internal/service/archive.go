package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ArchiveService bundles a model's artifacts into a single downloadable zip.
type ArchiveService struct {
	records  ModelStore
	resolver *Resolver
	log      zerolog.Logger
}

func NewArchiveService(records ModelStore, resolver *Resolver, logger zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		records:  records,
		resolver: resolver,
		log:      logger.With().Str("component", "archive").Logger(),
	}
}

// Build assembles {<id>.json, <id>.glb, README.txt} from whichever artifacts
// exist. NotFound only when the record lacks both; the download counter is
// bumped best effort.
func (s *ArchiveService) Build(ctx context.Context, requesterID, id string) ([]byte, string, error) {
	m, err := s.resolver.authorize(ctx, requesterID, id)
	if err != nil {
		return nil, "", err
	}

	snapshot, snapErr := s.resolver.Snapshot(ctx, requesterID, id)
	if snapErr != nil && !errors.Is(snapErr, ErrNotFound) {
		return nil, "", snapErr
	}
	export, _, expErr := s.resolver.Export(ctx, requesterID, id)
	if expErr != nil && !errors.Is(expErr, ErrNotFound) {
		return nil, "", expErr
	}
	if snapshot == nil && export == nil {
		return nil, "", ErrNotFound
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if snapshot != nil {
		if err := addArchiveFile(zw, id+".json", snapshot); err != nil {
			return nil, "", fmt.Errorf("%w: bundle snapshot: %v", ErrStorage, err)
		}
	}
	if export != nil {
		if err := addArchiveFile(zw, id+".glb", export); err != nil {
			return nil, "", fmt.Errorf("%w: bundle export: %v", ErrStorage, err)
		}
	}

	readme := fmt.Sprintf(
		"Model: %s\nExported: %s\nCreated: %s\n\nElements: %d\n  buildings: %d\n  highways: %d\n  water: %d\n  natural: %d\n  landuse: %d\n  other: %d\nArea: %.2f km2\n\nContents:\n  %s.json  geometry snapshot\n  %s.glb   binary model (when present)\n",
		m.Title,
		time.Now().UTC().Format(time.RFC3339),
		m.CreatedAt.UTC().Format("2006-01-02"),
		m.Stats.TotalElements,
		m.Stats.BuildingCount,
		m.Stats.HighwayCount,
		m.Stats.WaterCount,
		m.Stats.NaturalCount,
		m.Stats.LanduseCount,
		m.Stats.OtherCount,
		m.Stats.AreaKm2,
		id, id,
	)
	if err := addArchiveFile(zw, "README.txt", []byte(readme)); err != nil {
		return nil, "", fmt.Errorf("%w: bundle readme: %v", ErrStorage, err)
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("%w: finish archive: %v", ErrStorage, err)
	}

	if err := s.records.IncrementDownloads(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("download counter bump failed")
	}

	return buf.Bytes(), id + ".zip", nil
}

func addArchiveFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
