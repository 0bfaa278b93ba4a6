package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ListSnapshotIDs returns the asset ids with a geometry snapshot on disk.
func (s *Store) ListSnapshotIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, modelsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	return out, nil
}

// ListExportIDs returns the asset ids with a binary export on disk, with the
// legacy prefix stripped so both conventions map to the same id.
func (s *Store) ListExportIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, exportsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	seen := map[string]struct{}{}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".glb") {
			continue
		}
		id := strings.TrimSuffix(name, ".glb")
		id = strings.TrimPrefix(id, legacyExportPrefix)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// SnapshotModTime returns when the snapshot file was last written.
func (s *Store) SnapshotModTime(ctx context.Context, id string) (time.Time, error) {
	return modTime(s.snapshotPath(id))
}

// ExportModTime returns the newest write time across both export path
// conventions.
func (s *Store) ExportModTime(ctx context.Context, id string) (time.Time, error) {
	plain, plainErr := modTime(s.exportPath(id))
	legacy, legacyErr := modTime(s.legacyExportPath(id))
	switch {
	case plainErr == nil && legacyErr == nil:
		if legacy.After(plain) {
			return legacy, nil
		}
		return plain, nil
	case plainErr == nil:
		return plain, nil
	case legacyErr == nil:
		return legacy, nil
	default:
		return time.Time{}, plainErr
	}
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
