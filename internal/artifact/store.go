package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNotFound reports that no artifact bytes exist at the requested location.
var ErrNotFound = errors.New("artifact not found")

const (
	modelsDir  = "models"
	exportsDir = "exports/user_exports"
	usersDir   = "users"

	legacyExportPrefix = "export_"
)

// Store is the keyed byte store for model artifacts. It owns the local media
// tree and the optional offsite mirror for binary exports; which location is
// authoritative on read is decided by the caller, not here.
type Store struct {
	root   string
	mirror *Mirror
	log    zerolog.Logger
}

func NewStore(root string, mirror *Mirror, log zerolog.Logger) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("media root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: abs, mirror: mirror, log: log}, nil
}

func (s *Store) snapshotPath(id string) string {
	return filepath.Join(s.root, modelsDir, id+".json")
}

func (s *Store) exportPath(id string) string {
	return filepath.Join(s.root, exportsDir, id+".glb")
}

func (s *Store) legacyExportPath(id string) string {
	return filepath.Join(s.root, exportsDir, legacyExportPrefix+id+".glb")
}

// ThumbnailRel returns the tree-relative thumbnail location for a model, the
// form stored on the metadata record.
func ThumbnailRel(ownerID, id string) string {
	return strings.Join([]string{usersDir, ownerID, "thumbnails", "thumbnail_" + id + ".jpg"}, "/")
}

// PutSnapshot writes the geometry snapshot and returns its size in bytes.
func (s *Store) PutSnapshot(ctx context.Context, id string, data []byte) (int64, error) {
	if err := writeFile(s.snapshotPath(id), data); err != nil {
		return 0, fmt.Errorf("write snapshot %s: %w", id, err)
	}
	return int64(len(data)), nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) ([]byte, error) {
	return readFile(s.snapshotPath(id))
}

func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	return removeFile(s.snapshotPath(id))
}

// PutExport overwrites the binary export for id. Prior copies at both path
// conventions are removed first; the new bytes land at the plain-id path, and
// on the mirror when one is configured (best effort).
func (s *Store) PutExport(ctx context.Context, id string, data []byte) error {
	if err := removeFile(s.exportPath(id)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear export %s: %w", id, err)
	}
	if err := removeFile(s.legacyExportPath(id)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear legacy export %s: %w", id, err)
	}
	if err := writeFile(s.exportPath(id), data); err != nil {
		return fmt.Errorf("write export %s: %w", id, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, mirrorKey(id), data); err != nil {
			s.log.Warn().Err(err).Str("model_id", id).Msg("mirror export write failed")
		}
	}
	return nil
}

// GetExport reads the filesystem copy of the binary export, preferring the
// plain-id convention over the legacy prefixed one.
func (s *Store) GetExport(ctx context.Context, id string) ([]byte, error) {
	data, err := readFile(s.exportPath(id))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return readFile(s.legacyExportPath(id))
}

// GetExportMirror reads the offsite copy. ErrNotFound when no mirror is
// configured or the object is missing.
func (s *Store) GetExportMirror(ctx context.Context, id string) ([]byte, error) {
	if s.mirror == nil {
		return nil, ErrNotFound
	}
	return s.mirror.Get(ctx, mirrorKey(id))
}

// DeleteExport removes every known copy of the binary export. Missing copies
// are not an error; the first real failure is returned after all candidates
// were attempted.
func (s *Store) DeleteExport(ctx context.Context, id string) error {
	var firstErr error
	for _, path := range []string{s.exportPath(id), s.legacyExportPath(id)} {
		if err := removeFile(path); err != nil && !errors.Is(err, ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, mirrorKey(id)); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("model_id", id).Msg("mirror export delete failed")
		}
	}
	return firstErr
}

// PutThumbnail stores thumbnail bytes under the owner's namespace and returns
// the tree-relative path for the metadata record. A previous thumbnail at a
// different location is removed first.
func (s *Store) PutThumbnail(ctx context.Context, ownerID, id string, data []byte, previousRel string) (string, error) {
	rel := ThumbnailRel(ownerID, id)
	if previousRel != "" && previousRel != rel {
		if err := s.DeleteByRel(ctx, previousRel); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("path", previousRel).Msg("stale thumbnail remove failed")
		}
	}
	abs, err := s.absFromRel(rel)
	if err != nil {
		return "", err
	}
	if err := writeFile(abs, data); err != nil {
		return "", fmt.Errorf("write thumbnail %s: %w", id, err)
	}
	return rel, nil
}

// GetByRel reads an artifact by its tree-relative path.
func (s *Store) GetByRel(ctx context.Context, rel string) ([]byte, error) {
	abs, err := s.absFromRel(rel)
	if err != nil {
		return nil, err
	}
	return readFile(abs)
}

// DeleteByRel removes an artifact by its tree-relative path.
func (s *Store) DeleteByRel(ctx context.Context, rel string) error {
	abs, err := s.absFromRel(rel)
	if err != nil {
		return err
	}
	return removeFile(abs)
}

// DeleteProfileImage removes an account's profile image and prunes its
// now-empty directories, best effort.
func (s *Store) DeleteProfileImage(ctx context.Context, rel string) error {
	abs, err := s.absFromRel(rel)
	if err != nil {
		return err
	}
	if err := removeFile(abs); err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	_ = os.Remove(dir)
	_ = os.Remove(filepath.Dir(dir))
	return nil
}

// absFromRel joins a stored relative path with the media root, rejecting
// anything that would escape the tree.
func (s *Store) absFromRel(rel string) (string, error) {
	if rel == "" {
		return "", ErrNotFound
	}
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes media root", rel)
	}
	return abs, nil
}

func mirrorKey(id string) string {
	return "exports/" + id + ".glb"
}

// writeFile lands data at path atomically: bytes go to a temp file in the
// destination directory and are renamed into place, so readers never observe
// a partial artifact and concurrent writers to one path cannot interleave.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
