package service

import (
	"context"

	"geomodel/internal/models"
)

// ModelStore is the metadata store for Asset Records, implemented by
// repository.ModelRepository.
type ModelStore interface {
	OwnerOf(ctx context.Context, id string) (owner string, exists bool, err error)
	GetByID(ctx context.Context, id string) (models.Model, error)
	Upsert(ctx context.Context, m models.Model) error
	UpdateStats(ctx context.Context, id string, st models.Stats, sizeBytes int64) error
	SetExport(ctx context.Context, id string, fileName string) error
	SetThumbnail(ctx context.Context, id string, rel string, camera []byte) error
	UpdateMeta(ctx context.Context, id string, title, description *string) error
	SetVisibility(ctx context.Context, id string, visibility models.Visibility) error
	IncrementViews(ctx context.Context, id string) (int, error)
	IncrementDownloads(ctx context.Context, id string) error
	ExportBlob(ctx context.Context, id string) ([]byte, error)
	ClearExportBlob(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Model, error)
	ListZeroStats(ctx context.Context, limit int) ([]models.Model, error)
	Delete(ctx context.Context, id string) error
}

// FavoriteStore is the many-to-many favorites relation.
type FavoriteStore interface {
	Toggle(ctx context.Context, modelID, userID string) (favorited bool, count int, err error)
	Count(ctx context.Context, modelID string) (int, error)
	Clear(ctx context.Context, modelID string) error
	ClearByUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]models.Model, error)
}

// AccountStore covers the owner-side aggregate bookkeeping.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	RecomputeModelsCount(ctx context.Context, id string) (int, error)
	TouchLastModelCreated(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore revokes auth sessions during account deletion.
type SessionStore interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ArtifactStore is the keyed byte store over the media tree, the export
// mirror and per-path helpers, implemented by artifact.Store.
type ArtifactStore interface {
	PutSnapshot(ctx context.Context, id string, data []byte) (int64, error)
	GetSnapshot(ctx context.Context, id string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, id string) error
	PutExport(ctx context.Context, id string, data []byte) error
	GetExport(ctx context.Context, id string) ([]byte, error)
	GetExportMirror(ctx context.Context, id string) ([]byte, error)
	DeleteExport(ctx context.Context, id string) error
	PutThumbnail(ctx context.Context, ownerID, id string, data []byte, previousRel string) (string, error)
	GetByRel(ctx context.Context, rel string) ([]byte, error)
	DeleteByRel(ctx context.Context, rel string) error
	DeleteProfileImage(ctx context.Context, rel string) error
}

// Allocator resolves the asset id a save should target, implemented by
// ids.Allocator.
type Allocator interface {
	Allocate(ctx context.Context, candidate string, owner string) (string, error)
}

// Background runs a task detached from the request lifecycle; failures are
// logged by the runner, never re-surfaced to the caller.
type Background interface {
	Submit(name string, fn func(context.Context) error)
}
