package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"geomodel/internal/models"
)

type mockModelStore struct {
	mock.Mock
}

func (m *mockModelStore) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockModelStore) GetByID(ctx context.Context, id string) (models.Model, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Model), args.Error(1)
}

func (m *mockModelStore) Upsert(ctx context.Context, rec models.Model) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockModelStore) UpdateStats(ctx context.Context, id string, st models.Stats, sizeBytes int64) error {
	return m.Called(ctx, id, st, sizeBytes).Error(0)
}

func (m *mockModelStore) SetExport(ctx context.Context, id string, fileName string) error {
	return m.Called(ctx, id, fileName).Error(0)
}

func (m *mockModelStore) SetThumbnail(ctx context.Context, id string, rel string, camera []byte) error {
	return m.Called(ctx, id, rel, camera).Error(0)
}

func (m *mockModelStore) UpdateMeta(ctx context.Context, id string, title, description *string) error {
	return m.Called(ctx, id, title, description).Error(0)
}

func (m *mockModelStore) SetVisibility(ctx context.Context, id string, visibility models.Visibility) error {
	return m.Called(ctx, id, visibility).Error(0)
}

func (m *mockModelStore) IncrementViews(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockModelStore) IncrementDownloads(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockModelStore) ExportBlob(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockModelStore) ClearExportBlob(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockModelStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Model, error) {
	args := m.Called(ctx, ownerID)
	if l := args.Get(0); l != nil {
		return l.([]models.Model), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockModelStore) ListZeroStats(ctx context.Context, limit int) ([]models.Model, error) {
	args := m.Called(ctx, limit)
	if l := args.Get(0); l != nil {
		return l.([]models.Model), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockModelStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockFavoriteStore struct {
	mock.Mock
}

func (m *mockFavoriteStore) Toggle(ctx context.Context, modelID, userID string) (bool, int, error) {
	args := m.Called(ctx, modelID, userID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *mockFavoriteStore) Count(ctx context.Context, modelID string) (int, error) {
	args := m.Called(ctx, modelID)
	return args.Int(0), args.Error(1)
}

func (m *mockFavoriteStore) Clear(ctx context.Context, modelID string) error {
	return m.Called(ctx, modelID).Error(0)
}

func (m *mockFavoriteStore) ClearByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockFavoriteStore) ListByUser(ctx context.Context, userID string) ([]models.Model, error) {
	args := m.Called(ctx, userID)
	if l := args.Get(0); l != nil {
		return l.([]models.Model), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountStore struct {
	mock.Mock
}

func (m *mockAccountStore) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockAccountStore) RecomputeModelsCount(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockAccountStore) TouchLastModelCreated(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAccountStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) PutSnapshot(ctx context.Context, id string, data []byte) (int64, error) {
	args := m.Called(ctx, id, data)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockArtifactStore) GetSnapshot(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactStore) DeleteSnapshot(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockArtifactStore) PutExport(ctx context.Context, id string, data []byte) error {
	return m.Called(ctx, id, data).Error(0)
}

func (m *mockArtifactStore) GetExport(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactStore) GetExportMirror(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactStore) DeleteExport(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockArtifactStore) PutThumbnail(ctx context.Context, ownerID, id string, data []byte, previousRel string) (string, error) {
	args := m.Called(ctx, ownerID, id, data, previousRel)
	return args.String(0), args.Error(1)
}

func (m *mockArtifactStore) GetByRel(ctx context.Context, rel string) ([]byte, error) {
	args := m.Called(ctx, rel)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactStore) DeleteByRel(ctx context.Context, rel string) error {
	return m.Called(ctx, rel).Error(0)
}

func (m *mockArtifactStore) DeleteProfileImage(ctx context.Context, rel string) error {
	return m.Called(ctx, rel).Error(0)
}

type mockAllocator struct {
	mock.Mock
}

func (m *mockAllocator) Allocate(ctx context.Context, candidate string, owner string) (string, error) {
	args := m.Called(ctx, candidate, owner)
	return args.String(0), args.Error(1)
}

// inlineBackground runs submitted jobs synchronously so tests observe the
// deferred phase deterministically.
type inlineBackground struct {
	names []string
}

func (b *inlineBackground) Submit(name string, fn func(context.Context) error) {
	b.names = append(b.names, name)
	_ = fn(context.Background())
}

// dropBackground swallows jobs without running them.
type dropBackground struct {
	submitted int
}

func (b *dropBackground) Submit(name string, fn func(context.Context) error) {
	b.submitted++
}
