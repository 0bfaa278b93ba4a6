package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"geomodel/internal/models"
	"geomodel/internal/repository"
)

func newCatalog(records *mockModelStore, favorites *mockFavoriteStore) *CatalogService {
	return NewCatalogService(records, favorites, zerolog.Nop())
}

func TestToggleVisibilityFlipsBothWays(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(privateModel("m1", "u1"), nil).Once()
	records.On("SetVisibility", mock.Anything, "m1", models.VisibilityPublic).Return(nil).Once()

	svc := newCatalog(records, new(mockFavoriteStore))

	next, err := svc.ToggleVisibility(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, next)

	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil).Once()
	records.On("SetVisibility", mock.Anything, "m1", models.VisibilityPrivate).Return(nil).Once()

	next, err = svc.ToggleVisibility(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPrivate, next)
	records.AssertExpectations(t)
}

func TestToggleVisibilityNonOwnerForbidden(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	_, err := svc.ToggleVisibility(context.Background(), "u2", "m1")
	assert.ErrorIs(t, err, ErrForbidden)
	records.AssertNotCalled(t, "SetVisibility", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleFavoriteRejectsOwner(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	_, _, err := svc.ToggleFavorite(context.Background(), "u1", "m1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToggleFavoritePrivateForbidden(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(privateModel("m1", "u1"), nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	_, _, err := svc.ToggleFavorite(context.Background(), "u2", "m1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestToggleFavoriteThirdParty(t *testing.T) {
	records := new(mockModelStore)
	favorites := new(mockFavoriteStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)
	favorites.On("Toggle", mock.Anything, "m1", "u2").Return(true, 4, nil)

	svc := newCatalog(records, favorites)

	favorited, count, err := svc.ToggleFavorite(context.Background(), "u2", "m1")
	require.NoError(t, err)
	assert.True(t, favorited)
	assert.Equal(t, 4, count)
}

func TestRecordViewSkipsOwner(t *testing.T) {
	records := new(mockModelStore)
	m := publicModel("m1", "u1")
	m.ViewCount = 7
	records.On("GetByID", mock.Anything, "m1").Return(m, nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	views, err := svc.RecordView(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, 7, views)
	records.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
}

func TestRecordViewCountsStranger(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)
	records.On("IncrementViews", mock.Anything, "m1").Return(8, nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	views, err := svc.RecordView(context.Background(), "", "m1")
	require.NoError(t, err)
	assert.Equal(t, 8, views)
}

func TestUpdateMetaValidatesTitle(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)

	svc := newCatalog(records, new(mockFavoriteStore))

	blank := "   "
	err := svc.UpdateMeta(context.Background(), "u1", "m1", &blank, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateMetaUnknownRecord(t *testing.T) {
	records := new(mockModelStore)
	records.On("GetByID", mock.Anything, "gone").Return(models.Model{}, repository.ErrModelNotFound)

	svc := newCatalog(records, new(mockFavoriteStore))

	title := "New title"
	err := svc.UpdateMeta(context.Background(), "u1", "gone", &title, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
