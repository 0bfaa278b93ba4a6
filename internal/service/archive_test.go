package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"geomodel/internal/artifact"
	"geomodel/internal/repository"
)

func TestArchiveBundlesAvailableArtifacts(t *testing.T) {
	records := new(mockModelStore)
	artifacts := new(mockArtifactStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)
	artifacts.On("GetSnapshot", mock.Anything, "m1").Return([]byte(`{"file_id":"m1"}`), nil)
	artifacts.On("GetExport", mock.Anything, "m1").Return([]byte("glb-bytes"), nil)
	records.On("IncrementDownloads", mock.Anything, "m1").Return(nil)

	resolver := newResolver(records, new(mockFavoriteStore), artifacts)
	svc := NewArchiveService(records, resolver, zerolog.Nop())

	data, name, err := svc.Build(context.Background(), "", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1.zip", name)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, openErr := f.Open()
		require.NoError(t, openErr)
		content, readErr := io.ReadAll(rc)
		require.NoError(t, readErr)
		require.NoError(t, rc.Close())
		entries[f.Name] = content
	}

	assert.Contains(t, entries, "m1.json")
	assert.Contains(t, entries, "m1.glb")
	assert.Contains(t, entries, "README.txt")
	assert.Equal(t, []byte("glb-bytes"), entries["m1.glb"])
	records.AssertCalled(t, "IncrementDownloads", mock.Anything, "m1")
}

func TestArchiveSnapshotOnly(t *testing.T) {
	records := new(mockModelStore)
	artifacts := new(mockArtifactStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)
	artifacts.On("GetSnapshot", mock.Anything, "m1").Return([]byte(`{"file_id":"m1"}`), nil)
	artifacts.On("GetExport", mock.Anything, "m1").Return(nil, artifact.ErrNotFound)
	records.On("ExportBlob", mock.Anything, "m1").Return(nil, repository.ErrModelNotFound)
	artifacts.On("GetExportMirror", mock.Anything, "m1").Return(nil, artifact.ErrNotFound)
	records.On("IncrementDownloads", mock.Anything, "m1").Return(nil)

	resolver := newResolver(records, new(mockFavoriteStore), artifacts)
	svc := NewArchiveService(records, resolver, zerolog.Nop())

	data, _, err := svc.Build(context.Background(), "", "m1")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"m1.json", "README.txt"}, names)
}

func TestArchiveNothingToBundle(t *testing.T) {
	records := new(mockModelStore)
	artifacts := new(mockArtifactStore)
	records.On("GetByID", mock.Anything, "m1").Return(publicModel("m1", "u1"), nil)
	artifacts.On("GetSnapshot", mock.Anything, "m1").Return(nil, artifact.ErrNotFound)
	artifacts.On("GetExport", mock.Anything, "m1").Return(nil, artifact.ErrNotFound)
	records.On("ExportBlob", mock.Anything, "m1").Return(nil, repository.ErrModelNotFound)
	artifacts.On("GetExportMirror", mock.Anything, "m1").Return(nil, artifact.ErrNotFound)

	resolver := newResolver(records, new(mockFavoriteStore), artifacts)
	svc := NewArchiveService(records, resolver, zerolog.Nop())

	_, _, err := svc.Build(context.Background(), "", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
	records.AssertNotCalled(t, "IncrementDownloads", mock.Anything, mock.Anything)
}
