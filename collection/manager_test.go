package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/store"
)

func testConfig() core.CollectionConfig {
	return core.CollectionConfig{
		SourceFiles:    []string{"data/docs.csv"},
		Processor:      "csv",
		SchemaMapping:  core.SchemaMapping{Content: []string{"body"}},
		EmbeddingModel: "embeddinggemma",
		Enabled:        true,
	}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	artifacts, err := artifact.NewStore(dir)
	require.NoError(t, err)
	mgr, err := NewManager(dir, artifacts)
	require.NoError(t, err)
	return mgr, dir
}

func TestManager_CreateAndGet(t *testing.T) {
	mgr, _ := newTestManager(t)

	coll, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)
	assert.Equal(t, "articles", coll.Name)
	assert.Equal(t, core.CollectionStatusPending, coll.Status)
	assert.False(t, coll.CreatedAt.IsZero())

	got, err := mgr.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, coll.Name, got.Name)
	assert.Equal(t, coll.Config.Processor, got.Config.Processor)
}

func TestManager_CreateIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t)

	first, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Processor = "jsonl"
	second, err := mgr.Create("articles", cfg)
	require.NoError(t, err)

	// Existing collection wins; the new config is not applied.
	assert.Equal(t, first.Config.Processor, second.Config.Processor)
	assert.Len(t, mgr.List(), 1)
}

func TestManager_CreateValidatesConfig(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Create("", testConfig())
	assert.ErrorIs(t, err, core.ErrEmptyCollectionName)

	cfg := testConfig()
	cfg.SourceFiles = nil
	_, err = mgr.Create("articles", cfg)
	assert.ErrorIs(t, err, core.ErrNoSourceFiles)
}

func TestManager_GetNotFound(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ListSorted(t *testing.T) {
	mgr, _ := newTestManager(t)

	for _, name := range []string{"zebra", "alpha", "mango"} {
		_, err := mgr.Create(name, testConfig())
		require.NoError(t, err)
	}

	list := mgr.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mango", list[1].Name)
	assert.Equal(t, "zebra", list[2].Name)
}

func TestManager_UpdateStatus(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)

	require.NoError(t, mgr.UpdateStatus("articles", core.CollectionStatusFailed, "embedder unreachable"))

	got, err := mgr.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, core.CollectionStatusFailed, got.Status)
	assert.Equal(t, "embedder unreachable", got.ErrorMessage)

	// Clearing the error message on recovery.
	require.NoError(t, mgr.UpdateStatus("articles", core.CollectionStatusCompleted, ""))
	got, err = mgr.Get("articles")
	require.NoError(t, err)
	assert.Empty(t, got.ErrorMessage)
}

func TestManager_UpdateStatusRejectsUnknown(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)

	assert.Error(t, mgr.UpdateStatus("articles", core.CollectionStatus("bogus"), ""))
}

func TestManager_PersistsAcrossReload(t *testing.T) {
	mgr, dir := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)
	require.NoError(t, mgr.SetDocumentCount("articles", 42))

	artifacts, err := artifact.NewStore(dir)
	require.NoError(t, err)
	reloaded, err := NewManager(dir, artifacts)
	require.NoError(t, err)

	got, err := reloaded.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, 42, got.DocumentCount)
	assert.Equal(t, core.CollectionStatusPending, got.Status)
}

func TestManager_LoadSkipsMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken", manifestName), []byte("{not json"), 0o644))

	mgr, err := NewManager(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, mgr.List())
}

func TestManager_Delete(t *testing.T) {
	mgr, dir := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)

	require.NoError(t, mgr.Delete("articles"))

	_, err = mgr.Get("articles")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(dir, "articles", manifestName))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, mgr.Delete("articles"), ErrNotFound)
}

func TestManager_Stats(t *testing.T) {
	mgr, dir := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)
	require.NoError(t, mgr.SetDocumentCount("articles", 2))

	artifacts, err := artifact.NewStore(dir)
	require.NoError(t, err)

	matrix, err := store.MarshalVectorMatrix([][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}})
	require.NoError(t, err)
	path, err := artifacts.PathFor("articles", artifact.KindEmbeddings, ".mus")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, matrix, 0o644))

	kwPath, err := artifacts.PathFor("articles", artifact.KindKeywordIndex, ".json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(kwPath, []byte("{}"), 0o644))

	stats, err := mgr.Stats("articles")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, 3, stats.VectorDimension)
	assert.True(t, stats.HasKeywordIndex)
	assert.False(t, stats.HasSimilarityIndex)
	assert.Greater(t, stats.ArtifactCount, 0)
	assert.Greater(t, stats.StorageBytes, int64(0))
}

func TestManager_StatsWithoutArtifacts(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Create("articles", testConfig())
	require.NoError(t, err)

	stats, err := mgr.Stats("articles")
	require.NoError(t, err)
	assert.Zero(t, stats.VectorCount)
	assert.False(t, stats.HasSimilarityIndex)
	assert.Nil(t, stats.LastRun)
}
