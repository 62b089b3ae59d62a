package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/ai/mock"
	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/collection"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
)

type testHarness struct {
	orch     *Orchestrator
	manager  *collection.Manager
	embedder *mock.MockEmbedder
	dataDir  string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dir := t.TempDir()
	artifacts, err := artifact.NewStore(dir)
	require.NoError(t, err)
	manager, err := collection.NewManager(dir, artifacts)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8

	registry := extract.NewDefaultRegistry(testLogger())
	stages, err := DefaultStages(registry, embedder, nil, testLogger(),
		WithEmbedRetry(1, time.Millisecond))
	require.NoError(t, err)

	orch, err := NewOrchestrator(manager, artifacts, stages,
		WithOrchestratorLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	return &testHarness{orch: orch, manager: manager, embedder: embedder, dataDir: dir}
}

func (h *testHarness) createCollection(t *testing.T, name, csv string) {
	t.Helper()

	src := filepath.Join(h.dataDir, name+"_source.csv")
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o644))

	_, err := h.manager.Create(name, core.CollectionConfig{
		SourceFiles:    []string{src},
		Processor:      "csv",
		SchemaMapping:  core.SchemaMapping{Content: []string{"body"}, Metadata: map[string]string{"title": "title"}},
		EmbeddingModel: "embeddinggemma",
		Enabled:        true,
	})
	require.NoError(t, err)
}

const sampleCSV = "title,body\n" +
	"First,Alpha document body with enough text\n" +
	"Second,Beta document body with different text\n" +
	"Third,Gamma document body with more words\n"

func TestOrchestrator_FullRunSucceeds(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	res, err := h.orch.Execute(context.Background(), "articles")
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusSuccess, res.Status)
	assert.Equal(t, []string{"ingestion", "validation", "cleaning", "embedding", "indexing"}, res.StagesCompleted)
	assert.Empty(t, res.StagesFailed)
	assert.Equal(t, 3, res.DocumentsProcessed)

	// All three artifacts exist on disk.
	for _, kind := range []string{artifact.KindEmbeddings, artifact.KindSimilarityIndex, artifact.KindKeywordIndex} {
		path, ok := res.Artifacts[kind]
		require.True(t, ok, kind)
		_, err := os.Stat(path)
		require.NoError(t, err, kind)
	}

	// Collection state reflects the run.
	coll, err := h.manager.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, core.CollectionStatusCompleted, coll.Status)
	assert.Equal(t, 3, coll.DocumentCount)
	assert.Empty(t, coll.ErrorMessage)

	// The run manifest is written and well formed.
	stats, err := h.manager.Stats("articles")
	require.NoError(t, err)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, "success", stats.LastRun.Status)
	assert.Len(t, stats.LastRun.StageResults, 5)
	assert.Equal(t, 3, stats.VectorCount)
	assert.Equal(t, 8, stats.VectorDimension)
}

func TestOrchestrator_EmbedderFailureFailsRun(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	h.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service unavailable")
	}

	res, err := h.orch.Execute(context.Background(), "articles")
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusFailed, res.Status)
	assert.Equal(t, []string{"ingestion", "validation", "cleaning"}, res.StagesCompleted)
	assert.Equal(t, []string{"embedding"}, res.StagesFailed)
	assert.NotEmpty(t, res.Errors)

	// No indexing artifacts after an embedding failure.
	assert.NotContains(t, res.Artifacts, artifact.KindSimilarityIndex)
	assert.NotContains(t, res.Artifacts, artifact.KindKeywordIndex)

	coll, err := h.manager.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, core.CollectionStatusFailed, coll.Status)
	assert.NotEmpty(t, coll.ErrorMessage)
}

func TestOrchestrator_MissingSourceIsFailed(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.Create("articles", core.CollectionConfig{
		SourceFiles:    []string{filepath.Join(h.dataDir, "does_not_exist.csv")},
		Processor:      "csv",
		SchemaMapping:  core.SchemaMapping{Content: []string{"body"}},
		EmbeddingModel: "embeddinggemma",
		Enabled:        true,
	})
	require.NoError(t, err)

	res, err := h.orch.Execute(context.Background(), "articles")
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusFailed, res.Status)
	assert.Empty(t, res.StagesCompleted)
	assert.Equal(t, []string{"ingestion"}, res.StagesFailed)

	coll, err := h.manager.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, core.CollectionStatusFailed, coll.Status)
}

func TestOrchestrator_UnknownStageBound(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	res, err := h.orch.Execute(context.Background(), "articles", WithStartStage("nonsense"))
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusFailed, res.Status)
	assert.Empty(t, res.StagesCompleted)
	assert.Empty(t, res.StagesFailed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "nonsense")
}

func TestOrchestrator_DisabledCollection(t *testing.T) {
	h := newTestHarness(t)

	src := filepath.Join(h.dataDir, "src.csv")
	require.NoError(t, os.WriteFile(src, []byte(sampleCSV), 0o644))
	_, err := h.manager.Create("disabled", core.CollectionConfig{
		SourceFiles:    []string{src},
		Processor:      "csv",
		SchemaMapping:  core.SchemaMapping{Content: []string{"body"}},
		EmbeddingModel: "embeddinggemma",
		Enabled:        false,
	})
	require.NoError(t, err)

	_, err = h.orch.Execute(context.Background(), "disabled")
	assert.ErrorIs(t, err, ErrCollectionDisabled)
}

func TestOrchestrator_UnknownCollection(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.orch.Execute(context.Background(), "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.orch.Execute(ctx, "articles")
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusFailed, res.Status)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "cancelled")
}

func TestOrchestrator_ResumeFromSnapshot(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	res, err := h.orch.Execute(context.Background(), "articles", WithEndStage("cleaning"))
	require.NoError(t, err)
	assert.Equal(t, core.PipelineStatusSuccess, res.Status)
	assert.Equal(t, []string{"ingestion", "validation", "cleaning"}, res.StagesCompleted)

	res, err = h.orch.Execute(context.Background(), "articles", WithStartStage("embedding"))
	require.NoError(t, err)
	assert.Equal(t, core.PipelineStatusSuccess, res.Status)
	assert.Equal(t, []string{"embedding", "indexing"}, res.StagesCompleted)
	assert.Equal(t, 3, res.DocumentsProcessed)

	coll, err := h.manager.Get("articles")
	require.NoError(t, err)
	assert.Equal(t, core.CollectionStatusCompleted, coll.Status)
	assert.Equal(t, 3, coll.DocumentCount)
}

func TestOrchestrator_ResumeWithoutSnapshotFails(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	res, err := h.orch.Execute(context.Background(), "articles", WithStartStage("embedding"))
	require.NoError(t, err)

	assert.Equal(t, core.PipelineStatusFailed, res.Status)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "intermediate")
}

func TestOrchestrator_ManifestRoundTrips(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	_, err := h.orch.Execute(context.Background(), "articles")
	require.NoError(t, err)

	path := filepath.Join(h.dataDir, "articles", "manifest.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var manifest core.RunManifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "articles", manifest.CollectionName)
	assert.Equal(t, 3, manifest.DocumentsProcessed)
	assert.Len(t, manifest.Stages.Completed, 5)
	assert.Empty(t, manifest.Stages.Failed)
}

func TestOrchestrator_ExecuteStage(t *testing.T) {
	h := newTestHarness(t)
	h.createCollection(t, "articles", sampleCSV)

	input := &core.RawBatch{Documents: []*core.Document{
		testDocument("a", "valid content"),
	}}
	res, err := h.orch.ExecuteStage(context.Background(), "articles", "validation", input)
	require.NoError(t, err)
	assert.Equal(t, core.StageStatusCompleted, res.Status)
	assert.Equal(t, 1, res.OutputCount)

	_, err = h.orch.ExecuteStage(context.Background(), "articles", "nonsense", input)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestOrchestrator_ListStages(t *testing.T) {
	h := newTestHarness(t)

	infos := h.orch.ListStages()
	require.Len(t, infos, 5)
	assert.Equal(t, "ingestion", infos[0].Name)
	assert.Equal(t, "indexing", infos[4].Name)
	for _, info := range infos {
		assert.NotEmpty(t, info.Description)
	}
}
