package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
)

func TestFlatIndex_BuildAndSearch(t *testing.T) {
	idx := NewFlatIndex()
	err := idx.Build(
		[]core.DocumentID{"a", "b", "c"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	matches, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, core.DocumentID("a"), matches[0].DocumentID)
	assert.Equal(t, core.DocumentID("c"), matches[1].DocumentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestFlatIndex_BuildRejectsMismatches(t *testing.T) {
	idx := NewFlatIndex()

	err := idx.Build([]core.DocumentID{"a"}, [][]float32{{1, 0}, {0, 1}})
	assert.ErrorIs(t, err, ErrCountMismatch)

	err = idx.Build([]core.DocumentID{"a", "b"}, [][]float32{{1, 0}, {0, 1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_SearchErrors(t *testing.T) {
	idx := NewFlatIndex()
	_, err := idx.Search([]float32{1}, 5)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	require.NoError(t, idx.Build([]core.DocumentID{"a"}, [][]float32{{1, 0}}))
	_, err = idx.Search([]float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_SaveAndLoad(t *testing.T) {
	idx := NewFlatIndex()
	require.NoError(t, idx.Build(
		[]core.DocumentID{"doc-1", "doc-2"},
		[][]float32{{0.6, 0.8}, {1, 0}},
	))

	path := filepath.Join(t.TempDir(), "similarity_index.mus")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 2, loaded.Dimension())

	matches, err := loaded.Search([]float32{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.DocumentID("doc-1"), matches[0].DocumentID)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)

	assert.Empty(t, NormalizeVector(nil))
}
