package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The quick, brown Fox jumps over the lazy dog!")
	assert.Equal(t, []string{"quick", "brown", "fox", "jumps", "over", "lazy", "dog"}, tokens)

	assert.Empty(t, Tokenize("the a an"))
	assert.Empty(t, Tokenize(""))
}

func TestKeywordIndex_BuildAndSearch(t *testing.T) {
	idx := NewKeywordIndex()
	err := idx.Build(
		[]core.DocumentID{"a", "b", "c"},
		[]string{
			"databases store structured records",
			"vector search over embeddings",
			"databases and vector search together",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Greater(t, idx.Tokens(), 0)

	matches, err := idx.Search("vector search", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// Both b and c match both tokens; ties break by id.
	assert.Equal(t, core.DocumentID("b"), matches[0].DocumentID)
	assert.Equal(t, core.DocumentID("c"), matches[1].DocumentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestKeywordIndex_PartialMatchScoresLower(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(
		[]core.DocumentID{"a", "b"},
		[]string{"databases store records", "vector search over embeddings"},
	))

	matches, err := idx.Search("databases search", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.InDelta(t, 0.5, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.5, matches[1].Score, 1e-6)
}

func TestKeywordIndex_StopWordOnlyQuery(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build([]core.DocumentID{"a"}, []string{"some content"}))

	matches, err := idx.Search("the a an", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKeywordIndex_SearchEmpty(t *testing.T) {
	idx := NewKeywordIndex()
	_, err := idx.Search("anything", 10)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestKeywordIndex_BuildRejectsMismatch(t *testing.T) {
	idx := NewKeywordIndex()
	err := idx.Build([]core.DocumentID{"a", "b"}, []string{"only one"})
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestKeywordIndex_SaveAndLoad(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(
		[]core.DocumentID{"a", "b"},
		[]string{"alpha content", "beta content"},
	))

	path := filepath.Join(t.TempDir(), "keyword_index.json")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadKeywordIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	matches, err := loaded.Search("alpha", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.DocumentID("a"), matches[0].DocumentID)
}
