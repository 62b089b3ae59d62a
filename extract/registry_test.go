package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/corpora/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catchAllProcessor claims any existing file, used to exercise the
// ordered fallback scan.
type catchAllProcessor struct {
	TextProcessor
}

func (p *catchAllProcessor) Name() string               { return "catchall" }
func (p *catchAllProcessor) SupportedFormats() []string { return []string{".xyz"} }
func (p *catchAllProcessor) CanProcess(path string) bool {
	_, err := filepath.Abs(path)
	return err == nil
}

func TestRegistry_Get(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	t.Run("extension dispatch", func(t *testing.T) {
		path := writeFile(t, "a.csv", "verse\nrow one\n")
		p, ok := reg.Get(path)
		require.True(t, ok)
		assert.Equal(t, "csv", p.Name())
	})

	t.Run("no processor", func(t *testing.T) {
		path := writeFile(t, "a.pdf", "%PDF")
		_, ok := reg.Get(path)
		assert.False(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, ok := reg.Get(filepath.Join(t.TempDir(), "missing.csv"))
		assert.False(t, ok)
	})
}

func TestRegistry_FallbackScan(t *testing.T) {
	reg := NewRegistry(nil, NewCSVProcessor(nil), &catchAllProcessor{})

	// unknown extension falls through to the ordered scan
	path := writeFile(t, "a.unknown", "whatever")
	p, ok := reg.Get(path)
	require.True(t, ok)
	assert.Equal(t, "catchall", p.Name())
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	p, ok := reg.Lookup("jsonl")
	require.True(t, ok)
	assert.Equal(t, "jsonl", p.Name())

	_, ok = reg.Lookup("pdf")
	assert.False(t, ok)

	assert.Equal(t, []string{"csv", "jsonl", "text"}, reg.Names())
}

func TestJSONLProcessor_Process(t *testing.T) {
	proc := NewJSONLProcessor(nil)
	cfg := core.CollectionConfig{
		SchemaMapping: core.SchemaMapping{
			Content:  []string{"text"},
			Metadata: map[string]string{"author": "author"},
		},
	}
	path := writeFile(t, "docs.jsonl",
		`{"text": "first document", "author": "vyasa"}
not json at all
{"text": "second document", "author": null}
`)

	docs, err := proc.Process(context.Background(), path, "gita", cfg)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "first document", docs[0].Content)
	assert.Equal(t, "vyasa", docs[0].Metadata["author"])
	assert.Equal(t, "second document", docs[1].Content)
	_, hasAuthor := docs[1].Metadata["author"]
	assert.False(t, hasAuthor, "null metadata value should be dropped")
}

func TestJSONLProcessor_SchemaInvalid(t *testing.T) {
	proc := NewJSONLProcessor(nil)
	cfg := core.CollectionConfig{
		SchemaMapping: core.SchemaMapping{Content: []string{"body"}},
	}
	path := writeFile(t, "docs.jsonl", `{"text": "first document"}`+"\n")

	_, err := proc.Process(context.Background(), path, "gita", cfg)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}

func TestTextProcessor_Process(t *testing.T) {
	proc := NewTextProcessor(nil)

	t.Run("whole file", func(t *testing.T) {
		path := writeFile(t, "notes.txt", "some plain text\nwith two lines\n")
		docs, err := proc.Process(context.Background(), path, "notes", core.CollectionConfig{})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "some plain text\nwith two lines", docs[0].Content)
		assert.Equal(t, core.ContentTypeText, docs[0].ContentType)
	})

	t.Run("chunked", func(t *testing.T) {
		path := writeFile(t, "notes.txt", "one two three four five six\n")
		cfg := core.CollectionConfig{ChunkSize: 4, ChunkOverlap: 2}
		docs, err := proc.Process(context.Background(), path, "notes", cfg)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "0", docs[0].Metadata["chunk_index"])
		assert.Equal(t, "1", docs[1].Metadata["chunk_index"])
		assert.NotEqual(t, docs[0].ID, docs[1].ID)
	})

	t.Run("markdown code blocks", func(t *testing.T) {
		path := writeFile(t, "readme.md", "intro text\n```go\nfunc main() {}\n```\n")
		docs, err := proc.Process(context.Background(), path, "notes", core.CollectionConfig{})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, core.ContentTypeMixed, docs[0].ContentType)
		require.Len(t, docs[0].Structured, 1)
		assert.Equal(t, "code", docs[0].Structured[0].Kind)
	})
}
