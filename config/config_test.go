package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
collections:
  - name: gita
    source_files:
      - /data/verses.csv
    processor: csv
    schema_mapping:
      content: verse
      metadata: [translation]
    embedding_model: embeddinggemma
    chunk_size: 256
    delimiter: ","
  - name: notes
    source_files:
      - /data/notes.md
    processor: text
    schema_mapping:
      content: [body, title]
      metadata:
        author: writer
    embedding_model: embeddinggemma
    enabled: false
`)

	entries, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gita := entries[0]
	assert.Equal(t, "gita", gita.Name)
	assert.Equal(t, []string{"/data/verses.csv"}, gita.Config.SourceFiles)
	assert.Equal(t, "csv", gita.Config.Processor)
	assert.Equal(t, []string{"verse"}, gita.Config.SchemaMapping.Content)
	assert.Equal(t, map[string]string{"translation": "translation"}, gita.Config.SchemaMapping.Metadata)
	assert.Equal(t, 256, gita.Config.ChunkSize)
	assert.True(t, gita.Config.Enabled, "enabled should default to true")

	notes := entries[1]
	assert.Equal(t, []string{"body", "title"}, notes.Config.SchemaMapping.Content)
	assert.Equal(t, map[string]string{"author": "writer"}, notes.Config.SchemaMapping.Metadata)
	assert.False(t, notes.Config.Enabled)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("CORPORA_DATA", "/srv/data")
	path := writeConfig(t, `
collections:
  - name: gita
    source_files:
      - ${CORPORA_DATA}/verses.csv
    schema_mapping:
      content: verse
`)

	entries, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"/srv/data/verses.csv"}, entries[0].Config.SourceFiles)
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	path := writeConfig(t, `
collections:
  - name: good
    source_files: [/data/a.csv]
    schema_mapping:
      content: verse
  - name: bad
    source_files: "not a list"
  - name: also-good
    source_files: [/data/b.csv]
    schema_mapping:
      content: verse
`)

	entries, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "good", entries[0].Name)
	assert.Equal(t, "also-good", entries[1].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "verses.csv")
	require.NoError(t, os.WriteFile(existing, []byte("verse\n"), 0644))

	tests := []struct {
		name  string
		entry Entry
		want  int
	}{
		{
			name:  "valid",
			entry: entryWith("gita", existing, "csv", []string{"verse"}),
			want:  0,
		},
		{
			name:  "missing name",
			entry: entryWith("", existing, "csv", []string{"verse"}),
			want:  1,
		},
		{
			name:  "missing source file",
			entry: entryWith("gita", "/nonexistent/verses.csv", "csv", []string{"verse"}),
			want:  1,
		},
		{
			name:  "unknown processor",
			entry: entryWith("gita", existing, "parquet", []string{"verse"}),
			want:  1,
		},
		{
			name:  "missing content mapping",
			entry: entryWith("gita", existing, "csv", nil),
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Validate(tt.entry, []string{"csv", "jsonl", "text"})
			assert.Len(t, problems, tt.want, "problems: %v", problems)
		})
	}
}

func entryWith(name, source, processor string, content []string) Entry {
	e := Entry{Name: name}
	e.Config.SourceFiles = []string{source}
	e.Config.Processor = processor
	e.Config.SchemaMapping.Content = content
	e.Config.Enabled = true
	return e
}
